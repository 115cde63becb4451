package control

import "strings"

// Mode selects the separation path.
type Mode string

const (
	// ModeProxy renders with the heuristic separator only.
	ModeProxy Mode = "proxy"
	// ModeNeural renders from the neural stem queues with a per-quantum
	// heuristic fallback.
	ModeNeural Mode = "neural"
)

// ParseMode maps a mode name to a Mode. "onnx" is accepted as an alias of
// neural. Matching ignores case and surrounding space.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ModeProxy):
		return ModeProxy, true
	case string(ModeNeural), "onnx":
		return ModeNeural, true
	default:
		return "", false
	}
}

// State is the complete control record read by the render path.
type State struct {
	MasterGain float64 `json:"masterGain"`
	VoiceGain  float64 `json:"voiceGain"`
	BgGain     float64 `json:"bgGain"`
	MuteVoice  bool    `json:"muteVoice"`
	MuteBg     bool    `json:"muteBg"`
	MusicCut   float64 `json:"musicCut"`
	SfxCut     float64 `json:"sfxCut"`
	DuckDepth  float64 `json:"duckDepth"`
	DuckPower  float64 `json:"duckPower"`
	PresenceDB float64 `json:"presenceDb"`
	LeakKill   float64 `json:"leakKill"`
	Mode       Mode    `json:"mode"`
}

// Defaults.
const (
	DefaultDuckDepth  = 0.75
	DefaultDuckPower  = 1.6
	DefaultPresenceDB = 2.5
	DefaultLeakKill   = 0.85
)

// Default returns the state an engine starts with.
func Default() State {
	return State{
		MasterGain: 1,
		VoiceGain:  1,
		BgGain:     1,
		DuckDepth:  DefaultDuckDepth,
		DuckPower:  DefaultDuckPower,
		PresenceDB: DefaultPresenceDB,
		LeakKill:   DefaultLeakKill,
		Mode:       ModeProxy,
	}
}

// Merge returns s with every field present in p replaced by its normalized
// value. Fields absent from p, or present with an unusable value, keep the
// value they have in s.
func (s State) Merge(p Patch) State {
	mergeFloat(&s.MasterGain, p.MasterGain, NormalizeGain)
	mergeFloat(&s.VoiceGain, p.VoiceGain, NormalizeGain)
	mergeFloat(&s.BgGain, p.BgGain, NormalizeGain)
	mergeFloat(&s.MusicCut, p.MusicCut, NormalizeUnit)
	mergeFloat(&s.SfxCut, p.SfxCut, NormalizeUnit)
	mergeFloat(&s.DuckDepth, p.DuckDepth, NormalizeUnit)
	mergeFloat(&s.DuckPower, p.DuckPower, NormalizeDuckPower)
	mergeFloat(&s.PresenceDB, p.PresenceDB, NormalizePresenceDB)
	mergeFloat(&s.LeakKill, p.LeakKill, NormalizeUnit)

	if p.MuteVoice != nil {
		s.MuteVoice = *p.MuteVoice
	}
	if p.MuteBg != nil {
		s.MuteBg = *p.MuteBg
	}
	if p.Mode != nil {
		if m, ok := ParseMode(*p.Mode); ok {
			s.Mode = m
		}
	}

	return s
}

func mergeFloat(dst *float64, v *float64, norm func(float64) (float64, bool)) {
	if v == nil {
		return
	}
	if n, ok := norm(*v); ok {
		*dst = n
	}
}
