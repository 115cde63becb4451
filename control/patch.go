package control

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotObject is returned when a control message is not a JSON object.
var ErrNotObject = errors.New("control: message is not a JSON object")

// Patch is a merge-patch update. Nil fields are absent and leave the
// corresponding State field unchanged.
type Patch struct {
	MasterGain *float64 `json:"masterGain,omitempty" yaml:"masterGain,omitempty"`
	VoiceGain  *float64 `json:"voiceGain,omitempty"  yaml:"voiceGain,omitempty"`
	BgGain     *float64 `json:"bgGain,omitempty"     yaml:"bgGain,omitempty"`
	MuteVoice  *bool    `json:"muteVoice,omitempty"  yaml:"muteVoice,omitempty"`
	MuteBg     *bool    `json:"muteBg,omitempty"     yaml:"muteBg,omitempty"`
	MusicCut   *float64 `json:"musicCut,omitempty"   yaml:"musicCut,omitempty"`
	SfxCut     *float64 `json:"sfxCut,omitempty"     yaml:"sfxCut,omitempty"`
	DuckDepth  *float64 `json:"duckDepth,omitempty"  yaml:"duckDepth,omitempty"`
	DuckPower  *float64 `json:"duckPower,omitempty"  yaml:"duckPower,omitempty"`
	PresenceDB *float64 `json:"presenceDb,omitempty" yaml:"presenceDb,omitempty"`
	LeakKill   *float64 `json:"leakKill,omitempty"   yaml:"leakKill,omitempty"`
	Mode       *string  `json:"mode,omitempty"       yaml:"mode,omitempty"`
}

// IsEmpty reports whether the patch sets no field.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

// DecodePatch parses a JSON control message. Unknown keys and values of the
// wrong JSON type are skipped; only input that is not a JSON object fails.
// "aiMode" is read as "mode" when "mode" itself is absent.
func DecodePatch(data []byte) (Patch, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		if err == nil {
			err = errors.New("null")
		}
		return Patch{}, fmt.Errorf("%w: %w", ErrNotObject, err)
	}

	var p Patch
	p.MasterGain = numField(raw, "masterGain")
	p.VoiceGain = numField(raw, "voiceGain")
	p.BgGain = numField(raw, "bgGain")
	p.MuteVoice = boolField(raw, "muteVoice")
	p.MuteBg = boolField(raw, "muteBg")
	p.MusicCut = numField(raw, "musicCut")
	p.SfxCut = numField(raw, "sfxCut")
	p.DuckDepth = numField(raw, "duckDepth")
	p.DuckPower = numField(raw, "duckPower")
	p.PresenceDB = numField(raw, "presenceDb")
	p.LeakKill = numField(raw, "leakKill")

	p.Mode = strField(raw, "mode")
	if p.Mode == nil {
		p.Mode = strField(raw, "aiMode")
	}

	return p, nil
}

func numField(raw map[string]any, key string) *float64 {
	v, ok := raw[key].(float64)
	if !ok {
		return nil
	}
	return &v
}

func boolField(raw map[string]any, key string) *bool {
	v, ok := raw[key].(bool)
	if !ok {
		return nil
	}
	return &v
}

func strField(raw map[string]any, key string) *string {
	v, ok := raw[key].(string)
	if !ok {
		return nil
	}
	return &v
}

// Float returns a pointer to v, for building patches in code.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// ModeName returns a pointer to the mode's name.
func ModeName(m Mode) *string {
	s := string(m)
	return &s
}
