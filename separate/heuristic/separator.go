package heuristic

import (
	"math"

	"github.com/cwbudde/algo-stems/control"
	"github.com/cwbudde/algo-stems/dsp/buffer"
	"github.com/cwbudde/algo-stems/dsp/core"
	"github.com/cwbudde/algo-stems/dsp/filter/onepole"
)

// Filter poles.
const (
	VoiceHighPassPole    = 0.005
	VoiceLowPassPole     = 0.15
	MusicCutPole         = 0.02
	SfxCutPole           = 0.10
	PresenceHighPassPole = 0.02
	PresenceTap          = 0.15
)

// Result is one block's separation. The slices alias the Separator's
// scratch memory and stay valid until the next Separate call.
type Result struct {
	// Voice is the mono voice estimate, shared by both output channels.
	Voice []float64
	// BgL and BgR are the per-channel background residuals after cuts.
	BgL, BgR []float64
	// Activity is the voice-activity weight computed from this block.
	Activity float64
}

// Separator is the stateful heuristic separator. It is not safe for
// concurrent use.
type Separator struct {
	voiceHP onepole.HighPass
	voiceLP onepole.LowPass
	musicHP [2]onepole.HighPass
	sfxLP   [2]onepole.LowPass
	presHP  onepole.HighPass
	vad     VAD

	voice, bgL, bgR []float64
}

// New returns a Separator with scratch space for blocks of up to maxFrames.
// Larger blocks grow the scratch once.
func New(maxFrames int) *Separator {
	if maxFrames < 0 {
		maxFrames = 0
	}
	s := &Separator{
		voice: make([]float64, maxFrames),
		bgL:   make([]float64, maxFrames),
		bgR:   make([]float64, maxFrames),
	}
	s.Reset()
	return s
}

// Reset clears all filter and activity state.
func (s *Separator) Reset() {
	s.voiceHP = onepole.NewHighPass(VoiceHighPassPole)
	s.voiceLP = onepole.NewLowPass(VoiceLowPassPole)
	for ch := range s.musicHP {
		s.musicHP[ch] = onepole.NewHighPass(MusicCutPole)
		s.sfxLP[ch] = onepole.NewLowPass(SfxCutPole)
	}
	s.presHP = onepole.NewHighPass(PresenceHighPassPole)
	s.vad = NewVAD()
}

// Activity returns the voice-activity weight of the last processed block.
func (s *Separator) Activity() float64 {
	return s.vad.Activity()
}

// Separate splits one stereo block into voice and background estimates and
// updates the activity weight. A mono src is read as L=R. src is not
// modified.
func (s *Separator) Separate(src *buffer.Block, st control.State) Result {
	l, r := src.Stereo()
	n := src.Frames()

	s.voice = core.EnsureLen(s.voice, n)
	s.bgL = core.EnsureLen(s.bgL, n)
	s.bgR = core.EnsureLen(s.bgR, n)

	musicCut, sfxCut := st.MusicCut, st.SfxCut
	energy := 0.0
	crossings := 0
	prev := 0.0

	for i := 0; i < n; i++ {
		mid := 0.5 * (l[i] + r[i])
		v := s.voiceLP.ProcessSample(s.voiceHP.ProcessSample(mid))

		energy += v * v
		if (v >= 0 && prev < 0) || (v < 0 && prev >= 0) {
			crossings++
		}
		prev = v

		bL, bR := l[i]-v, r[i]-v
		if musicCut > 0 {
			hpL := s.musicHP[0].ProcessSample(bL)
			hpR := s.musicHP[1].ProcessSample(bR)
			bL = (1-musicCut)*bL + musicCut*hpL
			bR = (1-musicCut)*bR + musicCut*hpR
		}
		if sfxCut > 0 {
			lpL := s.sfxLP[0].ProcessSample(bL)
			lpR := s.sfxLP[1].ProcessSample(bR)
			bL = (1-sfxCut)*bL + sfxCut*lpL
			bR = (1-sfxCut)*bR + sfxCut*lpR
		}

		s.voice[i] = v
		s.bgL[i] = bL
		s.bgR[i] = bR
	}

	w := 0.0
	if n > 0 {
		rms := math.Sqrt(energy / float64(n))
		w = s.vad.Update(rms, float64(crossings)/float64(n))
	}

	return Result{Voice: s.voice[:n], BgL: s.bgL[:n], BgR: s.bgR[:n], Activity: w}
}

// Mix renders a separation result into dst under st. A mono dst receives
// the left channel. Output samples are clamped to [-1,1].
func (s *Separator) Mix(dst *buffer.Block, res Result, st control.State) {
	vGain := st.VoiceGain
	if st.MuteVoice {
		vGain = 0
	}
	bGain := st.BgGain
	if st.MuteBg {
		bGain = 0
	}

	hardMute := st.MuteVoice || vGain == 0
	effBg := bGain * (1 - DuckAttenuation(st.DuckDepth, st.DuckPower, res.Activity))
	presence := core.DBToLinear(st.PresenceDB)
	leak := st.LeakKill
	w := res.Activity

	outL, outR := dst.Stereo()
	stereo := dst.Channels() > 1
	n := len(res.Voice)
	if f := dst.Frames(); f < n {
		n = f
	}

	for i := 0; i < n; i++ {
		v := res.Voice[i]
		bL, bR := res.BgL[i], res.BgR[i]

		voiceTerm := 0.0
		if !hardMute {
			boosted := (v + PresenceTap*s.presHP.ProcessSample(v)) * presence
			voiceTerm = vGain * (w * boosted)
		} else {
			bL -= leak * v
			bR -= leak * v
		}

		bgL, bgR := 0.0, 0.0
		if bGain != 0 {
			bgL, bgR = effBg*bL, effBg*bR
		}

		outL[i] = core.ClampUnit(voiceTerm + bgL)
		if stereo {
			outR[i] = core.ClampUnit(voiceTerm + bgR)
		}
	}
}

// ProcessBlock separates src and writes the mixed PROXY output to dst.
// dst and src may be the same block.
func (s *Separator) ProcessBlock(dst, src *buffer.Block, st control.State) {
	s.Mix(dst, s.Separate(src, st), st)
}

// DuckAttenuation returns the fraction of background removed at activity
// w: depth * w^power.
func DuckAttenuation(depth, power, w float64) float64 {
	if w <= 0 {
		return 0
	}
	return depth * math.Pow(w, power)
}
