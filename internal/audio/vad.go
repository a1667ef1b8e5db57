package audio

import "math"

const (
	defaultGateWindowMs = 30
	defaultGateHangover = 10
)

// GateConfig tunes GateSilence. Threshold is a normalized RMS level in
// [0, 1]; zero disables gating.
type GateConfig struct {
	Threshold  float64
	WindowMs   int
	Hangover   int // windows kept around speech; 0 picks the default, negative disables
	SampleRate int
}

// GateSilence drops windows whose RMS energy stays below the threshold and
// that are not within Hangover windows of speech. Returns nil when the whole
// input is silent.
func GateSilence(samples []float32, cfg GateConfig) []float32 {
	if cfg.Threshold <= 0 || len(samples) == 0 {
		return samples
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = SampleRate
	}
	if cfg.WindowMs <= 0 {
		cfg.WindowMs = defaultGateWindowMs
	}
	if cfg.Hangover < 0 {
		cfg.Hangover = 0
	} else if cfg.Hangover == 0 {
		cfg.Hangover = defaultGateHangover
	}

	win := cfg.SampleRate * cfg.WindowMs / 1000
	if win <= 0 {
		win = 1
	}
	windows := (len(samples) + win - 1) / win

	keep := make([]bool, windows)
	anySpeech := false
	for w := 0; w < windows; w++ {
		start := w * win
		end := min(start+win, len(samples))
		if rms(samples[start:end]) < cfg.Threshold {
			continue
		}
		anySpeech = true
		lo := max(0, w-cfg.Hangover)
		hi := min(windows-1, w+cfg.Hangover)
		for i := lo; i <= hi; i++ {
			keep[i] = true
		}
	}
	if !anySpeech {
		return nil
	}

	out := make([]float32, 0, len(samples))
	for w, k := range keep {
		if !k {
			continue
		}
		start := w * win
		end := min(start+win, len(samples))
		out = append(out, samples[start:end]...)
	}
	return out
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
