package channelizer

import "math"

// CoarseSteps is the number of coarse tuning steps across the input rate.
const CoarseSteps = 1024

// Tuning splits a channel request into what the channelizer does and what
// it leaves to the demodulator.
type Tuning struct {
	InputRate int
	Rate      int
	Coarse    int64
	Residual  int64
}

// Tune snaps offset to a multiple of inputRate/CoarseSteps. Rates above the
// input rate are clamped to it; the channelizer never interpolates.
func Tune(inputRate, rate int, offset int64) Tuning {
	if rate <= 0 || rate > inputRate {
		rate = inputRate
	}
	step := float64(inputRate) / CoarseSteps
	coarse := int64(math.Round(float64(offset)/step) * step)
	return Tuning{
		InputRate: inputRate,
		Rate:      rate,
		Coarse:    coarse,
		Residual:  offset - coarse,
	}
}

func (t Tuning) Ratio() float64 { return float64(t.Rate) / float64(t.InputRate) }

func (t Tuning) Decimating() bool { return t.Rate < t.InputRate }
