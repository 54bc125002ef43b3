// Package dsp holds the per-sample blocks of the demodulation chain.
package dsp

import "math"

// FullScale is the magnitude of a full-scale sample inside the demodulator.
// Normalized IQ input is multiplied by this on entry.
const FullScale = 32768.0

const powerFloor = 1e-12

func PowerFromDB(db float64) float64 { return math.Pow(10, db/10) }

// DBPower converts a linear power ratio to dB, floored at -120 dB.
func DBPower(p float64) float64 {
	if p < powerFloor {
		p = powerFloor
	}
	return 10 * math.Log10(p)
}
