package dsp

// Interpolator is a polyphase fractional resampler. The caller owns the
// distance accumulator; see Decimate and Interpolate.
type Interpolator struct {
	phaseSteps int
	bank       [][]float32
	hist       []complex64
	ptr        int
}

func NewInterpolator(phaseSteps int, sampleRate, cutoff float64, tapsPerPhase int) *Interpolator {
	ip := &Interpolator{}
	ip.Create(phaseSteps, sampleRate, cutoff, tapsPerPhase)
	return ip
}

// Create rebuilds the filter bank and clears the sample history. cutoff is
// in Hz at sampleRate.
func (ip *Interpolator) Create(phaseSteps int, sampleRate, cutoff float64, tapsPerPhase int) {
	if phaseSteps < 1 || tapsPerPhase < 1 || sampleRate <= 0 {
		panic("bad interpolator geometry")
	}
	proto := kaiserTaps(phaseSteps*tapsPerPhase, cutoff/(sampleRate*float64(phaseSteps)))
	ip.phaseSteps = phaseSteps
	ip.bank = make([][]float32, phaseSteps)
	for p := range ip.bank {
		row, sum := make([]float32, tapsPerPhase), float32(0)
		for k := range row {
			sum += proto[k*phaseSteps+p]
		}
		for k := range row {
			v := proto[k*phaseSteps+p]
			if sum != 0 {
				v /= sum
			}
			row[k] = v
		}
		ip.bank[p] = row
	}
	ip.hist = make([]complex64, tapsPerPhase)
	ip.ptr = 0
}

// Decimate consumes one input sample and emits at most one output. The
// caller adds the input/output ratio to distance after every emission.
func (ip *Interpolator) Decimate(distance *float64, next complex64) (complex64, bool) {
	ip.advance(next)
	*distance -= 1.0
	if *distance >= 1.0 {
		return 0, false
	}
	return ip.at(*distance), true
}

// Interpolate consumes one input sample and emits every output that falls
// before the next input, advancing distance by ratio per output. It handles
// ratios below one, where one input fans out to several outputs.
func (ip *Interpolator) Interpolate(distance *float64, ratio float64, next complex64, emit func(complex64)) {
	if ratio <= 0 {
		panic("bad interpolation ratio")
	}
	ip.advance(next)
	for *distance < 1.0 {
		emit(ip.at(*distance))
		*distance += ratio
	}
	*distance -= 1.0
}

func (ip *Interpolator) advance(next complex64) {
	if ip.ptr++; ip.ptr == len(ip.hist) {
		ip.ptr = 0
	}
	ip.hist[ip.ptr] = next
}

func (ip *Interpolator) at(frac float64) complex64 {
	phase := int(frac * float64(ip.phaseSteps))
	if phase < 0 {
		phase = 0
	} else if phase >= ip.phaseSteps {
		phase = ip.phaseSteps - 1
	}
	var acc complex64
	j := ip.ptr
	for _, c := range ip.bank[phase] {
		acc += ip.hist[j] * complex(c, 0)
		if j--; j < 0 {
			j = len(ip.hist) - 1
		}
	}
	return acc
}
