package dsp

/*
#cgo LDFLAGS: -lliquid
#include <liquid/liquid.h>
static void firfilt_rrrf_upsample(
	firfilt_rrrf q, float x, float *out, unsigned n)
{
	for (unsigned i = 0; i < n; i++) {
		firfilt_rrrf_push(q, i == 0 ? x : 0.0f);
		firfilt_rrrf_execute(q, &out[i]);
	}
}
*/
import "C"

import (
	"math"
	"runtime"
	"unsafe"
)

const kaiserAs = 60.0

// kaiserTaps designs an n-tap kaiser lowpass with unity DC gain. cutoff is
// normalized to the sample rate.
func kaiserTaps(n int, cutoff float64) []float32 {
	cutoff = min(max(cutoff, 1e-4), 0.499)
	h := make([]float32, n)
	C.liquid_firdes_kaiser(C.uint(n), C.float(cutoff), C.float(kaiserAs), C.float(0.0),
		(*C.float)(unsafe.Pointer(&h[0])))
	sum := float32(0)
	for _, v := range h {
		sum += v
	}
	if sum != 0 {
		for i := range h {
			h[i] /= sum
		}
	}
	return h
}

// bandpassTaps shifts a kaiser lowpass up to the center of [low, high] so
// the band center has unity gain. Edges are normalized to the sample rate.
func bandpassTaps(n int, low, high float64) []float32 {
	h := kaiserTaps(n, (high-low)/2)
	w, mid := 2*math.Pi*(low+high)/2, float64(n-1)/2
	for i := range h {
		h[i] *= float32(2 * math.Cos(w*(float64(i)-mid)))
	}
	return h
}

// upFilter is a liquid firfilt_rrrf fed one input and n-1 zeros per call.
type upFilter struct {
	q   C.firfilt_rrrf
	out []float32
}

func newUpFilter(taps []float32) *upFilter {
	f := &upFilter{q: C.firfilt_rrrf_create((*C.float)(unsafe.Pointer(&taps[0])), C.uint(len(taps)))}
	runtime.SetFinalizer(f, func(f *upFilter) { C.firfilt_rrrf_destroy(f.q) })
	return f
}

// run returns n filtered samples for x followed by n-1 zeros. The slice is
// reused by the next call.
func (f *upFilter) run(x float32, n int) []float32 {
	if cap(f.out) < n {
		f.out = make([]float32, n)
	}
	out := f.out[:n]
	C.firfilt_rrrf_upsample(f.q, C.float(x), (*C.float)(unsafe.Pointer(&out[0])), C.uint(n))
	return out
}
