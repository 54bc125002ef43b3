package dsp

import (
	"math"
	"math/cmplx"

	"github.com/runningwild/go-fftw/fftw32"
)

// FFTFilter is an overlap-add band-pass filter working in blocks of half the
// FFT size. Cutoffs are normalized to the sample rate; negative frequencies
// are the lower sideband.
type FFTFilter struct {
	size int
	half int

	filter []complex64
	data   *fftw32.Array
	fwd    *fftw32.Plan
	inv    *fftw32.Plan
	ovl    []complex64
	out    []complex64
	inptr  int
}

func NewFFTFilter(low, high float64, size int) *FFTFilter {
	if size < 4 || size%2 != 0 {
		panic("bad fft filter size")
	}
	f := &FFTFilter{
		size:   size,
		half:   size / 2,
		filter: make([]complex64, size),
		data:   fftw32.NewArray(size),
		ovl:    make([]complex64, size/2),
		out:    make([]complex64, size/2),
	}
	f.fwd = fftw32.NewPlan(f.data, f.data, fftw32.Forward, fftw32.Estimate)
	f.inv = fftw32.NewPlan(f.data, f.data, fftw32.Backward, fftw32.Estimate)
	f.CreateFilter(low, high)
	return f
}

func (f *FFTFilter) Size() int { return f.size }

// CreateFilter rebuilds the frequency mask and drops any buffered samples.
func (f *FFTFilter) CreateFilter(low, high float64) {
	imp := fftw32.NewArray(f.size)
	lowpass, highpass := high != 0, low != 0
	for i := 0; i < f.half; i++ {
		v := 0.0
		if lowpass {
			v += fsinc(high, i, f.half)
		}
		if highpass {
			v -= fsinc(low, i, f.half)
		}
		imp.Elems[i] = complex(float32(v), 0)
	}
	if highpass && high < low {
		imp.Elems[f.half/2] += 1
	}
	for i := 0; i < f.half; i++ {
		imp.Elems[i] *= complex(float32(blackman(i, f.half)), 0)
	}
	spec := fftw32.FFT(imp)

	scale := 0.0
	for i := 0; i < f.half; i++ {
		if m := cmplx.Abs(complex128(spec.Elems[i])); m > scale {
			scale = m
		}
	}
	for i, v := range spec.Elems {
		if scale != 0 {
			v /= complex(float32(scale), 0)
		}
		f.filter[i] = v
	}

	clear(f.data.Elems)
	clear(f.ovl)
	f.inptr = 0
}

// RunSSB pushes one sample. It returns nil until a block completes, then
// half the FFT size of filtered samples keeping only the upper (usb) or
// lower sideband. The returned slice is reused by the next block.
func (f *FFTFilter) RunSSB(in complex64, usb bool) []complex64 {
	if !f.push(in) {
		return nil
	}
	d := f.data.Elems
	for i := 0; i < f.half; i++ {
		if usb {
			d[i] *= f.filter[i]
			d[f.half+i] = 0
		} else {
			d[i] = 0
			d[f.half+i] *= f.filter[f.half+i]
		}
	}
	return f.finish()
}

// RunDSB is RunSSB keeping both sidebands.
func (f *FFTFilter) RunDSB(in complex64) []complex64 {
	if !f.push(in) {
		return nil
	}
	d := f.data.Elems
	for i := range d {
		d[i] *= f.filter[i]
	}
	return f.finish()
}

func (f *FFTFilter) push(in complex64) bool {
	f.data.Elems[f.inptr] = in
	if f.inptr++; f.inptr < f.half {
		return false
	}
	f.inptr = 0
	f.fwd.Execute()
	return true
}

func (f *FFTFilter) finish() []complex64 {
	f.inv.Execute()
	d, scale := f.data.Elems, complex(1/float32(f.size), 0)
	for i := 0; i < f.half; i++ {
		f.out[i] = f.ovl[i] + d[i]*scale
		f.ovl[i] = d[f.half+i] * scale
	}
	clear(d)
	return f.out
}

func (f *FFTFilter) Close() {
	f.fwd.Destroy()
	f.inv.Destroy()
}

func fsinc(fc float64, i, n int) float64 {
	x := float64(i - n/2)
	if x == 0 {
		return 2 * fc
	}
	return math.Sin(2*math.Pi*fc*x) / (math.Pi * x)
}

func blackman(i, n int) float64 {
	x := float64(i) / float64(n)
	return 0.42 - 0.50*math.Cos(2*math.Pi*x) + 0.08*math.Cos(4*math.Pi*x)
}
