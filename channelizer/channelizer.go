// Package channelizer selects one narrow channel out of a wideband IQ stream
// using liquid-dsp: a coarse mix to near DC, a lowpass, then a rational
// resampler down to the channel rate.
package channelizer

/*
#cgo LDFLAGS: -lliquid
#include <liquid/liquid.h>
*/
import "C"

import (
	"context"
	"math"
	"sync"
	"unsafe"

	"github.com/charmbracelet/log"
)

type Config struct {
	InputRate int
	Logger    *log.Logger
	// Notify is called from Process after each rebuild with the delivered
	// rate and the offset left for the demodulator to remove.
	Notify func(sampleRate int, frequencyOffset int64)
}

type Channelizer struct {
	cfg Config

	mu     sync.Mutex
	rate   int
	offset int64
	dirty  bool

	tune Tuning
	nco  C.nco_crcf
	lp   C.firfilt_crcf
	rs   C.resamp_crcf
	out  []complex64
}

func New(cfg Config) *Channelizer {
	if cfg.Logger == nil {
		cfg.Logger = log.Default().WithPrefix("chan")
	}
	return &Channelizer{cfg: cfg, rate: cfg.InputRate}
}

// Configure requests a channel rate and center offset. The chain is rebuilt
// before the next block.
func (c *Channelizer) Configure(sampleRate int, frequencyOffset int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rate, c.offset, c.dirty = sampleRate, frequencyOffset, true
}

func (c *Channelizer) rebuild() {
	c.mu.Lock()
	c.tune = Tune(c.cfg.InputRate, c.rate, c.offset)
	c.dirty = false
	c.mu.Unlock()

	c.destroy()
	t := c.tune
	c.nco = C.nco_crcf_create(C.LIQUID_NCO)
	C.nco_crcf_set_phase(c.nco, C.float(0))
	radiansPerSample := float64(t.Coarse) * (2.0 * math.Pi / float64(c.cfg.InputRate))
	if radiansPerSample < 0 {
		radiansPerSample += 2.0 * math.Pi
	}
	C.nco_crcf_set_frequency(c.nco, C.float(radiansPerSample))
	if t.Decimating() {
		cutoff := 0.45 * float64(t.Rate) / float64(c.cfg.InputRate)
		c.lp = C.firfilt_crcf_create_kaiser(64, C.float(cutoff), C.float(70.0), C.float(0.0))
		C.firfilt_crcf_set_scale(c.lp, C.float(2.0*cutoff))
		c.rs = C.resamp_crcf_create_default(C.float(t.Ratio()))
	}
	c.cfg.Logger.Info("channel", "rate", t.Rate, "coarse", t.Coarse, "residual", t.Residual)
	if c.cfg.Notify != nil {
		c.cfg.Notify(t.Rate, t.Residual)
	}
}

func (c *Channelizer) destroy() {
	if c.nco != nil {
		C.nco_crcf_destroy(c.nco)
		c.nco = nil
	}
	if c.lp != nil {
		C.firfilt_crcf_destroy(c.lp)
		c.lp = nil
	}
	if c.rs != nil {
		C.resamp_crcf_destroy(c.rs)
		c.rs = nil
	}
}

// Process channelizes one block. The returned slice is reused by the next
// call.
func (c *Channelizer) Process(samp []complex64) []complex64 {
	c.mu.Lock()
	dirty := c.dirty || c.nco == nil
	c.mu.Unlock()
	if dirty {
		c.rebuild()
	}
	if len(samp) == 0 {
		return nil
	}
	n := len(samp)
	if need := int(math.Ceil((c.tune.Ratio() + 1.0) * float64(n))); cap(c.out) < need+n {
		c.out = make([]complex64, need+n)
	}
	mixed := c.out[:n]
	C.nco_crcf_mix_block_down(
		c.nco,
		(*C.complexfloat)(unsafe.Pointer(&samp[0])),
		(*C.complexfloat)(unsafe.Pointer(&mixed[0])),
		C.uint(n))
	if c.lp == nil {
		return mixed
	}
	for i := range mixed {
		C.firfilt_crcf_push(c.lp, C.complexfloat(mixed[i]))
		var y C.complexfloat
		C.firfilt_crcf_execute(c.lp, &y)
		mixed[i] = complex64(y)
	}
	out := c.out[n:cap(c.out)]
	var outlen C.uint
	C.resamp_crcf_execute_block(c.rs,
		(*C.complexfloat)(unsafe.Pointer(&mixed[0])),
		C.uint(n),
		(*C.complexfloat)(unsafe.Pointer(&out[0])),
		&outlen)
	return out[:outlen]
}

// Run channelizes every block from sigc. Output blocks are copies.
func (c *Channelizer) Run(ctx context.Context, sigc <-chan []complex64) <-chan []complex64 {
	outc := make(chan []complex64, 1)
	go func() {
		defer close(outc)
		for samp := range sigc {
			out := append([]complex64(nil), c.Process(samp)...)
			select {
			case outc <- out:
			case <-ctx.Done():
				return
			}
		}
	}()
	return outc
}

func (c *Channelizer) Close() { c.destroy() }
