// Package demod turns a complex baseband channel into FreeDV speech audio.
//
// Samples enter through Feed at the channel rate. They are shifted by the
// channel offset, resampled to the modem rate, band limited to the mode's
// sideband, gain controlled and squelched, then handed to the codec in
// frames of whatever length it asks for. Decoded 8kHz speech is up-sampled
// to the device rate and written to an audio fifo.
//
// Reconfiguration arrives as Messages through Post and is applied by Run
// between Feed blocks.
package demod

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/chzchzchz/freedvrx/audio"
	"github.com/chzchzchz/freedvrx/dsp"
	"github.com/chzchzchz/freedvrx/freedv"
)

const (
	ssbFFTLen        = 1024
	agcTarget        = 3276.8
	interpPhaseSteps = 16
	interpTaps       = 2
	msgQueueLen      = 64
	// gain applied when the AGC is off
	fixedGain = 10.0
)

var ErrNoOutput = errors.New("demod: no audio output")

// Channelizer selects the channel out of a wider stream.
type Channelizer interface {
	Configure(sampleRate int, frequencyOffset int64)
}

// SpectrumSink receives the decimated filtered channel once per block.
type SpectrumSink interface {
	Feed(samples []complex64)
}

type Options struct {
	Codec freedv.Codec
	// Output is bound to Settings.AudioDevice.
	Output      audio.Output
	Channelizer Channelizer
	Spectrum    SpectrumSink
	Logger      *log.Logger

	InputSampleRate      int
	InputFrequencyOffset int64
}

type Demod struct {
	mu sync.Mutex

	codec    freedv.Codec
	output   audio.Output
	chz      Channelizer
	spectrum SpectrumSink
	log      *log.Logger
	msgs     chan Message
	pending  []Message

	settings Settings

	inputRate   int
	inputOffset int64
	modemRate   int
	lowCutoff   float64
	hiCutoff    float64
	spanLog2    int
	dsb         bool

	nco        dsp.NCO
	interp     *dsp.Interpolator
	distance   float64
	distRemain float64
	filter     *dsp.FFTFilter
	filterEmit func(complex64)

	agc         *dsp.MagAGC
	agcActive   bool
	agcNb       int
	agcGate     int
	delay       *dsp.DelayLine
	audioActive bool

	tapSum      complex64
	undersample uint
	tap         []complex64
	magsq       float64
	magsqSum    float64
	magsqPeak   float64
	magsqCount  int

	bridge voiceBridge

	audioRate int
	fifo      *audio.Fifo
	resampler *dsp.AudioResampler
	writer    *audioWriter
	speech    func(int16)
}

func New(o Options, s Settings) (*Demod, error) {
	if o.Output == nil {
		return nil, ErrNoOutput
	}
	if o.Codec == nil {
		o.Codec = freedv.New()
	}
	if o.Logger == nil {
		o.Logger = log.Default().WithPrefix("freedv")
	}
	if o.InputSampleRate <= 0 {
		o.InputSampleRate = 48000
	}
	d := &Demod{
		codec:     o.Codec,
		output:    o.Output,
		chz:       o.Channelizer,
		spectrum:  o.Spectrum,
		log:       o.Logger,
		msgs:      make(chan Message, msgQueueLen),
		inputRate: o.InputSampleRate,
		interp:    &dsp.Interpolator{},
		filter:    dsp.NewFFTFilter(0, 0.125, ssbFFTLen),
		agc:       dsp.NewMagAGC(1, agcTarget, 0),
		delay:     dsp.NewDelayLine(1),
		fifo:      audio.NewFifo(48000),
		resampler: dsp.NewAudioResampler(),
		spanLog2:  1,
	}
	d.agc.SetStepDownDelay(1)
	d.agc.SetClampMax(dsp.FullScale / 100)
	d.writer = newAudioWriter(d.fifo, d.log)
	d.filterEmit = d.filterSample
	d.speech = d.pushSpeech
	d.hiCutoff = s.Mode.HighCutoff()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.applyAudioSampleRate(48000)
	d.applyChannelSettings(o.InputSampleRate, o.InputFrequencyOffset, true)
	d.applySettings(s, true)
	for _, m := range d.pending {
		d.msgs <- m
	}
	d.pending = nil
	return d, nil
}

// Post queues a control message for Run. Messages apply in order.
func (d *Demod) Post(m Message) { d.msgs <- m }

func (d *Demod) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-d.msgs:
			d.handleMessage(m)
		}
	}
}

func (d *Demod) handleMessage(m Message) {
	switch m := m.(type) {
	case ConfigureSettings:
		d.mu.Lock()
		d.applySettings(m.Settings, m.Force)
		pending := d.pending
		d.pending = nil
		d.mu.Unlock()
		for _, p := range pending {
			select {
			case d.msgs <- p:
			default:
				d.handleMessage(p)
			}
		}
	case ConfigureChannelizer:
		if d.chz == nil {
			d.log.Debug("no channelizer", "rate", m.SampleRate, "offset", m.FrequencyOffset)
			return
		}
		d.log.Debug("configure channelizer", "rate", m.SampleRate, "offset", m.FrequencyOffset)
		d.chz.Configure(m.SampleRate, m.FrequencyOffset)
	case ChannelizerNotification:
		d.mu.Lock()
		d.applyChannelSettings(m.SampleRate, m.FrequencyOffset, false)
		d.mu.Unlock()
	case AudioRateChanged:
		d.mu.Lock()
		if m.SampleRate != d.audioRate {
			d.applyAudioSampleRate(m.SampleRate)
		}
		d.mu.Unlock()
	case Resync:
		d.mu.Lock()
		d.bridge.unsync()
		d.mu.Unlock()
	default:
		panic("unknown demod message")
	}
}

// Feed runs one block of channel samples, normalized to [-1, 1), through
// the chain. The slice is not retained.
func (d *Demod) Feed(samples []complex64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range samples {
		c := s * complex(dsp.FullScale, 0) * d.nco.NextIQ()
		if d.distance >= 1 {
			if ci, ok := d.interp.Decimate(&d.distRemain, c); ok {
				d.filterSample(ci)
				d.distRemain += d.distance
			}
		} else {
			d.interp.Interpolate(&d.distRemain, d.distance, c, d.filterEmit)
		}
	}
	d.writer.flush()
	if d.spectrum != nil && len(d.tap) > 0 {
		d.spectrum.Feed(d.tap)
	}
	d.tap = d.tap[:0]
}

func (d *Demod) filterSample(ci complex64) {
	var out []complex64
	if d.dsb {
		out = d.filter.RunDSB(ci)
	} else {
		out = d.filter.RunSSB(ci, true)
	}
	for _, s := range out {
		d.tapSample(s)
		d.demodSample(s)
	}
}

func (d *Demod) tapSample(s complex64) {
	decim := uint(1) << (d.spanLog2 - 1)
	d.tapSum += s
	if d.undersample&(decim-1) == 0 {
		avg := d.tapSum / complex(float32(decim), 0)
		re, im := float64(real(avg)), float64(imag(avg))
		d.magsq = (re*re + im*im) / (dsp.FullScale * dsp.FullScale)
		d.magsqSum += d.magsq
		d.magsqPeak = max(d.magsqPeak, d.magsq)
		d.magsqCount++
		d.tap = append(d.tap, avg)
		d.tapSum = 0
	}
	d.undersample++
}

func (d *Demod) demodSample(s complex64) {
	gain, step := fixedGain, 1.0
	if d.agcActive {
		gain, step = d.agc.FeedAndGetValue(s), d.agc.StepValue()
	}
	delayed := d.delay.ReadBack(d.agc.StepDownDelay())
	d.audioActive = real(delayed) != 0
	d.delay.Write(s * complex(float32(gain), 0))
	z := delayed * complex(float32(step), 0)
	d.bridge.push(dsp.Saturate16(float64(real(z)+imag(z))*0.7), d.speech)
}

func (d *Demod) pushSpeech(s int16) {
	for {
		out, done := d.resampler.UpSample(s)
		d.writer.push(out)
		if done {
			return
		}
	}
}

// Close releases the codec session and filter.
func (d *Demod) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bridge.close()
	d.filter.Close()
	d.fifo.Close()
	return nil
}

// Fifo is the audio fifo bound to the output.
func (d *Demod) Fifo() *audio.Fifo { return d.fifo }

func (d *Demod) Settings() Settings {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settings
}
