// Package rx runs a complete receiver: an IQ source, the channelizer, the
// FreeDV demodulator and an audio output, plus the optional status server
// and recordings.
package rx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/chzchzchz/freedvrx/audio"
	"github.com/chzchzchz/freedvrx/audio/oto"
	"github.com/chzchzchz/freedvrx/audio/pa"
	"github.com/chzchzchz/freedvrx/channelizer"
	"github.com/chzchzchz/freedvrx/config"
	"github.com/chzchzchz/freedvrx/demod"
	"github.com/chzchzchz/freedvrx/freedv"
	"github.com/chzchzchz/freedvrx/radio"
	"github.com/chzchzchz/freedvrx/spectrum"
	"github.com/chzchzchz/freedvrx/status"
	"github.com/chzchzchz/freedvrx/store"
)

type Options struct {
	// Codec defaults to freedv.New().
	Codec freedv.Codec
	// Output overrides the configured output kind.
	Output audio.Output
	Logger *log.Logger
}

type Receiver struct {
	cfg *config.Config
	log *log.Logger

	iqr        *radio.MixerIQReader
	closeInput func()
	channelHz  uint64
	started    time.Time

	chz   *channelizer.Channelizer
	demod *demod.Demod
	out   audio.Output
	scope *spectrum.Scope
	hub   *status.Hub
	store *store.RecordingStore
}

func New(ctx context.Context, cfg *config.Config, o Options) (_ *Receiver, err error) {
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	r := &Receiver{
		cfg:     cfg,
		log:     o.Logger.WithPrefix("rx"),
		scope:   spectrum.NewScope(cfg.Spectrum),
		started: time.Now(),
	}
	r.hub = status.NewHub(o.Logger.WithPrefix("status"))
	defer func() {
		if err != nil {
			r.Close()
		}
	}()

	if cfg.Recordings.Dir != "" {
		if r.store, err = store.NewRecordingStore(cfg.Recordings.Dir, cfg.Recordings.Pattern); err != nil {
			return nil, err
		}
	}

	if r.iqr, r.closeInput, err = OpenIQR(ctx, cfg.Input, r.log); err != nil {
		return nil, err
	}
	band := r.iqr.HzBand
	if band.Width == 0 {
		return nil, fmt.Errorf("%w: input rate unknown", radio.ErrRateOutOfRange)
	}
	s := cfg.Settings(band)
	r.channelHz = cfg.ChannelFrequency(band)

	if r.out = o.Output; r.out == nil {
		if r.out, err = r.openOutput(s.Mode); err != nil {
			return nil, err
		}
	}

	// The demod starts on the tuning it is about to request so the first
	// block needs no notification.
	tune := channelizer.Tune(int(band.Width), s.Mode.ModemSampleRate(), s.InputFrequencyOffset)
	var d *demod.Demod
	r.chz = channelizer.New(channelizer.Config{
		InputRate: int(band.Width),
		Logger:    o.Logger.WithPrefix("chan"),
		Notify: func(rate int, residual int64) {
			d.Post(demod.ChannelizerNotification{SampleRate: rate, FrequencyOffset: residual})
		},
	})
	r.chz.Configure(tune.Rate, s.InputFrequencyOffset)
	d, err = demod.New(demod.Options{
		Codec:                o.Codec,
		Output:               r.out,
		Channelizer:          r.chz,
		Spectrum:             r.scope,
		Logger:               o.Logger.WithPrefix("freedv"),
		InputSampleRate:      tune.Rate,
		InputFrequencyOffset: tune.Residual,
	}, s)
	if err != nil {
		return nil, err
	}
	r.demod = d
	r.log.Info("receiving",
		"input", cfg.Input.Path,
		"center", band.Center,
		"rate", band.Width,
		"channel", r.channelHz,
		"mode", s.Mode)
	return r, nil
}

func (r *Receiver) openOutput(m freedv.Mode) (audio.Output, error) {
	switch r.cfg.Output.Kind {
	case config.OutputPortAudio:
		o, err := pa.NewOutput()
		if err != nil {
			return nil, err
		}
		return o, nil
	case config.OutputOto:
		o, err := oto.NewOutput(r.cfg.Output.SampleRate)
		if err != nil {
			return nil, err
		}
		return o, nil
	case config.OutputWAV:
		path := r.cfg.Output.Path
		if path == "" {
			var err error
			if path, err = r.store.AudioPath(r.channelHz, m, r.started); err != nil {
				return nil, err
			}
		}
		fo := audio.NewFileOutput(path, r.cfg.Output.SampleRate)
		fo.Logger = r.log
		return fo, nil
	}
	return nil, fmt.Errorf("%w: output kind %q", config.ErrBadConfig, r.cfg.Output.Kind)
}

func (r *Receiver) Demod() *demod.Demod { return r.demod }

func (r *Receiver) Hub() *status.Hub { return r.hub }

// Run streams the input through the chain until the input ends or ctx is
// done. The end of the input is not an error.
func (r *Receiver) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go r.demod.Run(ctx)
	go r.reportLoop(ctx)
	if r.cfg.StatusAddr != "" {
		srv := &http.Server{
			Addr: r.cfg.StatusAddr,
			Handler: status.NewHandler(status.Config{
				Controller: r.demod,
				Hub:        r.hub,
				Scope:      r.scope,
				Store:      r.store,
				ChannelHz:  r.channelHz,
				Logger:     r.log.WithPrefix("http"),
			}),
		}
		go func() {
			r.log.Info("status server", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				r.log.Error("status server", "err", err)
			}
		}()
		go func() {
			<-ctx.Done()
			srv.Close()
		}()
	}

	batch := max(512, int(r.iqr.Width)/50)
	for samps := range r.chz.Run(ctx, r.iqr.BatchStream64(ctx, batch, 0)) {
		r.demod.Feed(samps)
	}
	r.report()
	if ctx.Err() != nil {
		return nil
	}
	if err := r.iqr.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}
	r.log.Info("input done", "elapsed", time.Since(r.started).Round(time.Millisecond))
	return nil
}

func (r *Receiver) reportLoop(ctx context.Context) {
	t := time.NewTicker(r.cfg.ReportInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.report()
		}
	}
}

func (r *Receiver) report() {
	rep := r.demod.Report()
	r.hub.Broadcast(rep)
	r.log.Info("report",
		"mode", rep.Mode,
		"sync", rep.Stats.Sync,
		"snr", fmt.Sprintf("%.1f", rep.SNRAvgDB),
		"ber", rep.Stats.BER,
		"frames", rep.Stats.FrameCount,
		"power", fmt.Sprintf("%.1f", rep.ChannelPowerDB))
}

// Close stops the audio and releases the input. A waterfall of the session
// is saved next to the recordings.
func (r *Receiver) Close() error {
	var err error
	if r.demod != nil {
		err = r.demod.Close()
	}
	if r.out != nil {
		if cerr := r.out.Close(); err == nil {
			err = cerr
		}
	}
	if r.chz != nil {
		r.chz.Close()
	}
	if r.closeInput != nil {
		r.closeInput()
	}
	if r.store != nil && r.demod != nil && r.scope.Frames() > 0 {
		if werr := r.saveWaterfall(); err == nil {
			err = werr
		}
	}
	r.hub.Close()
	return err
}

func (r *Receiver) saveWaterfall() error {
	path, err := r.store.WaterfallPath(r.channelHz, r.demod.Settings().Mode, r.started)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	r.log.Info("waterfall", "path", path)
	return r.scope.WriteJPEG(f)
}
