// Package oto plays audio fifos through the oto v3 context. Oto allows one
// context per process at a fixed rate, so every bind plays at that rate.
package oto

import (
	"sync"

	"github.com/charmbracelet/log"
	otov3 "github.com/ebitengine/oto/v3"

	"github.com/chzchzchz/freedvrx/audio"
)

type Output struct {
	SampleRate int

	mu     sync.Mutex
	ctx    *otov3.Context
	player *otov3.Player
	fifo   *audio.Fifo
	closed bool
	log    *log.Logger
}

func NewOutput(sampleRate int) (*Output, error) {
	ctx, ready, err := otov3.NewContext(&otov3.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       otov3.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready
	return &Output{
		SampleRate: sampleRate,
		ctx:        ctx,
		log:        log.Default().WithPrefix("oto"),
	}, nil
}

// Bind ignores the device name; oto always plays on the system default.
func (o *Output) Bind(name string, fifo *audio.Fifo) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return 0, audio.ErrClosed
	}
	if o.fifo == fifo {
		return o.SampleRate, nil
	}
	if o.player != nil {
		if err := o.player.Close(); err != nil {
			o.log.Warn("closing player", "err", err)
		}
	}
	o.fifo = fifo
	o.player = o.ctx.NewPlayer(fifo)
	o.player.Play()
	o.log.Info("bound", "device", name, "rate", o.SampleRate)
	return o.SampleRate, nil
}

func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	if o.player == nil {
		return nil
	}
	o.fifo.Close()
	return o.player.Close()
}
