// Package pa plays audio fifos through PortAudio.
package pa

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"

	"github.com/chzchzchz/freedvrx/audio"
)

const framesPerBuffer = 1024

type Device struct {
	Name       string
	SampleRate int
	Default    bool
}

// Devices lists devices with at least two output channels.
func Devices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	defer portaudio.Terminate()
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	def, _ := portaudio.DefaultOutputDevice()
	var ret []Device
	for _, d := range devs {
		if d.MaxOutputChannels < 2 {
			continue
		}
		ret = append(ret, Device{
			Name:       d.Name,
			SampleRate: int(d.DefaultSampleRate),
			Default:    def != nil && d.Name == def.Name,
		})
	}
	return ret, nil
}

// Output is a PortAudio stereo int16 output. Rebinding closes the previous
// stream first.
type Output struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	name   string
	fifo   *audio.Fifo
	init   bool
	log    *log.Logger
}

func NewOutput() (*Output, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	return &Output{init: true, log: log.Default().WithPrefix("pa")}, nil
}

func findDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == "" || name == "default" {
		return portaudio.DefaultOutputDevice()
	}
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, d := range devs {
		if d.Name == name && d.MaxOutputChannels >= 2 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", audio.ErrNoDevice, name)
}

func (o *Output) Bind(name string, fifo *audio.Fifo) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.init {
		return 0, audio.ErrClosed
	}
	dev, err := findDevice(name)
	if err != nil {
		return 0, err
	}
	if o.stream != nil && o.name == dev.Name && o.fifo == fifo {
		return int(dev.DefaultSampleRate), nil
	}
	if err := o.closeStream(); err != nil {
		o.log.Warn("closing stream", "device", o.name, "err", err)
	}

	p := portaudio.HighLatencyParameters(nil, dev)
	p.Output.Channels = 2
	p.SampleRate = dev.DefaultSampleRate
	p.FramesPerBuffer = framesPerBuffer
	s, err := portaudio.OpenStream(p, func(out []int16) { fifo.ReadInt16(out) })
	if err != nil {
		return 0, err
	}
	if err := s.Start(); err != nil {
		s.Close()
		return 0, err
	}
	o.stream, o.name, o.fifo = s, dev.Name, fifo
	o.log.Info("bound", "device", dev.Name, "rate", dev.DefaultSampleRate)
	return int(dev.DefaultSampleRate), nil
}

func (o *Output) closeStream() error {
	if o.stream == nil {
		return nil
	}
	s := o.stream
	o.stream, o.fifo = nil, nil
	if err := s.Stop(); err != nil {
		s.Close()
		return err
	}
	return s.Close()
}

func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.init {
		return nil
	}
	err := o.closeStream()
	o.init = false
	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	return err
}
