package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// FileOutput records whatever fifo is bound to it into a 16-bit stereo WAV
// file at a fixed rate. The device name is ignored.
type FileOutput struct {
	Path       string
	SampleRate int
	Logger     *log.Logger

	mu    sync.Mutex
	fifo  *Fifo
	done  chan error
	f     *os.File
	enc   *wav.Encoder
	bound bool
}

func NewFileOutput(path string, sampleRate int) *FileOutput {
	return &FileOutput{
		Path:       path,
		SampleRate: sampleRate,
		Logger:     log.Default().WithPrefix("wav"),
	}
}

func (o *FileOutput) Bind(_ string, fifo *Fifo) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fifo == fifo {
		return o.SampleRate, nil
	}
	if o.bound {
		return 0, fmt.Errorf("%s: already recording another stream", o.Path)
	}
	f, err := os.OpenFile(o.Path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return 0, err
	}
	o.f, o.fifo, o.bound = f, fifo, true
	o.enc = wav.NewEncoder(f, o.SampleRate, 16, 2, 1)
	o.done = make(chan error, 1)
	go func() { o.done <- o.drain() }()
	o.Logger.Info("recording", "path", o.Path, "rate", o.SampleRate)
	return o.SampleRate, nil
}

func (o *FileOutput) drain() error {
	raw := make([]byte, 4096*FrameSize)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: o.SampleRate},
		SourceBitDepth: 16,
	}
	for {
		n, err := o.fifo.Read(raw)
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}
		buf.Data = buf.Data[:0]
		for i := 0; i+1 < n; i += 2 {
			buf.Data = append(buf.Data, int(int16(binary.LittleEndian.Uint16(raw[i:]))))
		}
		if err := o.enc.Write(buf); err != nil {
			return err
		}
	}
}

// Close stops the recording and finalizes the WAV header. The bound fifo is
// closed so the drain sees the end of the stream.
func (o *FileOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.bound {
		return nil
	}
	o.fifo.Close()
	err := <-o.done
	if cerr := o.enc.Close(); err == nil {
		err = cerr
	}
	if cerr := o.f.Close(); err == nil {
		err = cerr
	}
	o.bound = false
	return err
}
