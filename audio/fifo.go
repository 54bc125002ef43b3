// Package audio carries demodulated stereo audio from the pipeline to a
// playback device or a file.
package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"sync"
)

// FrameSize is the size of one interleaved s16le stereo frame.
const FrameSize = 4

var (
	ErrNoDevice = errors.New("no such audio device")
	ErrClosed   = errors.New("audio output closed")
)

// Sink accepts interleaved s16le stereo frames without blocking and returns
// how many bytes it took. Partial frames are never taken.
type Sink interface {
	Write(p []byte) int
}

// Output binds a fifo to a playback device and reports the device rate.
type Output interface {
	Bind(device string, fifo *Fifo) (sampleRate int, err error)
	Close() error
}

// Fifo is a bounded ring of stereo frames. Writers never block; readers
// either block (Read) or take what is there (ReadInt16).
type Fifo struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	r      int
	n      int
	closed bool
	// scratch holds raw bytes for ReadInt16 between callbacks.
	scratch []byte
}

func NewFifo(frames int) *Fifo {
	f := &Fifo{}
	f.cond = sync.NewCond(&f.mu)
	f.SetSize(frames)
	return f
}

// SetSize resizes the ring to hold frames frames, dropping its contents.
func (f *Fifo) SetSize(frames int) {
	if frames < 1 {
		frames = 1
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buf, f.r, f.n = make([]byte, frames*FrameSize), 0, 0
	f.cond.Broadcast()
}

// Size is the capacity in frames.
func (f *Fifo) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.buf) / FrameSize
}

// Len is the number of buffered frames.
func (f *Fifo) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n / FrameSize
}

func (f *Fifo) Write(p []byte) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0
	}
	free := len(f.buf) - f.n
	want := len(p) - len(p)%FrameSize
	if want > free {
		want = free
	}
	w := (f.r + f.n) % len(f.buf)
	c := copy(f.buf[w:], p[:want])
	copy(f.buf, p[c:want])
	f.n += want
	if want > 0 {
		f.cond.Broadcast()
	}
	return want
}

// Read blocks until at least one frame is buffered and returns whole
// frames. It returns io.EOF once the fifo is closed and drained.
func (f *Fifo) Read(p []byte) (int, error) {
	if len(p) < FrameSize {
		return 0, io.ErrShortBuffer
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.n == 0 && !f.closed {
		f.cond.Wait()
	}
	if f.n == 0 {
		return 0, io.EOF
	}
	return f.take(p[:len(p)-len(p)%FrameSize]), nil
}

// ReadInt16 fills out with interleaved samples without blocking, padding
// with silence on underrun. It returns the number of samples that were real.
func (f *Fifo) ReadInt16(out []int16) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cap(f.scratch) < 2*len(out) {
		f.scratch = make([]byte, 2*len(out))
	}
	raw := f.scratch[:2*len(out)]
	n := f.take(raw[:len(raw)-len(raw)%FrameSize])
	for i := range out {
		out[i] = 0
		if 2*i+1 < n {
			out[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
		}
	}
	return n / 2
}

func (f *Fifo) take(p []byte) int {
	want := len(p)
	if want > f.n {
		want = f.n
	}
	c := copy(p[:want], f.buf[f.r:])
	copy(p[c:want], f.buf)
	f.r = (f.r + want) % len(f.buf)
	f.n -= want
	return want
}

// Close wakes blocked readers; later writes are dropped.
func (f *Fifo) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.cond.Broadcast()
}
