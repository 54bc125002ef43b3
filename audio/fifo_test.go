package audio

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frames(start, n int) []byte {
	p := make([]byte, n*FrameSize)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(p[i*FrameSize:], uint16(start+i))
		binary.LittleEndian.PutUint16(p[i*FrameSize+2:], uint16(start+i))
	}
	return p
}

func TestFifoShortWrite(t *testing.T) {
	f := NewFifo(10)
	assert.Equal(t, 8*FrameSize, f.Write(frames(0, 8)))
	assert.Equal(t, 2*FrameSize, f.Write(frames(8, 8)))
	assert.Equal(t, 0, f.Write(frames(16, 1)))
	assert.Equal(t, 10, f.Len())

	// partial frames are never taken
	f.SetSize(4)
	assert.Equal(t, FrameSize, f.Write(make([]byte, FrameSize+3)))
}

func TestFifoReadInt16Underrun(t *testing.T) {
	f := NewFifo(16)
	f.Write(frames(100, 2))
	out := make([]int16, 8)
	assert.Equal(t, 4, f.ReadInt16(out))
	assert.Equal(t, []int16{100, 100, 101, 101, 0, 0, 0, 0}, out)
	assert.Equal(t, 0, f.Len())
}

func TestFifoReadInt16NoAlloc(t *testing.T) {
	f := NewFifo(1024)
	in, out := frames(0, 256), make([]int16, 512)
	f.ReadInt16(out)
	allocs := testing.AllocsPerRun(100, func() {
		f.Write(in)
		f.ReadInt16(out)
	})
	assert.Zero(t, allocs)
	assert.Equal(t, int16(255), out[511])
}

func TestFifoConcurrentReadWrite(t *testing.T) {
	const total = 50000
	f := NewFifo(1024)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for sent := 0; sent < total; {
			n := min(97, total-sent)
			sent += f.Write(frames(sent, n)) / FrameSize
		}
		f.Close()
	}()

	got, buf := 0, make([]byte, 61*FrameSize)
	for {
		n, err := f.Read(buf)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.Zero(t, n%FrameSize)
		for i := 0; i < n; i += FrameSize {
			require.Equal(t, uint16(got), binary.LittleEndian.Uint16(buf[i:]))
			got++
		}
	}
	wg.Wait()
	assert.Equal(t, total, got)
}

func TestFileOutputRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	o := NewFileOutput(path, 48000)
	fifo := NewFifo(48000)
	rate, err := o.Bind("ignored", fifo)
	require.NoError(t, err)
	assert.Equal(t, 48000, rate)

	_, err = o.Bind("other", NewFifo(10))
	assert.Error(t, err)

	for i := 0; i < 10; i++ {
		require.Equal(t, 480*FrameSize, fifo.Write(frames(i*480, 480)))
	}
	require.NoError(t, o.Close())

	fin, err := os.Open(path)
	require.NoError(t, err)
	defer fin.Close()
	d := wav.NewDecoder(fin)
	require.True(t, d.IsValidFile())
	buf, err := d.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, uint16(2), d.NumChans)
	assert.Equal(t, uint32(48000), d.SampleRate)
	assert.Len(t, buf.Data, 2*4800)
	assert.Equal(t, 4799, buf.Data[len(buf.Data)-1])
}
