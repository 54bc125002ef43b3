package wav

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chzchzchz/freedvrx/radio"
)

func TestWriterReaderIQ16(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iq.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := NewWriter(f, 48000, 16, 2)
	require.NoError(t, err)
	iqw := radio.NewIQWriterFormat(w, radio.FormatS16)
	require.NoError(t, iqw.Write64([]complex64{complex(0.5, -0.5), complex(0.25, 0)}))
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	fin, err := os.Open(path)
	require.NoError(t, err)
	defer fin.Close()
	r, err := NewReader(fin)
	require.NoError(t, err)
	assert.Equal(t, 48000, r.SampleRate())
	assert.Equal(t, 16, r.BitDepth())
	format, err := r.IQFormat()
	require.NoError(t, err)
	assert.Equal(t, radio.FormatS16, format)

	var got []complex64
	for b := range radio.NewIQReaderFormat(r, format).Batch64(1, 0) {
		got = append(got, b...)
	}
	assert.Equal(t, []complex64{complex(0.5, -0.5), complex(0.25, 0)}, got)
}

func TestReaderSkipsUnknownChunks(t *testing.T) {
	var buf bytes.Buffer
	le := binary.LittleEndian
	buf.WriteString("RIFF")
	binary.Write(&buf, le, uint32(0))
	buf.WriteString("WAVE")
	buf.WriteString("auxi")
	binary.Write(&buf, le, uint32(3))
	buf.Write([]byte{1, 2, 3, 0})
	buf.WriteString("fmt ")
	binary.Write(&buf, le, uint32(18))
	binary.Write(&buf, le, fmtChunk{1, 2, 240000, 480000, 2, 8})
	buf.Write([]byte{0, 0})
	buf.WriteString("data")
	binary.Write(&buf, le, uint32(4))
	buf.Write([]byte{127, 127, 255, 255, 9, 9})

	r, err := NewReader(&buf)
	require.NoError(t, err)
	format, err := r.IQFormat()
	require.NoError(t, err)
	assert.Equal(t, radio.FormatU8, format)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []byte{127, 127, 255, 255}, data)
}

func TestReaderRejectsMono(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewWriter(&buf, 8000, 16, 1)
	require.NoError(t, err)
	r, err := NewReader(&buf)
	require.NoError(t, err)
	_, err = r.IQFormat()
	assert.ErrorIs(t, err, radio.ErrBadFormat)

	_, err = NewReader(bytes.NewReader([]byte("RIFX\x00\x00\x00\x00WAVE")))
	assert.ErrorIs(t, err, radio.ErrBadFormat)
}
