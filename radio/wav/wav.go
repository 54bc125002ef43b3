// Package wav streams two-channel I/Q recordings in RIFF WAVE containers.
package wav

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/chzchzchz/freedvrx/radio"
)

type riffHeader struct {
	ChunkId   [4]byte
	ChunkSize uint32
	Format    [4]byte
}

type chunkHeader struct {
	ChunkId   [4]byte
	ChunkSize uint32
}

type fmtChunk struct {
	AudioFormat   uint16 /* 1 */
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// Reader yields the raw sample bytes of the data chunk.
type Reader struct {
	io.Reader
	fh fmtChunk
}

// NewReader parses headers up to the data chunk, skipping chunks it does
// not know (SDRangel writes an "auxi" chunk).
func NewReader(r io.Reader) (*Reader, error) {
	var rh riffHeader
	if err := binary.Read(r, binary.LittleEndian, &rh); err != nil {
		return nil, err
	}
	if string(rh.ChunkId[:]) != "RIFF" || string(rh.Format[:]) != "WAVE" {
		return nil, radio.ErrBadFormat
	}
	rr, haveFmt := &Reader{}, false
	for {
		var ch chunkHeader
		if err := binary.Read(r, binary.LittleEndian, &ch); err != nil {
			return nil, err
		}
		switch string(ch.ChunkId[:]) {
		case "fmt ":
			if err := binary.Read(r, binary.LittleEndian, &rr.fh); err != nil {
				return nil, err
			}
			if rr.fh.AudioFormat != 1 {
				return nil, fmt.Errorf("%w: wav format %d", radio.ErrBadFormat, rr.fh.AudioFormat)
			}
			if _, err := io.CopyN(io.Discard, r, int64(ch.ChunkSize)-16); err != nil {
				return nil, err
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("%w: data before fmt", radio.ErrBadFormat)
			}
			rr.Reader = r
			if ch.ChunkSize != 0 && ch.ChunkSize != 1<<31 {
				rr.Reader = io.LimitReader(r, int64(ch.ChunkSize))
			}
			return rr, nil
		default:
			if _, err := io.CopyN(io.Discard, r, int64(ch.ChunkSize+ch.ChunkSize%2)); err != nil {
				return nil, err
			}
		}
	}
}

func (r *Reader) Channels() int { return int(r.fh.NumChannels) }

func (r *Reader) SampleRate() int { return int(r.fh.SampleRate) }

func (r *Reader) BitDepth() int { return int(r.fh.BitsPerSample) }

// IQFormat maps the sample layout to an I/Q format.
func (r *Reader) IQFormat() (radio.Format, error) {
	if r.Channels() != 2 {
		return 0, fmt.Errorf("%w: %d channels, want 2", radio.ErrBadFormat, r.Channels())
	}
	switch r.BitDepth() {
	case 8:
		return radio.FormatU8, nil
	case 16:
		return radio.FormatS16, nil
	}
	return 0, fmt.Errorf("%w: %d bit samples", radio.ErrBadFormat, r.BitDepth())
}

type Writer struct {
	w io.Writer

	SampleRate    uint32
	BitsPerSample uint16
	NumChannels   uint16

	dataLen uint32
}

func NewWriter(w io.Writer, rate, depth, channels int) (*Writer, error) {
	if rate == 0 || depth == 0 || channels == 0 {
		return nil, radio.ErrBadFormat
	}
	ww := &Writer{
		w:             w,
		SampleRate:    uint32(rate),
		BitsPerSample: uint16(depth),
		NumChannels:   uint16(channels),
	}
	if err := ww.writeHeader(0); err != nil {
		return nil, err
	}
	return ww, nil
}

func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.dataLen += uint32(n)
	return n, err
}

// Close rewrites the header with the final length when the output seeks.
func (w *Writer) Close() error {
	ws, ok := w.w.(io.WriteSeeker)
	if !ok {
		return nil
	}
	if _, err := ws.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := w.writeHeader(w.dataLen); err != nil {
		return err
	}
	_, err := ws.Seek(0, io.SeekEnd)
	return err
}

func (w *Writer) writeHeader(dataLen uint32) error {
	if dataLen == 0 {
		dataLen = 1 << 31
	}
	rh := &riffHeader{
		ChunkId:   [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize: dataLen + 36,
		Format:    [4]byte{'W', 'A', 'V', 'E'},
	}
	if err := binary.Write(w.w, binary.LittleEndian, rh); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.LittleEndian, chunkHeader{[4]byte{'f', 'm', 't', ' '}, 16}); err != nil {
		return err
	}
	blockAlign := uint16(uint32(w.NumChannels) * uint32(w.BitsPerSample) / 8)
	fh := &fmtChunk{
		AudioFormat:   1,
		NumChannels:   w.NumChannels,
		SampleRate:    w.SampleRate,
		ByteRate:      w.SampleRate * uint32(blockAlign),
		BlockAlign:    blockAlign,
		BitsPerSample: w.BitsPerSample,
	}
	if err := binary.Write(w.w, binary.LittleEndian, fh); err != nil {
		return err
	}
	return binary.Write(w.w, binary.LittleEndian, chunkHeader{[4]byte{'d', 'a', 't', 'a'}, dataLen})
}
