package radio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// Format is the on-the-wire encoding of one I/Q pair.
type Format int

const (
	// FormatU8 is rtl_tcp's unsigned 8-bit offset binary.
	FormatU8 Format = iota
	// FormatS16 is signed 16-bit little endian, as SDRangel records.
	FormatS16
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "u8", "iq8", "":
		return FormatU8, nil
	case "s16", "s16le", "iq16":
		return FormatS16, nil
	}
	return 0, fmt.Errorf("%w: iq format %q", ErrBadFormat, s)
}

// SampleBytes is the size of one I/Q pair.
func (f Format) SampleBytes() int {
	if f == FormatS16 {
		return 4
	}
	return 2
}

func (f Format) String() string {
	if f == FormatS16 {
		return "s16"
	}
	return "u8"
}

type IQReader struct {
	r      io.Reader
	format Format
	err    error
}

type MixerIQReader struct {
	HzBand
	*IQReader
}

// NewIQReader takes a reader that uses u8 I/Q samples.
func NewIQReader(r io.Reader) *IQReader { return NewIQReaderFormat(r, FormatU8) }

func NewIQReaderFormat(r io.Reader, f Format) *IQReader {
	if r == nil {
		panic("nil reader")
	}
	return &IQReader{r: r, format: f}
}

func NewMixerIQReader(r io.Reader, hzb HzBand) *MixerIQReader {
	return NewIQReader(r).ToMixer(hzb)
}

func (iq *IQReader) ToMixer(hzb HzBand) *MixerIQReader {
	return &MixerIQReader{HzBand: hzb, IQReader: iq}
}

func (iq *IQReader) Format() Format { return iq.format }

// Err is the error that ended the last stream; io.EOF on a clean end.
func (iq *IQReader) Err() error { return iq.err }

func (iq *IQReader) Batch64(batch, limit int) <-chan []complex64 {
	return iq.BatchStream64(context.Background(), batch, limit)
}

// BatchStream64 reads batches of batch samples normalized to [-1, 1) until
// the reader fails, limit batches have been sent, or ctx is done. A
// trailing partial batch is dropped.
func (iq *IQReader) BatchStream64(ctx context.Context, batch, limit int) <-chan []complex64 {
	ch := make(chan []complex64, 1)
	go func() {
		defer close(ch)
		raw := make([]byte, batch*iq.format.SampleBytes())
		for i := 0; limit <= 0 || i < limit; i++ {
			if _, iq.err = io.ReadFull(iq.r, raw); iq.err != nil {
				return
			}
			samps := make([]complex64, batch)
			iq.decode(samps, raw)
			select {
			case ch <- samps:
			case <-ctx.Done():
				iq.err = ctx.Err()
				return
			}
		}
	}()
	return ch
}

func (iq *IQReader) decode(samps []complex64, raw []byte) {
	switch iq.format {
	case FormatS16:
		for i := range samps {
			re := int16(binary.LittleEndian.Uint16(raw[4*i:]))
			im := int16(binary.LittleEndian.Uint16(raw[4*i+2:]))
			samps[i] = complex(float32(re)/32768.0, float32(im)/32768.0)
		}
	default:
		for i := range samps {
			samps[i] = complex(
				(float32(raw[2*i])-127)/128.0,
				(float32(raw[2*i+1])-127)/128.0)
		}
	}
}

type IQWriter struct {
	w      io.Writer
	format Format
}

func NewIQWriter(w io.Writer) *IQWriter { return &IQWriter{w, FormatU8} }

func NewIQWriterFormat(w io.Writer, f Format) *IQWriter { return &IQWriter{w, f} }

func (iq *IQWriter) Write64(out []complex64) error {
	buf := make([]byte, iq.format.SampleBytes()*len(out))
	for i, s := range out {
		if iq.format == FormatS16 {
			binary.LittleEndian.PutUint16(buf[4*i:], uint16(clamp16(real(s))))
			binary.LittleEndian.PutUint16(buf[4*i+2:], uint16(clamp16(imag(s))))
			continue
		}
		buf[2*i] = clamp8(real(s))
		buf[2*i+1] = clamp8(imag(s))
	}
	_, err := iq.w.Write(buf)
	return err
}

func clamp16(v float32) int16 {
	return int16(min(max(v*32768.0, -32768), 32767))
}

func clamp8(v float32) byte {
	return byte(min(max(v*128.0+127.0, 0), 255))
}
