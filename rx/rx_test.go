package rx

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chzchzchz/freedvrx/config"
	"github.com/chzchzchz/freedvrx/freedv"
	"github.com/chzchzchz/freedvrx/radio"
	"github.com/chzchzchz/freedvrx/radio/wav"
	"github.com/chzchzchz/freedvrx/sdrproxy"
)

func quietLogger() *log.Logger {
	l := log.New(io.Discard)
	l.SetLevel(log.FatalLevel)
	return l
}

// writeTone writes n samples of a tone at hz relative to the center.
func writeTone(t *testing.T, w io.Writer, format radio.Format, rate, hz, n int) {
	iqw := radio.NewIQWriterFormat(w, format)
	buf := make([]complex64, n)
	for i := range buf {
		ph := 2 * math.Pi * float64(hz) * float64(i) / float64(rate)
		buf[i] = complex(float32(0.5*math.Cos(ph)), float32(0.5*math.Sin(ph)))
	}
	require.NoError(t, iqw.Write64(buf))
}

type countingSession struct {
	mode  freedv.Mode
	calls *atomic.Int32
}

func (s *countingSession) Mode() freedv.Mode    { return s.mode }
func (s *countingSession) Nin() int             { return 320 }
func (s *countingSession) SpeechSamples() int   { return 320 }
func (s *countingSession) MaxModemSamples() int { return 320 }
func (s *countingSession) ModemSampleRate() int { return s.mode.ModemSampleRate() }
func (s *countingSession) Rx(speechOut, modemIn []int16) int {
	s.calls.Add(1)
	return 320
}
func (s *countingSession) ModemStats() freedv.ModemStats { return freedv.ModemStats{Sync: true, SNREst: 7} }
func (s *countingSession) TotalBitErrors() int           { return 0 }
func (s *countingSession) Unsync()                       {}
func (s *countingSession) Close() error                  { return nil }

type countingCodec struct{ calls atomic.Int32 }

func (c *countingCodec) Open(m freedv.Mode) (freedv.Session, error) {
	return &countingSession{mode: m, calls: &c.calls}, nil
}

func TestOpenIQRRawAndWav(t *testing.T) {
	dir := t.TempDir()

	raw := filepath.Join(dir, "in.iq")
	f, err := os.Create(raw)
	require.NoError(t, err)
	writeTone(t, f, radio.FormatS16, 48000, 0, 100)
	f.Close()

	in := config.Input{Path: raw, Format: "s16", SampleRate: 48000, CenterHz: 7177000}
	iqr, closer, err := OpenIQR(context.Background(), in, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, radio.HzBand{Center: 7177000, Width: 48000}, iqr.HzBand)
	n := 0
	for b := range iqr.Batch64(10, 0) {
		n += len(b)
		assert.InDelta(t, 0.5, real(b[0]), 1e-3)
	}
	closer()
	assert.Equal(t, 100, n)

	wavPath := filepath.Join(dir, "in.wav")
	f, err = os.Create(wavPath)
	require.NoError(t, err)
	ww, err := wav.NewWriter(f, 96000, 8, 2)
	require.NoError(t, err)
	writeTone(t, ww, radio.FormatU8, 96000, 0, 64)
	require.NoError(t, ww.Close())
	f.Close()

	// the wav header wins over the configured rate and format
	iqr, closer, err = OpenIQR(context.Background(), config.Input{Path: wavPath, Format: "s16", SampleRate: 48000}, quietLogger())
	require.NoError(t, err)
	defer closer()
	assert.Equal(t, uint64(96000), iqr.Width)
	assert.Equal(t, radio.FormatU8, iqr.Format())

	_, _, err = OpenIQR(context.Background(), config.Input{Path: raw, Format: "f32"}, quietLogger())
	assert.ErrorIs(t, err, radio.ErrBadFormat)
}

func TestOpenIQRProxyFollowsRadio(t *testing.T) {
	info := radio.SDRHWInfo{Id: "rtl0", SDRFormat: radio.SDRFormat{BitDepth: 8, CenterHz: 14200000, SampleRate: 240000}}
	var got sdrproxy.RxRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			json.NewEncoder(w).Encode([]sdrproxy.RxSignal{{Response: sdrproxy.RxResponse{Radio: info}}})
			return
		}
		req, err := sdrproxy.NewRxRequest(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		got = *req
		w.Write([]byte{127, 127, 127, 127})
	}))
	defer srv.Close()

	path := "sdr://rtl0@" + srv.Listener.Addr().String() + "/"
	iqr, closer, err := OpenIQR(context.Background(), config.Input{Path: path}, quietLogger())
	require.NoError(t, err)
	defer closer()
	assert.Equal(t, info.HzBand(), iqr.HzBand)
	n := 0
	for b := range iqr.Batch64(1, 0) {
		n += len(b)
	}
	assert.Equal(t, 2, n)
	assert.Equal(t, "rtl0", got.Radio)
	assert.Equal(t, info.HzBand(), got.HzBand)
}

func TestReceiverDecodesFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "tone.iq")
	f, err := os.Create(in)
	require.NoError(t, err)
	// channel at +1500 Hz, signal 1000 Hz above it
	writeTone(t, f, radio.FormatS16, 48000, 2500, 48000)
	f.Close()

	cfg := config.New()
	cfg.Input = config.Input{Path: in, Format: "s16", SampleRate: 48000, CenterHz: 14230000}
	cfg.ChannelHz = 14231500
	cfg.Demod.Mode = freedv.Mode700D
	cfg.Output = config.Output{Kind: config.OutputWAV, SampleRate: 48000}
	cfg.Recordings.Dir = filepath.Join(dir, "rec")
	require.NoError(t, cfg.Validate())

	codec := &countingCodec{}
	r, err := New(context.Background(), cfg, Options{Codec: codec, Logger: quietLogger()})
	require.NoError(t, err)
	assert.Equal(t, int64(1500), r.Demod().Settings().InputFrequencyOffset)
	require.NoError(t, r.Run(context.Background()))

	rep, ok := r.Hub().Last()
	require.True(t, ok)
	assert.Equal(t, freedv.Mode700D, rep.Mode)
	assert.True(t, rep.CodecOpen)
	assert.Equal(t, 8000, rep.ChannelSampleRate)
	require.NoError(t, r.Close())

	// one second at 8kHz in frames of 320, less filter latency
	assert.InDelta(t, 23, int(codec.calls.Load()), 3)

	wavs, err := filepath.Glob(filepath.Join(cfg.Recordings.Dir, "14231500", "700D.*.wav"))
	require.NoError(t, err)
	require.Len(t, wavs, 1)
	fi, err := os.Stat(wavs[0])
	require.NoError(t, err)
	assert.Greater(t, fi.Size(), int64(44))

	jpgs, err := filepath.Glob(filepath.Join(cfg.Recordings.Dir, "14231500", "700D.*.jpg"))
	require.NoError(t, err)
	assert.Len(t, jpgs, 1)
}
