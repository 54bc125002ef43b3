package demod

import (
	"errors"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/chzchzchz/freedvrx/audio"
	"github.com/chzchzchz/freedvrx/freedv"
)

type fakeSession struct {
	mode     freedv.Mode
	nins     []int
	nSpeech  int
	maxModem int

	calls     int
	rxLens    []int
	peak      int16
	bitErrors int
	stats     freedv.ModemStats
	unsyncs   int
	closed    bool
}

func (s *fakeSession) Mode() freedv.Mode    { return s.mode }
func (s *fakeSession) Nin() int             { return s.nins[s.calls%len(s.nins)] }
func (s *fakeSession) SpeechSamples() int   { return s.nSpeech }
func (s *fakeSession) MaxModemSamples() int { return s.maxModem }
func (s *fakeSession) ModemSampleRate() int { return s.mode.ModemSampleRate() }

func (s *fakeSession) Rx(speechOut, modemIn []int16) int {
	s.rxLens = append(s.rxLens, len(modemIn))
	s.calls++
	for _, v := range modemIn {
		s.peak = max(s.peak, v, -v)
	}
	for i := range speechOut[:s.nSpeech] {
		speechOut[i] = 1000
	}
	return s.nSpeech
}

func (s *fakeSession) ModemStats() freedv.ModemStats { return s.stats }
func (s *fakeSession) TotalBitErrors() int           { return s.bitErrors }
func (s *fakeSession) Unsync()                       { s.unsyncs++ }
func (s *fakeSession) Close() error                  { s.closed = true; return nil }

// fakeCodec opens sessions with a fixed nin pattern.
type fakeCodec struct {
	mu       sync.Mutex
	nins     []int
	nSpeech  int
	fail     bool
	sessions []*fakeSession
}

func newFakeCodec(nSpeech int, nins ...int) *fakeCodec {
	return &fakeCodec{nins: nins, nSpeech: nSpeech}
}

func (c *fakeCodec) Open(m freedv.Mode) (freedv.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return nil, errors.New("no codec")
	}
	s := &fakeSession{mode: m, nins: c.nins, nSpeech: c.nSpeech, maxModem: slicesMax(c.nins)}
	c.sessions = append(c.sessions, s)
	return s, nil
}

func (c *fakeCodec) last() *fakeSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sessions) == 0 {
		return nil
	}
	return c.sessions[len(c.sessions)-1]
}

func (c *fakeCodec) opened() []freedv.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ms []freedv.Mode
	for _, s := range c.sessions {
		ms = append(ms, s.mode)
	}
	return ms
}

func slicesMax(v []int) int {
	m := 0
	for _, x := range v {
		m = max(m, x)
	}
	return m
}

type fakeOutput struct {
	mu    sync.Mutex
	rate  int
	binds []string
}

func (o *fakeOutput) Bind(device string, _ *audio.Fifo) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.binds = append(o.binds, device)
	return o.rate, nil
}

func (o *fakeOutput) Close() error { return nil }

type fakeChannelizer struct {
	mu    sync.Mutex
	rates []int
}

func (c *fakeChannelizer) Configure(rate int, _ int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates = append(c.rates, rate)
}

func (c *fakeChannelizer) configured() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.rates...)
}

type countingSink struct{ n int }

func (s *countingSink) Feed(samples []complex64) { s.n += len(samples) }

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
