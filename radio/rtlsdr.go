package radio

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/kr/pty"
)

var minFreqHz = uint32(24000000)
var maxFreqHz = uint32(1766000000)
var minRate = uint32(225001)
var maxRate = uint32(3200000)

const rtlTCPAddr = "127.0.0.1:12345"

type rtlSDR struct {
	conn *RTLTCPSDR
	addr string
	cmd  *exec.Cmd
	fpty *os.File
	// device serial number, index, or server address
	id string

	lastCenter     uint32
	lastSampleRate uint32
	lastPPM        uint32
	lastGain       uint32

	iqr *MixerIQReader
	mu  sync.RWMutex
	log *log.Logger
}

func newRTLSDR(ctx context.Context, ser string) (*rtlSDR, error) {
	cmd := exec.CommandContext(ctx, "rtl_tcp", "-a", "127.0.0.1", "-p", "12345", "-d", ser, "-s", "240000")
	fpty, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}
	s := &rtlSDR{fpty: fpty, cmd: cmd, id: ser, addr: rtlTCPAddr, log: log.Default().WithPrefix("rtl_tcp")}
	ready := make(chan struct{})
	go s.logOutput(fpty, ready)
	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		s.log.Warn("no listening banner; trying anyway")
	case <-ctx.Done():
		s.Close()
		return nil, ctx.Err()
	}
	return s, nil
}

func dialRTLSDR(ctx context.Context, addr string) (*rtlSDR, error) {
	s := &rtlSDR{id: addr, addr: addr, log: log.Default().WithPrefix("rtl_tcp")}
	if err := s.resetConn(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// logOutput forwards rtl_tcp's console to the log; the pty line-buffers it.
func (s *rtlSDR) logOutput(r io.Reader, ready chan<- struct{}) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		s.log.Debug(line)
		if ready != nil && len(line) >= 9 && line[:9] == "listening" {
			close(ready)
			ready = nil
		}
	}
}

func (s *rtlSDR) SetFreqCorrection(ppm uint32) error {
	if err := s.initSDR(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetFreqCorrection(ppm); err != nil {
		return err
	}
	s.lastPPM = ppm
	return nil
}

func (s *rtlSDR) SetGain(tenthsDB uint32) error {
	if err := s.initSDR(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setGain(tenthsDB)
}

func (s *rtlSDR) setGain(tenthsDB uint32) error {
	if err := s.conn.SetGainMode(tenthsDB != 0); err != nil {
		return err
	}
	if tenthsDB != 0 {
		if err := s.conn.SetGain(tenthsDB); err != nil {
			return err
		}
	}
	s.lastGain = tenthsDB
	return nil
}

func (s *rtlSDR) SetBand(b HzBand) error {
	if b.Center < uint64(minFreqHz) || b.Center > uint64(maxFreqHz) {
		return ErrFrequencyOutOfRange
	}
	if !isValidRate(uint32(b.Width)) {
		return ErrRateOutOfRange
	}
	if err := s.initSDR(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetCenterFreq(uint32(b.Center)); err != nil {
		return err
	}
	if err := s.conn.SetSampleRate(uint32(b.Width)); err != nil {
		return err
	}
	s.lastCenter, s.lastSampleRate = uint32(b.Center), uint32(b.Width)
	s.log.Info("tuned", "center", b.Center, "rate", b.Width)
	// Reset connection so following reads get the new tuned band.
	return s.resetConnLocked(context.TODO())
}

func (s *rtlSDR) Info() SDRHWInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SDRHWInfo{
		Id: s.id,
		SDRFormat: SDRFormat{
			BitDepth:   8,
			CenterHz:   uint64(s.lastCenter),
			SampleRate: s.lastSampleRate,
		},
		MinHz:         uint64(minFreqHz),
		MaxHz:         uint64(maxFreqHz),
		MinSampleRate: minRate,
		MaxSampleRate: maxRate,
	}
}

func (s *rtlSDR) Close() error {
	s.mu.Lock()
	s.stop()
	s.mu.Unlock()
	if s.cmd == nil {
		return nil
	}
	s.fpty.Close()
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.cmd.Wait()
	return nil
}

func (s *rtlSDR) band() HzBand {
	return HzBand{uint64(s.lastCenter), uint64(s.lastSampleRate)}
}

type eofReader struct{}

func (e *eofReader) Read(p []byte) (int, error) { return 0, io.EOF }

func (s *rtlSDR) Reader() *MixerIQReader {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return NewMixerIQReader(&eofReader{}, s.band())
	} else if s.iqr == nil {
		s.iqr = NewMixerIQReader(s.conn, s.band())
	}
	return s.iqr
}

func (s *rtlSDR) stop() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn, s.iqr = nil, nil
	return err
}

func (s *rtlSDR) resetConn(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetConnLocked(ctx)
}

// resetConnLocked reconnects so the stream starts after any retune.
func (s *rtlSDR) resetConnLocked(ctx context.Context) (err error) {
	s.stop()
	if s.conn, err = connect(ctx, s.addr, s.log); err != nil {
		return err
	}
	s.log.Debug("connected", "addr", s.addr, "tuner", s.conn.Info.Tuner, "gains", s.conn.Info.GainCount)
	return nil
}

func isValidRate(rate uint32) bool {
	return !((rate < minRate) || (rate > maxRate) ||
		((rate > 300000) && (rate <= 900000)))
}

func connect(ctx context.Context, addr string, l *log.Logger) (*RTLTCPSDR, error) {
	var err error
	for i := 0; i < 10; i++ {
		var sdr *RTLTCPSDR
		if sdr, err = DialRTLTCP(ctx, addr); err == nil {
			return sdr, nil
		}
		l.Debug("connect", "addr", addr, "err", err)
		select {
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, err
}

func (s *rtlSDR) initSDR() (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		err = s.resetConnLocked(context.TODO())
	}
	return err
}
