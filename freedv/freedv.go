// Package freedv is the boundary to the FreeDV digital voice codec. The
// codec itself is external; Session models its buffering contract.
package freedv

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnavailable = errors.New("freedv codec not built in")
	ErrUnknownMode = errors.New("unknown freedv mode")
	ErrOpen        = errors.New("freedv open failed")
)

// Mode values match the codec's FREEDV_MODE_* constants.
type Mode int

const (
	Mode1600  Mode = 0
	Mode2400A Mode = 3
	Mode800XA Mode = 5
	Mode700C  Mode = 6
	Mode700D  Mode = 7
)

// SpeechSampleRate is the fixed rate of decoded speech.
const SpeechSampleRate = 8000

type modeInfo struct {
	name      string
	lowHz     float64
	highHz    float64
	modemRate int
}

var modes = map[Mode]modeInfo{
	Mode2400A: {"2400A", 0, 6000, 48000},
	Mode1600:  {"1600", 600, 2400, 8000},
	Mode800XA: {"800XA", 400, 2400, 8000},
	Mode700C:  {"700C", 600, 2400, 8000},
	Mode700D:  {"700D", 600, 2400, 8000},
}

// Modes lists the supported modes in display order.
func Modes() []Mode { return []Mode{Mode2400A, Mode1600, Mode800XA, Mode700C, Mode700D} }

func (m Mode) info() modeInfo {
	if mi, ok := modes[m]; ok {
		return mi
	}
	return modes[Mode2400A]
}

func (m Mode) Valid() bool {
	_, ok := modes[m]
	return ok
}

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return m.info().name
}

// LowCutoff is the lower sideband filter edge in Hz.
func (m Mode) LowCutoff() float64 { return m.info().lowHz }

// HighCutoff is the upper sideband filter edge in Hz.
func (m Mode) HighCutoff() float64 { return m.info().highHz }

// ModemSampleRate is the rate the demodulator expects its input at.
func (m Mode) ModemSampleRate() int { return m.info().modemRate }

func ParseMode(s string) (Mode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for m, mi := range modes {
		if mi.name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ModemStats is the codec's per-frame demodulator state.
type ModemStats struct {
	Sync        bool    `json:"sync"`
	SNREst      float64 `json:"snr_est"`
	ClockOffset float64 `json:"clock_offset"`
	FreqOffset  float64 `json:"freq_offset"`
	SyncMetric  float64 `json:"sync_metric"`
}

// Session is one open codec instance bound to a mode.
type Session interface {
	Mode() Mode
	// Nin is the number of modem samples the next Rx needs. It may change
	// after every Rx.
	Nin() int
	SpeechSamples() int
	MaxModemSamples() int
	ModemSampleRate() int
	// Rx decodes Nin() samples of modemIn into speechOut and returns the
	// number of speech samples produced, possibly zero.
	Rx(speechOut, modemIn []int16) int
	ModemStats() ModemStats
	TotalBitErrors() int
	// Unsync forces the demodulator to reacquire sync.
	Unsync()
	Close() error
}

type Codec interface {
	Open(m Mode) (Session, error)
}
