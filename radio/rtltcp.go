package radio

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
)

var dongleMagic = [...]byte{'R', 'T', 'L', '0'}

// RTLTCPSDR is a connection to an rtl_tcp server. Reads return u8 I/Q.
type RTLTCPSDR struct {
	net.Conn
	Info DongleInfo
}

// DialRTLTCP connects to the rtl_tcp server at addr ("127.0.0.1:1234") and
// reads its dongle header.
func DialRTLTCP(ctx context.Context, addr string) (sdr *RTLTCPSDR, err error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("error connecting to spectrum server: %w", err)
	}
	sdr = &RTLTCPSDR{Conn: conn}
	defer func() {
		if err != nil {
			conn.Close()
		}
	}()
	if err = binary.Read(conn, binary.BigEndian, &sdr.Info); err != nil {
		return nil, fmt.Errorf("error getting dongle information: %w", err)
	}
	if !sdr.Info.Valid() {
		return nil, fmt.Errorf("%w: bad magic number %q", ErrBadFormat, sdr.Info.Magic)
	}
	return sdr, nil
}

// DongleInfo is sent by the server on connection.
type DongleInfo struct {
	Magic     [4]byte
	Tuner     uint32
	GainCount uint32
}

func (d DongleInfo) Valid() bool { return d.Magic == dongleMagic }

type command struct {
	Command   uint8
	Parameter uint32
}

// Command numbers from rtl_tcp.c.
const (
	cmdCenterFreq = iota + 1
	cmdSampleRate
	cmdTunerGainMode
	cmdTunerGain
	cmdFreqCorrection
	cmdTunerIfGain
	cmdTestMode
	cmdAGCMode
)

func (sdr *RTLTCPSDR) do(cmd uint8, v uint32) error {
	return binary.Write(sdr.Conn, binary.BigEndian, command{cmd, v})
}

func (sdr *RTLTCPSDR) SetCenterFreq(freq uint32) error { return sdr.do(cmdCenterFreq, freq) }

func (sdr *RTLTCPSDR) SetSampleRate(rate uint32) error { return sdr.do(cmdSampleRate, rate) }

// SetGain sets tuner gain in tenths of dB (197 => 19.7dB).
func (sdr *RTLTCPSDR) SetGain(gain uint32) error { return sdr.do(cmdTunerGain, gain) }

// SetGainMode selects manual gain when manual is true, tuner AGC otherwise.
func (sdr *RTLTCPSDR) SetGainMode(manual bool) error { return sdr.do(cmdTunerGainMode, b2u(manual)) }

func (sdr *RTLTCPSDR) SetFreqCorrection(ppm uint32) error { return sdr.do(cmdFreqCorrection, ppm) }

func (sdr *RTLTCPSDR) SetAGCMode(on bool) error { return sdr.do(cmdAGCMode, b2u(on)) }

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
