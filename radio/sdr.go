package radio

import (
	"context"
	"errors"
)

var (
	ErrRateOutOfRange      = errors.New("sample rate out of range")
	ErrFrequencyOutOfRange = errors.New("frequency out of range")
	ErrBadFormat           = errors.New("bad format")
)

type SDR interface {
	SetBand(b HzBand) error
	SetFreqCorrection(ppm uint32) error
	// SetGain sets tuner gain in tenths of a dB; zero selects tuner AGC.
	SetGain(tenthsDB uint32) error
	Info() SDRHWInfo
	Close() error
	Reader() *MixerIQReader
}

type SDRFormat struct {
	BitDepth   uint   `json:"bit_depth"`
	CenterHz   uint64 `json:"center_hz"`
	SampleRate uint32 `json:"sample_rate"`
}

type SDRHWInfo struct {
	Id string `json:"id"`

	MinHz         uint64 `json:"min_hz"`
	MaxHz         uint64 `json:"max_hz"`
	MinSampleRate uint32 `json:"min_sample_rate"`
	MaxSampleRate uint32 `json:"max_sample_rate"`

	SDRFormat
}

// NewSDR spawns rtl_tcp for the device with the given serial or index.
func NewSDR(ctx context.Context, ser string) (SDR, error) { return newRTLSDR(ctx, ser) }

// DialSDR uses an rtl_tcp server that is already running at addr.
func DialSDR(ctx context.Context, addr string) (SDR, error) { return dialRTLSDR(ctx, addr) }

// HzBand is the band the format covers.
func (f SDRFormat) HzBand() HzBand { return HzBand{Center: f.CenterHz, Width: uint64(f.SampleRate)} }
