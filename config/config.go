// Package config holds the receiver configuration, read from a YAML file and
// overridden by command line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chzchzchz/freedvrx/demod"
	"github.com/chzchzchz/freedvrx/radio"
	"github.com/chzchzchz/freedvrx/spectrum"
)

var ErrBadConfig = errors.New("bad config")

const (
	OutputPortAudio = "pa"
	OutputOto       = "oto"
	OutputWAV       = "wav"
)

type Input struct {
	// Path is a file, "-" for stdin, or an sdr://, rtl:// or rtltcp:// url.
	Path       string `yaml:"path"`
	Format     string `yaml:"format"`
	SampleRate int    `yaml:"sample_rate"`
	CenterHz   uint64 `yaml:"center_hz"`
	// PPM and GainTenthsDB apply to rtl inputs. Zero gain selects tuner AGC.
	PPM          uint32 `yaml:"ppm"`
	GainTenthsDB uint32 `yaml:"gain_tenths_db"`
}

type Output struct {
	Kind string `yaml:"kind"`
	// Path is the wav output; empty records into the recordings store.
	Path       string `yaml:"path"`
	SampleRate int    `yaml:"sample_rate"`
}

type Recordings struct {
	Dir     string `yaml:"dir"`
	Pattern string `yaml:"pattern"`
}

type Config struct {
	Input  Input  `yaml:"input"`
	Output Output `yaml:"output"`
	// ChannelHz, when set, overrides the demod offset with its distance
	// from the input center.
	ChannelHz uint64         `yaml:"channel_hz"`
	Demod     demod.Settings `yaml:"demod"`

	Spectrum       spectrum.Config `yaml:"spectrum"`
	Recordings     Recordings      `yaml:"recordings"`
	StatusAddr     string          `yaml:"status_addr"`
	ReportInterval time.Duration   `yaml:"report_interval"`
	LogLevel       string          `yaml:"log_level"`
}

// New returns a new Config with default values.
func New() *Config {
	return &Config{
		Input: Input{
			Path:       "-",
			Format:     "s16",
			SampleRate: 48_000,
		},
		Output: Output{
			Kind:       OutputPortAudio,
			SampleRate: 48_000,
		},
		Demod:          demod.DefaultSettings(),
		Spectrum:       spectrum.DefaultConfig(),
		ReportInterval: time.Second,
		LogLevel:       "info",
	}
}

// Load reads path over the defaults. Unknown keys are errors.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := New()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadConfig, path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func (c *Config) Validate() error {
	if _, err := radio.ParseFormat(c.Input.Format); err != nil {
		return fmt.Errorf("%w: %v", ErrBadConfig, err)
	}
	if c.Input.SampleRate <= 0 {
		return fmt.Errorf("%w: input sample rate %d", ErrBadConfig, c.Input.SampleRate)
	}
	switch c.Output.Kind {
	case OutputPortAudio, OutputOto:
	case OutputWAV:
		if c.Output.Path == "" && c.Recordings.Dir == "" {
			return fmt.Errorf("%w: wav output needs a path or a recordings dir", ErrBadConfig)
		}
	default:
		return fmt.Errorf("%w: output kind %q", ErrBadConfig, c.Output.Kind)
	}
	if c.Output.SampleRate <= 0 {
		return fmt.Errorf("%w: output sample rate %d", ErrBadConfig, c.Output.SampleRate)
	}
	if !c.Demod.Mode.Valid() {
		return fmt.Errorf("%w: mode %v", ErrBadConfig, c.Demod.Mode)
	}
	if c.Demod.Volume < 0 {
		return fmt.Errorf("%w: volume %v", ErrBadConfig, c.Demod.Volume)
	}
	if t := c.Demod.AGCTimeLog2; t < 0 || t > demod.MaxAGCTimeLog2 {
		return fmt.Errorf("%w: agc time log2 %d outside [0, %d]", ErrBadConfig, t, demod.MaxAGCTimeLog2)
	}
	if c.Demod.AGCThresholdGate < 0 {
		return fmt.Errorf("%w: agc threshold gate %d", ErrBadConfig, c.Demod.AGCThresholdGate)
	}
	if l := c.Demod.SpanLog2; l < demod.MinSpanLog2 || l > demod.MaxSpanLog2 {
		return fmt.Errorf("%w: span log2 %d outside [%d, %d]", ErrBadConfig, l, demod.MinSpanLog2, demod.MaxSpanLog2)
	}
	if c.ReportInterval <= 0 {
		return fmt.Errorf("%w: report interval %v", ErrBadConfig, c.ReportInterval)
	}
	return nil
}

// Settings are the demod settings with the channel applied.
func (c *Config) Settings(band radio.HzBand) demod.Settings {
	s := c.Demod
	if c.ChannelHz != 0 && band.Center != 0 {
		s.InputFrequencyOffset = band.Offset(c.ChannelHz)
	}
	return s
}

// ChannelFrequency is the absolute channel frequency, if the input center is known.
func (c *Config) ChannelFrequency(band radio.HzBand) uint64 {
	if c.ChannelHz != 0 {
		return c.ChannelHz
	}
	return uint64(int64(band.Center) + c.Demod.InputFrequencyOffset)
}
