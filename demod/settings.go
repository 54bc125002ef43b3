package demod

import "github.com/chzchzchz/freedvrx/freedv"

// MinPowerThresholdDB disables the AGC squelch when used as the threshold.
const MinPowerThresholdDB = -120.0

// Accepted ranges of the log2 settings.
const (
	MaxAGCTimeLog2 = 10
	MinSpanLog2    = 1
	MaxSpanLog2    = 8
)

type Settings struct {
	InputFrequencyOffset int64       `yaml:"input_frequency_offset" json:"input_frequency_offset"`
	Mode                 freedv.Mode `yaml:"mode" json:"mode"`
	Volume               float64     `yaml:"volume" json:"volume"`
	SpanLog2             int         `yaml:"span_log2" json:"span_log2"`
	AudioMute            bool        `yaml:"audio_mute" json:"audio_mute"`
	AudioDevice          string      `yaml:"audio_device" json:"audio_device"`
	// DSB keeps both sidebands in the band-limiting filter.
	DSB bool `yaml:"dsb" json:"dsb"`

	AGC               bool    `yaml:"agc" json:"agc"`
	AGCClamping       bool    `yaml:"agc_clamping" json:"agc_clamping"`
	AGCTimeLog2       int     `yaml:"agc_time_log2" json:"agc_time_log2"`
	AGCPowerThreshold float64 `yaml:"agc_power_threshold" json:"agc_power_threshold"`
	// AGCThresholdGate is in milliseconds.
	AGCThresholdGate int `yaml:"agc_threshold_gate" json:"agc_threshold_gate"`
}

func DefaultSettings() Settings {
	return Settings{
		Mode:              freedv.Mode2400A,
		Volume:            3.0,
		SpanLog2:          3,
		AudioDevice:       "default",
		AGCTimeLog2:       7,
		AGCPowerThreshold: -100,
		AGCThresholdGate:  4,
	}
}

func (s Settings) agcChanged(o Settings) bool {
	return s.AGCTimeLog2 != o.AGCTimeLog2 ||
		s.AGCPowerThreshold != o.AGCPowerThreshold ||
		s.AGCThresholdGate != o.AGCThresholdGate ||
		s.AGCClamping != o.AGCClamping
}
