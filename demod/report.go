package demod

import (
	"github.com/chzchzchz/freedvrx/dsp"
	"github.com/chzchzchz/freedvrx/freedv"
)

// Report is a point-in-time snapshot of the demodulator.
type Report struct {
	Mode              freedv.Mode `json:"mode"`
	ChannelPowerDB    float64     `json:"channel_power_db"`
	ChannelPeakDB     float64     `json:"channel_peak_db"`
	AudioActive       bool        `json:"audio_active"`
	Squelch           bool        `json:"squelch_open"`
	AudioSampleRate   int         `json:"audio_sample_rate"`
	ChannelSampleRate int         `json:"channel_sample_rate"`
	ModemSampleRate   int         `json:"modem_sample_rate"`
	CodecOpen         bool        `json:"codec_open"`
	Stats             Stats       `json:"stats"`
	SNRAvgDB          float64     `json:"snr_avg_db"`
	SNRPeakDB         float64     `json:"snr_peak_db"`
	SNRFrames         int         `json:"snr_frames"`
}

// Report snapshots the state and drains the channel power and SNR windows.
func (d *Demod) Report() Report {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := Report{
		Mode:              d.settings.Mode,
		AudioActive:       d.audioActive,
		Squelch:           !d.agcActive || d.agc.Open(),
		AudioSampleRate:   d.audioRate,
		ChannelSampleRate: d.inputRate,
		ModemSampleRate:   d.modemRate,
		CodecOpen:         d.bridge.session != nil,
		Stats:             d.bridge.stats,
	}
	avg, peak, _ := d.magSqLevels()
	r.ChannelPowerDB, r.ChannelPeakDB = dsp.DBPower(avg), dsp.DBPower(peak)
	r.SNRAvgDB, r.SNRPeakDB, r.SNRFrames = d.bridge.snr.drain()
	return r
}

// SNRLevels drains the SNR window.
func (d *Demod) SNRLevels() (avg, peak float64, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bridge.snr.drain()
}

// MagSqLevels drains the channel power window. Values are linear and
// relative to full scale.
func (d *Demod) MagSqLevels() (avg, peak float64, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.magSqLevels()
}

func (d *Demod) magSqLevels() (avg, peak float64, n int) {
	if d.magsqCount > 0 {
		avg, peak, n = d.magsqSum/float64(d.magsqCount), d.magsqPeak, d.magsqCount
	} else {
		avg, peak, n = d.magsq, d.magsq, 1
	}
	d.magsqSum, d.magsqPeak, d.magsqCount = 0, 0, 0
	return avg, peak, n
}
