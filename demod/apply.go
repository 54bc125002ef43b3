package demod

import (
	"github.com/chzchzchz/freedvrx/dsp"
	"github.com/chzchzchz/freedvrx/freedv"
)

// applySettings is called with d.mu held. Channelizer requests it produces
// are left in d.pending for dispatch after the lock is released.
func (d *Demod) applySettings(s Settings, force bool) {
	old := d.settings
	d.log.Debug("apply settings", "mode", s.Mode, "volume", s.Volume, "agc", s.AGC, "device", s.AudioDevice, "force", force)

	if s.Volume != old.Volume || force {
		d.writer.volume = s.Volume / 4
	}
	if s.Mode != old.Mode || force {
		d.applyMode(s)
	} else if s.InputFrequencyOffset != old.InputFrequencyOffset {
		d.pending = append(d.pending, ConfigureChannelizer{d.modemRate, s.InputFrequencyOffset})
	}
	if s.agcChanged(old) || force {
		d.applyAGC(s)
	}
	if s.AudioDevice != old.AudioDevice || force {
		rate, err := d.output.Bind(s.AudioDevice, d.fifo)
		if err != nil {
			d.log.Error("bind audio output", "device", s.AudioDevice, "err", err)
		} else if rate != d.audioRate {
			d.applyAudioSampleRate(rate)
		}
	}

	d.spanLog2 = min(max(s.SpanLog2, MinSpanLog2), MaxSpanLog2)
	d.dsb = s.DSB
	d.writer.mute = s.AudioMute
	d.agcActive = s.AGC
	d.settings = s
}

// applyAGC sizes the AGC window and squelch delay line together for the
// current modem rate.
func (d *Demod) applyAGC(s Settings) {
	perMs := d.modemRate / 1000
	nb := max(1, perMs<<min(max(s.AGCTimeLog2, 0), MaxAGCTimeLog2))
	d.agc.SetThresholdEnable(s.AGCPowerThreshold != MinPowerThresholdDB)
	d.agc.SetThreshold(dsp.PowerFromDB(s.AGCPowerThreshold) * dsp.FullScale * dsp.FullScale)
	if nb != d.agcNb {
		d.agc.Resize(nb, nb/2, agcTarget)
		d.agc.SetStepDownDelay(nb)
		d.delay.Resize(nb)
		d.agcNb = nb
	}
	if gate := perMs * max(s.AGCThresholdGate, 0); gate != d.agcGate {
		d.agc.SetGate(gate)
		d.agcGate = gate
	}
	d.agc.SetClamping(s.AGCClamping)
	if d.delay.Len() != d.agc.StepDownDelay() {
		panic("squelch delay line out of step with agc")
	}
	d.log.Debug("agc", "samples", nb, "gate", d.agcGate, "clamping", s.AGCClamping)
}

func (d *Demod) applyMode(s Settings) {
	m := s.Mode
	d.lowCutoff, d.hiCutoff = m.LowCutoff(), m.HighCutoff()
	if mr := m.ModemSampleRate(); mr != d.modemRate {
		d.pending = append(d.pending, ConfigureChannelizer{mr, s.InputFrequencyOffset})
		d.modemRate = mr
		d.distRemain = 0
		d.distance = float64(d.inputRate) / float64(mr)
		d.interp.Create(interpPhaseSteps, float64(d.inputRate), d.hiCutoff*1.5, interpTaps)
		d.applyAGC(s)
	}
	d.filter.CreateFilter(d.lowCutoff/float64(d.modemRate), d.hiCutoff/float64(d.modemRate))

	if err := d.bridge.open(d.codec, m); err != nil {
		d.log.Error("open codec", "mode", m, "err", err)
		return
	}
	d.log.Info("codec open",
		"mode", m,
		"modem_rate", d.modemRate,
		"speech", len(d.bridge.speechOut),
		"max_modem", len(d.bridge.modIn),
		"nin", d.bridge.nin,
		"fps", d.bridge.stats.FPS)
}

func (d *Demod) applyChannelSettings(rate int, offset int64, force bool) {
	if rate <= 0 {
		d.log.Warn("ignoring channel rate", "rate", rate)
		return
	}
	d.log.Debug("channel", "rate", rate, "offset", offset)
	if offset != d.inputOffset || rate != d.inputRate || force {
		d.nco.SetFreq(float64(-offset), float64(rate))
	}
	if rate != d.inputRate || force {
		d.interp.Create(interpPhaseSteps, float64(rate), d.hiCutoff*1.5, interpTaps)
		d.distRemain = 0
		if d.modemRate > 0 {
			d.distance = float64(rate) / float64(d.modemRate)
		}
	}
	d.inputRate, d.inputOffset = rate, offset
}

func (d *Demod) applyAudioSampleRate(rate int) {
	if rate <= 0 {
		d.log.Warn("ignoring audio rate", "rate", rate)
		return
	}
	d.log.Debug("audio", "rate", rate)
	d.fifo.SetSize(rate)
	d.resampler.SetDecimation(rate / freedv.SpeechSampleRate)
	d.resampler.SetAudioFilter(rate, 250, 3300, 4)
	d.audioRate = rate
}
