package demod

import (
	"github.com/chzchzchz/freedvrx/dsp"
	"github.com/chzchzchz/freedvrx/freedv"
)

// Stats is the codec state after the last decoded frame plus the windowed
// bit error count.
type Stats struct {
	Sync           bool    `json:"sync"`
	SNREst         float64 `json:"snr_est"`
	ClockOffset    float64 `json:"clock_offset"`
	FreqOffset     float64 `json:"freq_offset"`
	SyncMetric     float64 `json:"sync_metric"`
	TotalBitErrors int     `json:"total_bit_errors"`
	// BER is the bit error count over the last window of FPS frames.
	BER        int `json:"ber"`
	FrameCount int `json:"frames"`
	FPS        int `json:"fps"`
	// Resyncs counts drops of the codec's cumulative error counter.
	Resyncs int `json:"resyncs"`

	lastTotalBitErrors int
	berFrameCount      int
}

func (s *Stats) init() {
	*s = Stats{SNREst: -20, FPS: 1}
}

func (s *Stats) collect(sess freedv.Session) {
	ms := sess.ModemStats()
	prev := s.TotalBitErrors
	s.TotalBitErrors = sess.TotalBitErrors()
	s.Sync, s.SNREst = ms.Sync, ms.SNREst
	s.ClockOffset, s.FreqOffset, s.SyncMetric = ms.ClockOffset, ms.FreqOffset, ms.SyncMetric

	if s.TotalBitErrors < prev {
		// counter restarted; count from its new value
		s.lastTotalBitErrors = s.TotalBitErrors
		s.Resyncs++
	}
	if s.berFrameCount >= s.FPS {
		s.BER = max(0, s.TotalBitErrors-s.lastTotalBitErrors)
		s.berFrameCount = 0
		s.lastTotalBitErrors = s.TotalBitErrors
	}
	s.berFrameCount++
	s.FrameCount++
}

// SNR accumulates per-frame SNR estimates between drains.
type SNR struct {
	sum     float64
	peak    float64
	n       int
	started bool
}

func (s *SNR) accumulate(db float64) {
	if !s.started {
		s.sum, s.peak, s.n, s.started = dsp.PowerFromDB(db), db, 1, true
		return
	}
	s.sum += dsp.PowerFromDB(db)
	s.peak = max(s.peak, db)
	s.n++
}

// drain returns the window's average and peak in dB and starts a new
// window. An empty window drains as (0, 0, 1).
func (s *SNR) drain() (avg, peak float64, n int) {
	if s.n == 0 {
		return 0, 0, 1
	}
	avg, peak, n = dsp.DBPower(s.sum/float64(s.n)), s.peak, s.n
	*s = SNR{}
	return avg, peak, n
}
