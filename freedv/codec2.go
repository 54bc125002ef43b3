//go:build !nocodec

package freedv

// #cgo LDFLAGS: -lcodec2
// #include <codec2/freedv_api.h>
// #include <codec2/modem_stats.h>
// typedef struct freedv freedv_s;
import "C"

import (
	"fmt"
	"unsafe"
)

type codec2 struct{}

// New returns the libcodec2 backed codec.
func New() Codec { return codec2{} }

func (codec2) Open(m Mode) (Session, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	fdv := C.freedv_open(C.int(m))
	if fdv == nil {
		return nil, fmt.Errorf("%w: mode %v", ErrOpen, m)
	}
	C.freedv_set_test_frames(fdv, 0)
	C.freedv_set_snr_squelch_thresh(fdv, -100.0)
	C.freedv_set_squelch_en(fdv, 0)
	C.freedv_set_clip(fdv, 0)
	C.freedv_set_ext_vco(fdv, 0)
	return &session{fdv: fdv, mode: m}, nil
}

type session struct {
	fdv  *C.freedv_s
	mode Mode
}

func (s *session) Mode() Mode { return s.mode }

func (s *session) Nin() int { return int(C.freedv_nin(s.fdv)) }

func (s *session) SpeechSamples() int { return int(C.freedv_get_n_speech_samples(s.fdv)) }

func (s *session) MaxModemSamples() int { return int(C.freedv_get_n_max_modem_samples(s.fdv)) }

func (s *session) ModemSampleRate() int { return int(C.freedv_get_modem_sample_rate(s.fdv)) }

func (s *session) Rx(speechOut, modemIn []int16) int {
	if len(modemIn) < s.Nin() || len(speechOut) < s.SpeechSamples() {
		return 0
	}
	return int(C.freedv_rx(s.fdv,
		(*C.short)(unsafe.Pointer(&speechOut[0])),
		(*C.short)(unsafe.Pointer(&modemIn[0]))))
}

func (s *session) ModemStats() ModemStats {
	var st C.struct_MODEM_STATS
	C.freedv_get_modem_extended_stats(s.fdv, &st)
	return ModemStats{
		Sync:        st.sync != 0,
		SNREst:      float64(st.snr_est),
		ClockOffset: float64(st.clock_offset),
		FreqOffset:  float64(st.foff),
		SyncMetric:  float64(st.sync_metric),
	}
}

func (s *session) TotalBitErrors() int { return int(C.freedv_get_total_bit_errors(s.fdv)) }

func (s *session) Unsync() { C.freedv_set_sync(s.fdv, 0) }

func (s *session) Close() error {
	if s.fdv != nil {
		C.freedv_close(s.fdv)
		s.fdv = nil
	}
	return nil
}
