package demod

import (
	"encoding/binary"

	"github.com/charmbracelet/log"

	"github.com/chzchzchz/freedvrx/audio"
	"github.com/chzchzchz/freedvrx/dsp"
)

const audioBufferFrames = 1 << 14

// audioWriter batches mono samples into stereo s16le frames for a sink.
type audioWriter struct {
	sink   audio.Sink
	buf    []byte
	fill   int
	volume float64
	mute   bool
	log    *log.Logger
}

func newAudioWriter(sink audio.Sink, l *log.Logger) *audioWriter {
	return &audioWriter{
		sink:   sink,
		buf:    make([]byte, audioBufferFrames*audio.FrameSize),
		volume: 1,
		log:    l,
	}
}

func (w *audioWriter) push(s int16) {
	v := int16(0)
	if !w.mute {
		v = dsp.Saturate16(float64(s) * w.volume)
	}
	off := w.fill * audio.FrameSize
	binary.LittleEndian.PutUint16(w.buf[off:], uint16(v))
	binary.LittleEndian.PutUint16(w.buf[off+2:], uint16(v))
	if w.fill++; w.fill == audioBufferFrames {
		w.flush()
	}
}

// flush hands the buffered frames to the sink. Frames the sink refuses are
// dropped.
func (w *audioWriter) flush() {
	if w.fill == 0 {
		return
	}
	want := w.fill * audio.FrameSize
	if n := w.sink.Write(w.buf[:want]); n != want {
		w.log.Debug("short audio write", "frames", n/audio.FrameSize, "want", w.fill)
	}
	w.fill = 0
}
