package demod

import (
	"github.com/chzchzchz/freedvrx/freedv"
)

// voiceBridge batches modem samples into codec frames of the length the
// session currently asks for.
type voiceBridge struct {
	session   freedv.Session
	modIn     []int16
	speechOut []int16
	iModem    int
	nin       int

	stats Stats
	snr   SNR
}

func (b *voiceBridge) open(c freedv.Codec, m freedv.Mode) error {
	b.close()
	sess, err := c.Open(m)
	if err != nil {
		return err
	}
	b.session = sess
	b.stats.init()
	b.nin = max(1, sess.Nin())
	b.stats.FPS = max(1, sess.ModemSampleRate()/b.nin)
	if n := sess.SpeechSamples(); n != len(b.speechOut) {
		b.speechOut = make([]int16, n)
	}
	if n := max(sess.MaxModemSamples(), b.nin); n != len(b.modIn) {
		b.modIn = make([]int16, n)
	}
	b.iModem = 0
	return nil
}

func (b *voiceBridge) close() {
	if b.session == nil {
		return
	}
	b.session.Close()
	b.session = nil
}

func (b *voiceBridge) unsync() {
	if b.session != nil {
		b.session.Unsync()
	}
}

// push appends one modem sample and decodes once nin samples are buffered,
// handing every decoded speech sample to speech.
func (b *voiceBridge) push(sample int16, speech func(int16)) {
	if b.session == nil {
		return
	}
	b.modIn[b.iModem] = sample
	if b.iModem++; b.iModem < b.nin {
		return
	}
	nout := b.session.Rx(b.speechOut, b.modIn[:b.nin])
	b.stats.collect(b.session)
	b.snr.accumulate(b.stats.SNREst)
	for _, s := range b.speechOut[:min(nout, len(b.speechOut))] {
		speech(s)
	}
	b.iModem = 0
	b.nin = max(1, b.session.Nin())
	if b.nin > len(b.modIn) {
		b.modIn = make([]int16, b.nin)
	}
}
