package demod

// Message is a control message for Demod.Post. The set is closed.
type Message interface{ isMessage() }

// ConfigureSettings replaces the settings; Force re-applies every section.
type ConfigureSettings struct {
	Settings Settings
	Force    bool
}

// Resync forces the codec to reacquire sync.
type Resync struct{}

// ChannelizerNotification reports the rate and residual offset of the
// samples the channelizer now delivers.
type ChannelizerNotification struct {
	SampleRate      int
	FrequencyOffset int64
}

// AudioRateChanged reports a new device output rate.
type AudioRateChanged struct {
	SampleRate int
}

// ConfigureChannelizer asks the upstream channelizer for a new channel rate
// and offset. The demodulator posts it to itself after a modem rate change.
type ConfigureChannelizer struct {
	SampleRate      int
	FrequencyOffset int64
}

func (ConfigureSettings) isMessage()       {}
func (Resync) isMessage()                  {}
func (ChannelizerNotification) isMessage() {}
func (AudioRateChanged) isMessage()        {}
func (ConfigureChannelizer) isMessage()    {}
