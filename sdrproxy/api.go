// Package sdrproxy holds the wire types of the sdrproxy streaming API. A
// proxy owns the radios and serves channels of them over HTTP.
package sdrproxy

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/chzchzchz/freedvrx/radio"
)

// SignalHeader carries the JSON RxResponse on a stream response.
const SignalHeader = "Signal"

type RxRequest struct {
	radio.HzBand
	// Name is an optional "pretty" name to refer to this channel.
	Name string `json:"name"`
	// Radio is the unique identifier for some radio on the system.
	Radio string `json:"radio"`
	// HintTuneHz is the frequency for tuning the SDR, if possible.
	HintTuneHz uint64 `json:"hint_tune_hz"`
}

type RxResponse struct {
	Format radio.SDRFormat `json:"format"`
	Radio  radio.SDRHWInfo `json:"radio"`
}

// IQFormat is the sample encoding of the stream.
func (r RxResponse) IQFormat() (radio.Format, error) {
	switch r.Format.BitDepth {
	case 0, 8:
		return radio.FormatU8, nil
	case 16:
		return radio.FormatS16, nil
	}
	return 0, fmt.Errorf("%w: %d bit stream", radio.ErrBadFormat, r.Format.BitDepth)
}

type RxSignal struct {
	Request  RxRequest
	Response RxResponse
}

func NewRxRequest(rc io.ReadCloser) (*RxRequest, error) {
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	var msg RxRequest
	if err := json.Unmarshal(b, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
