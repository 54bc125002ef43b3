package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chzchzchz/freedvrx/radio"
	"github.com/chzchzchz/freedvrx/sdrproxy"
)

func newProxy(t *testing.T, resp sdrproxy.RxResponse, payload []byte) (*Client, *[]sdrproxy.RxRequest) {
	var reqs []sdrproxy.RxRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/api/rx/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			sigs := []sdrproxy.RxSignal{{Response: resp}}
			json.NewEncoder(w).Encode(sigs)
		case http.MethodPost:
			req, err := sdrproxy.NewRxRequest(r.Body)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			reqs = append(reqs, *req)
			b, _ := json.Marshal(resp)
			w.Header().Set(sdrproxy.SignalHeader, string(b))
			w.Write(payload)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	c := New(*u)
	t.Cleanup(func() { c.Close() })
	return c, &reqs
}

func TestOpenIQReaderS16(t *testing.T) {
	resp := sdrproxy.RxResponse{
		Format: radio.SDRFormat{BitDepth: 16, CenterHz: 14236000, SampleRate: 48000},
		Radio:  radio.SDRHWInfo{Id: "rtl0"},
	}
	// 0x4000 = 0.5, 0xc000 = -0.5
	c, reqs := newProxy(t, resp, []byte{0x00, 0x40, 0x00, 0xc0})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := sdrproxy.RxRequest{HzBand: radio.HzBand{Center: 14236000, Width: 48000}, Radio: "rtl0"}
	iqr, got, err := c.OpenIQReader(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, radio.FormatS16, iqr.Format())
	assert.Equal(t, uint64(14236000), got.Format.HzBand().Center)

	var samps []complex64
	for b := range iqr.Batch64(1, 0) {
		samps = append(samps, b...)
	}
	assert.Equal(t, []complex64{complex(0.5, -0.5)}, samps)
	require.Len(t, *reqs, 1)
	assert.Equal(t, "rtl0", (*reqs)[0].Radio)
}

func TestRadioLookup(t *testing.T) {
	resp := sdrproxy.RxResponse{Radio: radio.SDRHWInfo{Id: "rtl0", SDRFormat: radio.SDRFormat{CenterHz: 7000000, SampleRate: 240000}}}
	c, _ := newProxy(t, resp, nil)
	info, err := c.Radio(context.Background(), "rtl0")
	require.NoError(t, err)
	assert.Equal(t, radio.HzBand{Center: 7000000, Width: 240000}, info.HzBand())

	_, err = c.Radio(context.Background(), "rtl9")
	assert.ErrorIs(t, err, ErrNoRadio)
}

func TestOpenIQReaderRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	u, _ := url.Parse(srv.URL)
	c := New(*u)
	defer c.Close()
	_, _, err := c.OpenIQReader(context.Background(), sdrproxy.RxRequest{})
	assert.Error(t, err)
}
