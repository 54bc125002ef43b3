package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/chzchzchz/freedvrx/radio"
	"github.com/chzchzchz/freedvrx/sdrproxy"
)

var ErrNoRadio = errors.New("radio not served by proxy")

type Config struct {
	Endpoint url.URL
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

type Client struct {
	Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(ep url.URL) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{Config: Config{Endpoint: ep, HTTPClient: http.DefaultClient}, ctx: ctx, cancel: cancel}
}

// OpenIQReader starts a channel stream. The stream ends when ctx or the
// client is done.
func (c *Client) OpenIQReader(ctx context.Context, rxreq sdrproxy.RxRequest) (*radio.IQReader, *sdrproxy.RxResponse, error) {
	rxreqBytes, err := json.Marshal(rxreq)
	if err != nil {
		return nil, nil, err
	}

	// Note: no trailling "/" => 301 => rewrite to POST
	u := c.Endpoint.String() + "/api/rx/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewBuffer(rxreqBytes))
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, nil, fmt.Errorf("%s: %s", u, http.StatusText(resp.StatusCode))
	}

	rxresp := &sdrproxy.RxResponse{Format: radio.SDRFormat{BitDepth: 8}}
	if h := resp.Header.Get(sdrproxy.SignalHeader); h != "" {
		if err := json.Unmarshal([]byte(h), rxresp); err != nil {
			resp.Body.Close()
			return nil, nil, err
		}
	}
	format, err := rxresp.IQFormat()
	if err != nil {
		resp.Body.Close()
		return nil, nil, err
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		select {
		case <-ctx.Done():
		case <-c.ctx.Done():
		}
		resp.Body.Close()
	}()

	return radio.NewIQReaderFormat(resp.Body, format), rxresp, nil
}

func (c *Client) Signals(ctx context.Context) (msg []sdrproxy.RxSignal, err error) {
	u := c.Endpoint.String() + "/api/rx/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, &msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Radio finds the current tuning of a radio from the signals it serves.
func (c *Client) Radio(ctx context.Context, id string) (radio.SDRHWInfo, error) {
	sigs, err := c.Signals(ctx)
	if err != nil {
		return radio.SDRHWInfo{}, err
	}
	for _, sig := range sigs {
		if sig.Response.Radio.Id == id {
			return sig.Response.Radio, nil
		}
	}
	return radio.SDRHWInfo{}, fmt.Errorf("%w: %s", ErrNoRadio, id)
}

func (c *Client) Close() error {
	c.cancel()
	c.wg.Wait()
	c.HTTPClient.CloseIdleConnections()
	return nil
}
