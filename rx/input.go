package rx

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/chzchzchz/freedvrx/config"
	"github.com/chzchzchz/freedvrx/radio"
	"github.com/chzchzchz/freedvrx/radio/wav"
	"github.com/chzchzchz/freedvrx/sdrproxy"
	"github.com/chzchzchz/freedvrx/sdrproxy/client"
)

// OpenIQR opens the configured input. Files and stdin take the band from
// the config; wav files carry their own rate; radios report their tuning.
func OpenIQR(ctx context.Context, in config.Input, l *log.Logger) (*radio.MixerIQReader, func(), error) {
	hzb := radio.HzBand{Center: in.CenterHz, Width: uint64(in.SampleRate)}
	if u, err := url.Parse(in.Path); err == nil {
		switch u.Scheme {
		case "sdr":
			return openIQRURL(ctx, *u, hzb, l)
		case "rtl":
			sdr, err := radio.NewSDR(ctx, u.Host)
			if err != nil {
				return nil, nil, err
			}
			return tuneSDR(sdr, in, hzb)
		case "rtltcp":
			sdr, err := radio.DialSDR(ctx, u.Host)
			if err != nil {
				return nil, nil, err
			}
			return tuneSDR(sdr, in, hzb)
		}
	}
	f, closer, err := openInput(in.Path)
	if err != nil {
		return nil, nil, err
	}
	if strings.HasSuffix(in.Path, ".wav") {
		r, err := wav.NewReader(f)
		if err != nil {
			closer()
			return nil, nil, err
		}
		format, err := r.IQFormat()
		if err != nil {
			closer()
			return nil, nil, err
		}
		hzb.Width = uint64(r.SampleRate())
		return radio.NewIQReaderFormat(r, format).ToMixer(hzb), closer, nil
	}
	format, err := radio.ParseFormat(in.Format)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return radio.NewIQReaderFormat(f, format).ToMixer(hzb), closer, nil
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" || path == "-.wav" {
		return os.Stdin, func() {}, nil
	}
	fin, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return fin, func() { fin.Close() }, nil
}

func tuneSDR(sdr radio.SDR, in config.Input, hzb radio.HzBand) (*radio.MixerIQReader, func(), error) {
	closer := func() { sdr.Close() }
	if in.PPM != 0 {
		if err := sdr.SetFreqCorrection(in.PPM); err != nil {
			closer()
			return nil, nil, err
		}
	}
	if err := sdr.SetBand(hzb); err != nil {
		closer()
		return nil, nil, err
	}
	if err := sdr.SetGain(in.GainTenthsDB); err != nil {
		closer()
		return nil, nil, err
	}
	return sdr.Reader(), closer, nil
}

func openIQRURL(ctx context.Context, u url.URL, b radio.HzBand, l *log.Logger) (*radio.MixerIQReader, func(), error) {
	if u.Path == "" {
		// sdr://device/
		u.Path, u.Host = u.Host, ""
	}
	if u.Host == "" {
		u.Host = "localhost:12000"
	}
	if u.User != nil {
		// sdr://stream@host/
		u.Path = u.User.Username()
	}

	sdrDevice := strings.Trim(u.Path, "/")
	if sdrDevice == "" {
		return nil, nil, fmt.Errorf("no sdr device defined in url %s", u.String())
	}
	u.Path, u.Scheme, u.User = "", "http", nil
	c := client.New(u)
	l.Info("opening proxy stream", "radio", sdrDevice, "proxy", u.String())
	cctx, cancel := context.WithCancel(ctx)
	closer := func() {
		cancel()
		c.Close()
	}

	// Follow the radio's current tuning.
	if b.Center == 0 {
		info, err := c.Radio(cctx, sdrDevice)
		if err != nil {
			closer()
			return nil, nil, err
		}
		l.Info("got radio", "id", info.Id, "center", info.CenterHz, "rate", info.SampleRate)
		b = info.HzBand()
	}

	req := sdrproxy.RxRequest{
		HzBand: b,
		Name:   fmt.Sprintf("%s-%d", sdrDevice, b.Center),
		Radio:  sdrDevice,
	}
	iqr, _, err := c.OpenIQReader(cctx, req)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return iqr.ToMixer(req.HzBand), closer, nil
}
