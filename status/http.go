// Package status serves the receiver state over HTTP: an index page, JSON
// reports, the waterfall, and a websocket report stream.
package status

import (
	"encoding/json"
	"html/template"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/chzchzchz/freedvrx/demod"
	"github.com/chzchzchz/freedvrx/freedv"
	"github.com/chzchzchz/freedvrx/spectrum"
	"github.com/chzchzchz/freedvrx/store"
)

// Controller is the demodulator as seen by the status page.
type Controller interface {
	Post(m demod.Message)
	Settings() demod.Settings
}

type Config struct {
	Controller Controller
	Hub        *Hub
	// Scope and Store are optional.
	Scope     *spectrum.Scope
	Store     *store.RecordingStore
	ChannelHz uint64
	Logger    *log.Logger
}

type httpHandler struct {
	Config
	indexTmpl *template.Template
	upgrader  websocket.Upgrader
}

const indexTmplStr = `<!DOCTYPE html>
<html>
<head>
<title>freedvrx</title>
<style>
table, th, td {
  border: 1px solid black;
  text-align: right;
}
</style>
</head>
<body>
<h1>freedvrx {{.ChannelHz}}Hz</h1>
<hr/>

<h2>Demodulator &#x1F4FB;</h2>
<ul>
<li>Mode: {{.Settings.Mode}}
{{range $_, $m := .Modes}} <a href="?mode={{$m}}">{{$m}}</a>{{end}}</li>
<li>Volume: {{.Settings.Volume}} {{if .Settings.AudioMute}}<a href="?mute=0">&#x1F507;</a>{{else}}<a href="?mute=1">&#x1F50A;</a>{{end}}</li>
<li>AGC: {{.Settings.AGC}}</li>
<li><a href="?resync=1">Resync</a></li>
</ul>

{{if .HaveReport}}
<h2>Signal</h2>
<ul>
<li>Sync: {{.Report.Stats.Sync}}</li>
<li>SNR: {{printf "%.1f" .Report.SNRAvgDB}}dB (peak {{printf "%.1f" .Report.SNRPeakDB}}dB)</li>
<li>Channel power: {{printf "%.1f" .Report.ChannelPowerDB}}dB</li>
<li>BER: {{.Report.Stats.BER}} over {{.Report.Stats.FrameCount}} frames</li>
<li>Frequency offset: {{printf "%.1f" .Report.Stats.FreqOffset}}Hz</li>
</ul>
{{end}}

<img src="waterfall.jpg" />

{{$length := len .Recordings}} {{if gt $length 0}}
<h2>Recordings &#x1F3A4;</h2>
<table>
<tr><th>Date</th><th>Mode</th><th>Bytes</th><th>Path</th></tr>
{{range $_, $r := .Recordings}}
<tr><td>{{$r.Date}}</td><td>{{$r.Mode}}</td><td>{{$r.Size}}</td><td>{{$r.Path}}</td></tr>
{{end}}
</table>
{{end}}
</body>
</html>
`

type indexInfo struct {
	ChannelHz  uint64
	Settings   demod.Settings
	Modes      []freedv.Mode
	Report     demod.Report
	HaveReport bool
	Recordings []store.Recording
}

func NewHandler(cfg Config) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = log.Default().WithPrefix("http")
	}
	if cfg.Hub == nil {
		cfg.Hub = NewHub(cfg.Logger)
	}
	h := &httpHandler{
		Config:    cfg,
		indexTmpl: template.Must(template.New("index").Parse(indexTmplStr)),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)
	mux.HandleFunc("/report", h.handleReport)
	mux.HandleFunc("/recordings", h.handleRecordings)
	mux.HandleFunc("/waterfall.jpg", h.handleWaterfall)
	mux.HandleFunc("/", h.handleIndex)
	return mux
}

func (h *httpHandler) recordings() []store.Recording {
	if h.Store == nil {
		return nil
	}
	recs, err := h.Store.Recordings(h.ChannelHz, h.ChannelHz)
	if err != nil {
		h.Logger.Debug("recordings", "err", err)
	}
	return recs
}

func (h *httpHandler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	s := h.Controller.Settings()
	if v := q.Get("mode"); len(v) > 0 {
		m, err := freedv.ParseMode(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.Mode = m
		h.Controller.Post(demod.ConfigureSettings{Settings: s})
	} else if v := q.Get("mute"); len(v) > 0 {
		s.AudioMute = v == "1"
		h.Controller.Post(demod.ConfigureSettings{Settings: s})
	} else if v := q.Get("volume"); len(v) > 0 {
		vol, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(vol) || vol < 0 {
			http.Error(w, "bad volume", http.StatusBadRequest)
			return
		}
		s.Volume = vol
		h.Controller.Post(demod.ConfigureSettings{Settings: s})
	} else if len(q.Get("resync")) > 0 {
		h.Controller.Post(demod.Resync{})
	} else {
		ii := &indexInfo{
			ChannelHz:  h.ChannelHz,
			Settings:   s,
			Modes:      freedv.Modes(),
			Recordings: h.recordings(),
		}
		ii.Report, ii.HaveReport = h.Hub.Last()
		if err := h.indexTmpl.Execute(w, ii); err != nil {
			io.WriteString(w, err.Error())
		}
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}

func (h *httpHandler) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.Hub.Last()
	if !ok {
		http.Error(w, "no report yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, rep)
}

func (h *httpHandler) handleRecordings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.recordings())
}

func (h *httpHandler) handleWaterfall(w http.ResponseWriter, r *http.Request) {
	if h.Scope == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	if err := h.Scope.WriteJPEG(w); err != nil {
		h.Logger.Error("waterfall", "err", err)
	}
}

func (h *httpHandler) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Error("upgrade", "remote", r.RemoteAddr, "err", err)
		return
	}
	h.Logger.Info("client connected", "remote", r.RemoteAddr)
	c := h.Hub.register(conn)
	defer func() {
		h.Hub.unregister(c)
		h.Logger.Info("client disconnected", "remote", r.RemoteAddr)
	}()
	// Reads only serve to notice the client going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
