// Package server exposes validation and rendering of state diagrams over
// HTTP.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mitchellh/mapstructure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ha1tch/webstde/pkg/stde"
	"github.com/ha1tch/webstde/pkg/stdefile"
)

// Options configures the handler.
type Options struct {
	MaxBodyBytes int64
	SVG          stdefile.SVGOptions
	PNG          stdefile.PNGOptions
}

// DefaultOptions returns a 1 MiB body limit and default render settings.
func DefaultOptions() Options {
	return Options{
		MaxBodyBytes: 1 << 20,
		SVG:          stdefile.DefaultSVGOptions(),
		PNG:          stdefile.DefaultPNGOptions(),
	}
}

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rejected *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stde_http_requests_total",
				Help: "HTTP requests by route and status code.",
			},
			[]string{"route", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stde_http_request_duration_seconds",
				Help:    "HTTP request latency by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stde_documents_rejected_total",
				Help: "Diagram documents rejected, by reason.",
			},
			[]string{"reason"},
		),
	}
	reg.MustRegister(m.requests, m.duration, m.rejected)
	return m
}

// Server holds the router and its collaborators.
type Server struct {
	log     *slog.Logger
	opts    Options
	metrics *metrics
	router  chi.Router
}

// New builds the HTTP handler. Metrics are registered on a registry owned
// by the server, so several servers can coexist in one process.
func New(log *slog.Logger, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultOptions().MaxBodyBytes
	}
	reg := prometheus.NewRegistry()
	s := &Server{
		log:     log,
		opts:    opts,
		metrics: newMetrics(reg),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Route("/v1", func(r chi.Router) {
		r.Post("/validate", s.handleValidate)
		r.Post("/dot", s.handleDOT)
		r.Post("/render/svg", s.handleSVG)
		r.Post("/render/png", s.handlePNG)
		r.Post("/layout", s.handleLayout)
	})
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// instrument records count and latency per matched route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		s.metrics.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
		s.metrics.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ValidateResponse summarises an accepted document.
type ValidateResponse struct {
	Valid       bool   `json:"valid"`
	ID          string `json:"id"`
	Signals     int    `json:"signals"`
	States      int    `json:"states"`
	Transitions int    `json:"transitions"`

	Warnings []stde.Warning `json:"warnings"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	m, ok := s.readMachine(w, r)
	if !ok {
		return
	}
	warnings := m.Analyse()
	if warnings == nil {
		warnings = []stde.Warning{}
	}
	writeJSON(w, http.StatusOK, ValidateResponse{
		Valid:       true,
		ID:          m.ID(),
		Signals:     len(m.Signals()),
		States:      len(m.States()),
		Transitions: len(m.Transitions()),
		Warnings:    warnings,
	})
}

// renderParams are the query parameters accepted by the render routes.
type renderParams struct {
	Width   int    `mapstructure:"width"`
	Height  int    `mapstructure:"height"`
	Title   string `mapstructure:"title"`
	Outputs *bool  `mapstructure:"outputs"`
}

// decodeQuery decodes the query string into out. The last value of a
// repeated key wins and unknown keys are rejected.
func decodeQuery(r *http.Request, out any) error {
	raw := make(map[string]any)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			raw[k] = v[len(v)-1]
		}
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func decodeParams(r *http.Request) (renderParams, error) {
	var p renderParams
	if err := decodeQuery(r, &p); err != nil {
		return p, err
	}
	if p.Width < 0 || p.Height < 0 || p.Width > 8192 || p.Height > 8192 {
		return p, fmt.Errorf("width and height must be within [1, 8192]")
	}
	return p, nil
}

func (s *Server) handleDOT(w http.ResponseWriter, r *http.Request) {
	p, err := decodeParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	m, ok := s.readMachine(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	io.WriteString(w, stdefile.GenerateDOT(m, p.Title))
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	p, err := decodeParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	m, ok := s.readMachine(w, r)
	if !ok {
		return
	}
	opts := s.opts.SVG
	if p.Width > 0 {
		opts.Width = p.Width
	}
	if p.Height > 0 {
		opts.Height = p.Height
	}
	if p.Outputs != nil {
		opts.ShowOutputs = *p.Outputs
	}
	opts.Title = p.Title
	w.Header().Set("Content-Type", "image/svg+xml")
	io.WriteString(w, stdefile.RenderSVG(m, opts))
}

func (s *Server) handlePNG(w http.ResponseWriter, r *http.Request) {
	p, err := decodeParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	m, ok := s.readMachine(w, r)
	if !ok {
		return
	}
	opts := s.opts.PNG
	if p.Width > 0 {
		opts.Width = p.Width
	}
	if p.Height > 0 {
		opts.Height = p.Height
	}
	if p.Outputs != nil {
		opts.ShowOutputs = *p.Outputs
	}
	opts.Title = p.Title

	// Render fully before writing so a failure can still set the status.
	var buf bytes.Buffer
	if err := stdefile.RenderPNG(m, &buf, opts); err != nil {
		s.log.Error("render png", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}

// layoutParams are the query parameters accepted by the layout route.
type layoutParams struct {
	Algorithm string   `mapstructure:"algorithm"`
	HGap      *float64 `mapstructure:"hgap"`
	VGap      *float64 `mapstructure:"vgap"`
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	p := layoutParams{Algorithm: "layered"}
	if err := decodeQuery(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	alg, err := stdefile.ParseLayoutAlgorithm(p.Algorithm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	opts := stdefile.DefaultLayoutOptions()
	if p.HGap != nil {
		opts.HGap = *p.HGap
	}
	if p.VGap != nil {
		opts.VGap = *p.VGap
	}
	if opts.HGap < 0 || opts.VGap < 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("hgap and vgap must not be negative"))
		return
	}

	m, ok := s.readMachine(w, r)
	if !ok {
		return
	}
	stdefile.Arrange(m, alg, opts)
	doc, err := m.Serialize()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// readMachine reads and validates the request body. On failure it writes
// the response and returns false.
func (s *Server) readMachine(w http.ResponseWriter, r *http.Request) (*stde.StateMachine, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.metrics.rejected.WithLabelValues("too_large").Inc()
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return nil, false
		}
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}

	m, err := stdefile.ParseJSON(body)
	if err != nil {
		status, reason := classify(err)
		s.metrics.rejected.WithLabelValues(reason).Inc()
		s.log.Debug("rejected document", "reason", reason, "error", err)
		writeError(w, status, err)
		return nil, false
	}
	return m, true
}

// classify maps a parse error to an HTTP status and a metric label.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, stde.ErrReferentialIntegrity):
		return http.StatusUnprocessableEntity, "referential_integrity"
	case errors.Is(err, stde.ErrValidation):
		return http.StatusUnprocessableEntity, "validation"
	}
	return http.StatusBadRequest, "malformed"
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
