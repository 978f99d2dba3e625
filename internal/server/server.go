// Package server exposes a map session over HTTP for the browser shell.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/provmap/internal/overlay"
	"github.com/sells-group/provmap/internal/session"
)

// Options configures the HTTP handler.
type Options struct {
	Session *session.Session
	// Tiles serves /{z}/{x}/{y}.{ext} under /basemap. Optional.
	Tiles http.Handler
	// Gatherer backs /metrics. Optional.
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
}

// Server routes HTTP requests to a session.
type Server struct {
	sess     *session.Session
	tiles    http.Handler
	gatherer prometheus.Gatherer
	origins  []string
	log      *zap.Logger
}

// New creates a Server.
func New(opts Options) *Server {
	return &Server{
		sess:     opts.Session,
		tiles:    opts.Tiles,
		gatherer: opts.Gatherer,
		origins:  opts.AllowedOrigins,
		log:      zap.L().With(zap.String("component", "server")),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)

	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/reload", s.handleReload)
		r.Get("/map", s.handleMap)
		r.Get("/view", s.handleView)
		r.Get("/choropleth", s.handleChoropleth)
		r.Get("/catalog", s.handleCatalog)
		r.Put("/selection/group", s.handleSelectGroup)
		r.Put("/selection/metric", s.handleSelectMetric)
		r.Get("/overlays", s.handleOverlays)
		r.Put("/overlays/opacity", s.handleOverlayOpacity)
		r.Put("/overlays/{id}", s.handleToggleOverlay)
		r.Get("/diagnostics", s.handleDiagnostics)
		r.Get("/joins", s.handleJoins)
	})

	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	if s.tiles != nil {
		r.Handle("/basemap/*", http.StripPrefix("/basemap", s.tiles))
	}

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"loaded": s.sess.Status().Loaded,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Status())
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.sess.Load(r.Context()); err != nil {
		s.log.Warn("reload failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, s.sess.Status())
		return
	}
	s.sess.LoadOverlays(r.Context())
	writeJSON(w, http.StatusOK, s.sess.Status())
}

func (s *Server) handleMap(w http.ResponseWriter, _ *http.Request) {
	if st := s.sess.Status(); !st.Loaded {
		s.writeNotLoaded(w)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	if err := s.sess.WriteMap(w); err != nil {
		s.log.Error("write map", zap.Error(err))
	}
}

func (s *Server) handleView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.MapView())
}

func (s *Server) handleChoropleth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Summary())
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Catalog())
}

func (s *Server) handleSelectGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Group string `json:"group"`
	}
	if !decode(w, r, &req) {
		return
	}
	sel, err := s.sess.SelectGroup(req.Group)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

func (s *Server) handleSelectMetric(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Metric string `json:"metric"`
	}
	if !decode(w, r, &req) {
		return
	}
	sel, err := s.sess.SelectMetric(req.Metric)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

func (s *Server) handleOverlays(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Overlays())
}

func (s *Server) handleOverlayOpacity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Opacity *float64 `json:"opacity"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Opacity == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "opacity is required"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"opacity": s.sess.SetOverlayOpacity(*req.Opacity)})
}

func (s *Server) handleToggleOverlay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if !decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	layer, err := s.sess.ToggleOverlay(id, req.Enabled)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if layer == nil {
		writeJSON(w, http.StatusOK, map[string]any{"overlay_id": id, "active": false})
		return
	}
	writeJSON(w, http.StatusOK, layer)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Diagnostics())
}

func (s *Server) handleJoins(w http.ResponseWriter, _ *http.Request) {
	joins, err := s.sess.Joins()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joins)
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeNotLoaded(w http.ResponseWriter) {
	msg := "not loaded"
	if alert := s.sess.Status().Alert; alert != "" {
		msg = alert
	}
	writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: msg})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, session.ErrNotLoaded):
		s.writeNotLoaded(w)
	case eris.Is(err, session.ErrUnknownGroup),
		eris.Is(err, session.ErrUnknownMetric),
		eris.Is(err, overlay.ErrUnknownOverlay):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case eris.Is(err, overlay.ErrNoBounds):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	default:
		s.log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
