// Package server exposes the render cycle over HTTP. Every request runs one
// full cycle for the caller's session, identified by a cookie.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/where2work/internal/cycle"
	"github.com/hupe1980/where2work/internal/filter"
	"github.com/hupe1980/where2work/internal/output"
	"github.com/hupe1980/where2work/internal/roster"
	"github.com/hupe1980/where2work/internal/selection"
	"github.com/hupe1980/where2work/internal/version"
)

// DefaultCookieName names the session cookie.
const DefaultCookieName = "where2work_session"

// Options configures a Server.
type Options struct {
	// Registry receives the metrics and serves /metrics. Nil creates a
	// private registry.
	Registry *prometheus.Registry
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// CookieName defaults to DefaultCookieName.
	CookieName string
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
	// SVG sizes chart images.
	SVG output.SVGOptions
}

// Server serves the JSON API, chart images and metrics.
type Server struct {
	svc     *cycle.Service
	metrics *Metrics
	logger  *slog.Logger
	opts    Options
	router  *mux.Router
}

type sessionKey struct{}

// New builds a Server around svc.
func New(svc *cycle.Service, opts Options) *Server {
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}

	if opts.SVG == (output.SVGOptions{}) {
		opts.SVG = output.DefaultSVGOptions()
	}

	s := &Server{
		svc:     svc,
		metrics: NewMetrics(opts.Registry),
		logger:  opts.Logger,
		opts:    opts,
		router:  mux.NewRouter(),
	}

	s.metrics.entities.Set(float64(svc.Engine().Dataset().Len()))
	s.routes()

	return s
}

func (s *Server) routes() {
	s.router.Use(s.instrument)

	s.router.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.opts.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.session)
	api.HandleFunc("/render", s.render).Methods(http.MethodGet)
	api.HandleFunc("/click", s.click).Methods(http.MethodPost)
	api.HandleFunc("/shortlist", s.shortlist).Methods(http.MethodGet)
	api.HandleFunc("/shortlist/clear", s.clear).Methods(http.MethodPost)
	api.HandleFunc("/options", s.options).Methods(http.MethodGet)

	charts := s.router.PathPrefix("/chart").Subrouter()
	charts.Use(s.session)
	charts.HandleFunc("/{chart:pool|shortlist}.svg", s.chartSVG).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// DatasetReloaded updates the dataset gauge after the engine's dataset was
// swapped.
func (s *Server) DatasetReloaded(ds *roster.Dataset) {
	s.metrics.entities.Set(float64(ds.Len()))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("serving", slog.String("addr", addr))

	select {
	case err := <-errCh:
		return fmt.Errorf("serving %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

		w.Header().Set("Server", version.GetInfo().UserAgent())
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		s.metrics.requests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("status", rec.code),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// session resolves the session cookie, issuing a new id when absent.
func (s *Server) session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(s.opts.CookieName); err == nil {
			if _, perr := uuid.Parse(c.Value); perr == nil {
				id = c.Value
			}
		}

		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     s.opts.CookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.opts.SecureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	})
}

func sessionFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	if s.svc.Engine().Dataset() == nil {
		http.Error(w, "no dataset", http.StatusServiceUnavailable)
		return
	}

	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	res, err := s.svc.Render(r.Context(), sessionFrom(r.Context()), criteriaFrom(r))
	if err != nil {
		s.fail(w, err)
		return
	}

	s.metrics.renders.WithLabelValues("render").Observe(time.Since(start).Seconds())
	s.metrics.shortlists.Set(float64(res.Selection.Len()))
	writeJSON(w, http.StatusOK, res)
}

// ClickRequest is the body of POST /api/click. Index is required.
type ClickRequest struct {
	Chart string `json:"chart"`
	Index *int   `json:"index"`
}

// ClickResponse is returned by POST /api/click.
type ClickResponse struct {
	Outcome selection.Outcome `json:"outcome"`
	Entity  string            `json:"entity,omitempty"`
	Render  *cycle.Render     `json:"render"`
}

func (s *Server) click(w http.ResponseWriter, r *http.Request) {
	var req ClickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid click: "+err.Error(), http.StatusBadRequest)
		return
	}

	chart, err := selection.ParseChart(req.Chart)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Index == nil {
		http.Error(w, "invalid click: index is required", http.StatusBadRequest)
		return
	}

	start := time.Now()

	step, err := s.svc.Click(r.Context(), sessionFrom(r.Context()), criteriaFrom(r),
		cycle.MarkerClick{Chart: chart, Index: *req.Index})
	if err != nil {
		s.fail(w, err)
		return
	}

	s.metrics.renders.WithLabelValues("click").Observe(time.Since(start).Seconds())
	s.metrics.clicks.WithLabelValues(string(chart), string(step.Outcome)).Inc()
	s.metrics.shortlists.Set(float64(step.Selection.Len()))

	writeJSON(w, http.StatusOK, ClickResponse{
		Outcome: step.Outcome,
		Entity:  step.Click.EntityID,
		Render:  step.Render,
	})
}

func (s *Server) shortlist(w http.ResponseWriter, r *http.Request) {
	set, err := s.svc.Shortlist(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		s.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, set)
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Clear(r.Context(), sessionFrom(r.Context()), criteriaFrom(r))
	if err != nil {
		s.fail(w, err)
		return
	}

	s.metrics.shortlists.Set(0)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) options(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Engine().Options())
}

func (s *Server) chartSVG(w http.ResponseWriter, r *http.Request) {
	chart := selection.Chart(mux.Vars(r)["chart"])

	res, err := s.svc.Render(r.Context(), sessionFrom(r.Context()), criteriaFrom(r))
	if err != nil {
		s.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")

	if err := output.RenderSVG(w, res.View(chart), s.opts.SVG); err != nil {
		s.logger.Error("rendering chart", slog.String("chart", string(chart)), slog.String("error", err.Error()))
	}
}

// criteriaFrom reads repeated location, band and industry query parameters.
func criteriaFrom(r *http.Request) filter.Criteria {
	q := r.URL.Query()

	return filter.Criteria{
		Locations:  q["location"],
		Bands:      q["band"],
		Industries: q["industry"],
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError

	switch {
	case errors.Is(err, cycle.ErrNoDataset):
		code = http.StatusServiceUnavailable
	case errors.Is(err, selection.ErrInvalidSession):
		code = http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		code = 499
	}

	s.logger.Error("cycle failed", slog.Int("status", code), slog.String("error", err.Error()))
	http.Error(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(v)
}
