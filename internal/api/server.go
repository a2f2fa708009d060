// Package api serves stored pipeline results over HTTP: trial records,
// visit summaries, the summary report and run history.
package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/gaze.report/internal/db"
	"github.com/banshee-data/gaze.report/internal/httputil"
	"github.com/banshee-data/gaze.report/internal/merge"
	"github.com/banshee-data/gaze.report/internal/monitoring"
	"github.com/banshee-data/gaze.report/internal/report"
	"github.com/banshee-data/gaze.report/internal/trial"
	"github.com/banshee-data/gaze.report/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Store is the read side of the results database.
type Store interface {
	Trials(version, wid string) ([]trial.Record, error)
	Participants(version string) ([]string, error)
	VisitSummaries(version, wid string) ([]merge.Summary, error)
	RecentRuns(limit int) ([]db.Run, error)
}

type Server struct {
	store   Store
	version string
}

// NewServer serves results from store. Requests without a version query
// parameter use defaultVersion.
func NewServer(store Store, defaultVersion string) *Server {
	return &Server{store: store, version: defaultVersion}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the API routes, rooted at "/" so the caller can mount
// them under a prefix.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/trials", s.listTrials)
	mux.HandleFunc("/participants", s.listParticipants)
	mux.HandleFunc("/visits", s.listVisits)
	mux.HandleFunc("/summary", s.showSummary)
	mux.HandleFunc("/runs", s.listRuns)
	mux.HandleFunc("/version", s.showVersion)
	return mux
}

// Handler mounts the API under /api/ and the dashboard under /report next
// to whatever mux already serves.
func (s *Server) Handler(mux *http.ServeMux) http.Handler {
	mux.Handle("/api/", http.StripPrefix("/api", s.ServeMux()))
	mux.HandleFunc("/report", s.showDashboard)
	mux.HandleFunc("/report/rt.png", s.showHistogram)
	return LoggingMiddleware(mux)
}

func (s *Server) versionParam(r *http.Request) string {
	if v := r.URL.Query().Get("version"); v != "" {
		return v
	}
	return s.version
}

func (s *Server) listTrials(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	recs, err := s.store.Trials(s.versionParam(r), r.URL.Query().Get("wid"))
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if recs == nil {
		recs = []trial.Record{}
	}
	httputil.WriteJSONOK(w, recs)
}

func (s *Server) listParticipants(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	wids, err := s.store.Participants(s.versionParam(r))
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if wids == nil {
		wids = []string{}
	}
	httputil.WriteJSONOK(w, wids)
}

func (s *Server) listVisits(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	wid := r.URL.Query().Get("wid")
	if wid == "" {
		httputil.BadRequest(w, "wid is required")
		return
	}
	sums, err := s.store.VisitSummaries(s.versionParam(r), wid)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if len(sums) == 0 {
		httputil.NotFound(w, "no visit summaries for "+wid)
		return
	}
	httputil.WriteJSONOK(w, sums)
}

func (s *Server) summary(r *http.Request) (report.Summary, error) {
	v := s.versionParam(r)
	recs, err := s.store.Trials(v, r.URL.Query().Get("wid"))
	if err != nil {
		return report.Summary{}, err
	}
	return report.Summarize(v, recs), nil
}

func (s *Server) showSummary(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	sum, err := s.summary(r)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, sum)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	limit, err := httputil.QueryInt(r, "limit", 20, 500)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	runs, err := s.store.RecentRuns(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	httputil.WriteJSONOK(w, runs)
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	httputil.WriteJSONOK(w, version.Current())
}

func (s *Server) showDashboard(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	sum, err := s.summary(r)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	var buf bytes.Buffer
	if err := report.RenderDashboard(&buf, sum); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteHTML(w, buf.Bytes())
}

func (s *Server) showHistogram(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	bins, err := httputil.QueryInt(r, "bins", 20, 200)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	recs, err := s.store.Trials(s.versionParam(r), r.URL.Query().Get("wid"))
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	var buf bytes.Buffer
	if err := report.WriteRTHistogram(&buf, recs, bins); err != nil {
		if errors.Is(err, report.ErrNoReactionTimes) {
			httputil.NotFound(w, err.Error())
			return
		}
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(buf.Bytes()); err != nil {
		monitoring.Logf("failed to write histogram: %v", err)
	}
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}
