package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/xrfsim/internal/artifact"
	"github.com/banshee-data/xrfsim/internal/ledger"
	"github.com/banshee-data/xrfsim/internal/monitoring"
	"github.com/banshee-data/xrfsim/internal/spectrum"
	"github.com/banshee-data/xrfsim/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// RunStore is the read side of the ledger.
type RunStore interface {
	ListRuns(ctx context.Context, limit int) ([]ledger.Run, error)
	GetRun(ctx context.Context, id string) (ledger.Run, error)
	Windows(ctx context.Context, runID string) ([]ledger.WindowCount, error)
}

type Server struct {
	runs  RunStore
	store artifact.Store

	// ChartAssetsHost overrides where chart pages load echarts from.
	ChartAssetsHost string
}

func NewServer(runs RunStore, store artifact.Store) *Server {
	return &Server{
		runs:  runs,
		store: store,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
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

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/runs", s.listRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.showRun)
	mux.HandleFunc("GET /api/runs/{id}/spectrum", s.showSpectrum)
	mux.HandleFunc("GET /api/runs/{id}/chart", s.showChart)
	mux.HandleFunc("GET /api/version", s.showVersion)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("failed to write response: %v", err)
	}
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50 // default value
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 0 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve runs: %v", err))
		return
	}
	if runs == nil {
		runs = []ledger.Run{}
	}
	s.writeJSON(w, runs)
}

// lookupRun resolves the {id} path value, writing the error response itself
// when the run cannot be served.
func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (ledger.Run, bool) {
	run, err := s.runs.GetRun(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		s.writeJSONError(w, http.StatusNotFound, err.Error())
		return run, false
	case err != nil:
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve run: %v", err))
		return run, false
	}
	return run, true
}

type runDetail struct {
	ledger.Run
	Windows []ledger.WindowCount `json:"windows"`
}

func (s *Server) showRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	windows, err := s.runs.Windows(r.Context(), run.ID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve windows: %v", err))
		return
	}
	if windows == nil {
		windows = []ledger.WindowCount{}
	}
	s.writeJSON(w, runDetail{Run: run, Windows: windows})
}

// runSpectrum loads the spectrum and the recorded windows of a run.
func (s *Server) runSpectrum(w http.ResponseWriter, r *http.Request) (ledger.Run, spectrum.Spectrum, map[string]spectrum.Window, bool) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return run, nil, nil, false
	}
	spec, err := run.Spectrum(s.store)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, spectrum.ErrNoSpectrum) {
			status = http.StatusNotFound
		}
		s.writeJSONError(w, status, fmt.Sprintf("Failed to load spectrum: %v", err))
		return run, nil, nil, false
	}
	counts, err := s.runs.Windows(r.Context(), run.ID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve windows: %v", err))
		return run, nil, nil, false
	}
	windows := make(map[string]spectrum.Window, len(counts))
	for _, c := range counts {
		windows[c.Window] = spectrum.Window{Low: c.Low, High: c.High}
	}
	return run, spec, windows, true
}

// showSpectrum serves the channels as JSON, or as a rendered plot when
// format is png, svg or pdf.
func (s *Server) showSpectrum(w http.ResponseWriter, r *http.Request) {
	run, spec, windows, ok := s.runSpectrum(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", "json":
		s.writeJSON(w, spec)
	case "png", "svg", "pdf":
		contentType := map[string]string{
			"png": "image/png",
			"svg": "image/svg+xml",
			"pdf": "application/pdf",
		}[format]
		w.Header().Set("Content-Type", contentType)
		err := spec.Plot(w, spectrum.PlotOptions{
			Title:   run.Name,
			Windows: windows,
			LogY:    r.URL.Query().Get("log") == "true",
			Format:  format,
		})
		if err != nil {
			monitoring.Logf("failed to plot run %s: %v", run.ID, err)
		}
	default:
		s.writeJSONError(w, http.StatusBadRequest, "Invalid 'format' parameter")
	}
}

func (s *Server) showChart(w http.ResponseWriter, r *http.Request) {
	run, spec, windows, ok := s.runSpectrum(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := spec.Chart(w, spectrum.ChartOptions{
		Title:      run.Name,
		Subtitle:   run.Started.Format(time.RFC3339),
		Windows:    windows,
		AssetsHost: s.ChartAssetsHost,
	})
	if err != nil {
		monitoring.Logf("failed to chart run %s: %v", run.ID, err)
	}
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}
