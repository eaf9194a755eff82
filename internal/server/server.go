// Package server exposes the analyzer over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"aireviewer/internal/archive"
	"aireviewer/internal/report"
	"aireviewer/internal/util/jsonutil"
)

// Analyzer produces a report for an unpacked repository.
type Analyzer interface {
	Analyze(ctx context.Context, root, requirements string) (report.Report, error)
}

// ArchiveStore resolves archive keys to sources.
type ArchiveStore interface {
	Object(key string) archive.Source
}

const defaultMaxUpload = 256 << 20

type Server struct {
	analyzer  Analyzer
	archives  ArchiveStore
	log       *log.Logger
	maxUpload int64
}

// New builds a Server. archives may be nil, in which case archive_key
// requests are rejected.
func New(analyzer Analyzer, archives ArchiveStore, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{analyzer: analyzer, archives: archives, log: logger, maxUpload: defaultMaxUpload}
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", s.handleAnalyze)
	mux.HandleFunc("/health", s.handleHealth)
	return withCORS(mux)
}

// ListenAndServe serves plain HTTP/1.1 and h2c on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Printf("Starting API server on %s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "Upload too large.")
			return
		}
		writeError(w, http.StatusBadRequest, "Expected a multipart form body.")
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	problem := strings.TrimSpace(r.FormValue("problem_description"))
	if problem == "" {
		writeError(w, http.StatusBadRequest, "problem_description is required.")
		return
	}
	src, status, detail := s.source(r)
	if src == nil {
		writeError(w, status, detail)
		return
	}

	runID := uuid.NewString()
	w.Header().Set("X-Run-ID", runID)
	s.log.Printf("analyze[%s]: started", runID)
	start := time.Now()

	dir, cleanup, err := archive.Open(r.Context(), src)
	defer cleanup()
	if err != nil {
		s.log.Printf("analyze[%s]: archive: %v", runID, err)
		switch {
		case errors.Is(err, archive.ErrInvalidArchive):
			writeError(w, http.StatusBadRequest, "Invalid zip archive.")
		case errors.Is(err, archive.ErrNotFound):
			writeError(w, http.StatusNotFound, "Archive not found.")
		default:
			writeError(w, http.StatusBadGateway, "Failed to load archive.")
		}
		return
	}

	rep, err := s.analyzer.Analyze(r.Context(), dir, problem)
	if err != nil {
		s.log.Printf("analyze[%s]: failed after %s: %v", runID, time.Since(start).Round(time.Millisecond), err)
		var rerr *report.Error
		if errors.As(err, &rerr) {
			writeError(w, http.StatusBadGateway, rerr.Reason)
			return
		}
		writeError(w, http.StatusInternalServerError, "Analysis failed.")
		return
	}
	s.log.Printf("analyze[%s]: done in %s", runID, time.Since(start).Round(time.Millisecond))
	writeJSON(w, http.StatusOK, rep)
}

// source picks the uploaded zip or, failing that, the archive key. A nil
// Source comes with the status and detail to reply with.
func (s *Server) source(r *http.Request) (archive.Source, int, string) {
	file, hdr, err := r.FormFile("code_zip")
	if err == nil {
		defer file.Close()
		if !strings.HasSuffix(strings.ToLower(hdr.Filename), ".zip") {
			return nil, http.StatusBadRequest, "Uploaded file must be a .zip archive."
		}
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, http.StatusBadRequest, "Failed to read upload."
		}
		return archive.Bytes(data), 0, ""
	}
	if key := strings.TrimSpace(r.FormValue("archive_key")); key != "" {
		if s.archives == nil {
			return nil, http.StatusBadRequest, "archive_key requires a configured archive store."
		}
		return s.archives.Object(key), 0, ""
	}
	return nil, http.StatusBadRequest, "code_zip or archive_key is required."
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = jsonutil.Encode(w, v, "")
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Vary", "Origin")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "X-Run-ID")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
