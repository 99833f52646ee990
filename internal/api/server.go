// Package api exposes the catalog over HTTP: statistics, the processing
// queue, search, and the initial-scan trigger. The handlers are a thin
// mapping onto the store and the reconciler; all tracking semantics live
// below this layer.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/vollcheck/watchy/internal/catalog"
	"github.com/vollcheck/watchy/internal/classify"
	"github.com/vollcheck/watchy/internal/reconcile"
	"github.com/vollcheck/watchy/internal/util"
)

// Config holds server configuration
type Config struct {
	// Port to listen on (default: 8000)
	Port int

	// Root is the watched footage directory, reported by / and scanned
	// by /scan/initial.
	Root string

	// DBPath is reported by / for operator convenience.
	DBPath string

	Store      *catalog.Store
	Reconciler *reconcile.Reconciler
}

// Server serves the catalog API
type Server struct {
	addr       string
	root       string
	dbPath     string
	store      *catalog.Store
	reconciler *reconcile.Reconciler

	listener net.Listener
	server   *http.Server
}

// NewServer creates the API server. Call Start to begin serving.
func NewServer(cfg Config) *Server {
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	return &Server{
		addr:       fmt.Sprintf(":%d", cfg.Port),
		root:       cfg.Root,
		dbPath:     cfg.DBPath,
		store:      cfg.Store,
		reconciler: cfg.Reconciler,
	}
}

// Handler returns the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("POST /scan/initial", s.handleInitialScan)
	mux.HandleFunc("GET /files/unprocessed", s.handleUnprocessed)
	mux.HandleFunc("GET /files/search", s.handleSearch)
	mux.HandleFunc("POST /process/batch", s.handleProcessBatch)
	mux.HandleFunc("POST /process/{id}", s.handleProcessOne)
	return mux
}

// Start begins listening and serving in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second, // an initial scan can be slow
	}

	go func() {
		util.InfoLog("API listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			util.ErrorLog("API server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service":         "Footage Tracker API",
		"watch_directory": s.root,
		"database":        s.dbPath,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleInitialScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if raw := r.URL.Query().Get("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			badRequest(w, fmt.Sprintf("invalid timeout %q", raw))
			return
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	result, err := s.reconciler.Reconcile(ctx, s.root)
	if err != nil {
		serverError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "Initial scan completed",
		"items_touched":   result.Touched,
		"entries_skipped": result.Skipped,
		"elapsed_ms":      result.Elapsed.Milliseconds(),
		"directory":       s.root,
	})
}

func (s *Server) handleUnprocessed(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 100)
	kind := classify.Kind(r.URL.Query().Get("kind"))

	entities, err := s.store.Unprocessed(kind, limit)
	if err != nil {
		serverError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(entities),
		"files": toEntityJSON(entities),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := queryLimit(r, 100)

	entities, err := s.store.Search(q.Get("filename"), q.Get("directory"), classify.Kind(q.Get("kind")), limit)
	if err != nil {
		serverError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(entities),
		"files": toEntityJSON(entities),
	})
}

func (s *Server) handleProcessOne(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		badRequest(w, "invalid file ID")
		return
	}

	ok, err := s.store.MarkProcessed(id, time.Now())
	if err != nil {
		serverError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "file not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("File %d marked as processed", id),
	})
}

func (s *Server) handleProcessBatch(w http.ResponseWriter, r *http.Request) {
	var ids []int64
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		badRequest(w, "request body must be a JSON array of file IDs")
		return
	}

	count, err := s.store.MarkProcessedBatch(ids, time.Now())
	if err != nil {
		serverError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Marked %d files as processed", count),
		"count":   count,
	})
}

// entityJSON is the wire shape of a catalog row
type entityJSON struct {
	ID          int64      `json:"id"`
	Path        string     `json:"path"`
	Filename    string     `json:"filename"`
	ParentDir   string     `json:"parent_directory"`
	Kind        string     `json:"kind"`
	SizeBytes   int64      `json:"size_bytes"`
	Present     bool       `json:"present"`
	Processed   bool       `json:"processed"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	FirstSeenAt time.Time  `json:"first_seen_at"`
	LastSeenAt  time.Time  `json:"last_seen_at"`
}

func toEntityJSON(entities []*catalog.Entity) []entityJSON {
	out := make([]entityJSON, 0, len(entities))
	for _, e := range entities {
		out = append(out, entityJSON{
			ID:          e.ID,
			Path:        e.Path,
			Filename:    e.Filename,
			ParentDir:   e.ParentDir,
			Kind:        string(e.Kind),
			SizeBytes:   e.SizeBytes,
			Present:     e.Present,
			Processed:   e.Processed,
			ProcessedAt: e.ProcessedAt,
			FirstSeenAt: e.FirstSeenAt,
			LastSeenAt:  e.LastSeenAt,
		})
	}
	return out
}

func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		util.ErrorLog("Failed to encode response: %v", err)
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func serverError(w http.ResponseWriter, err error) {
	util.ErrorLog("Request failed: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
