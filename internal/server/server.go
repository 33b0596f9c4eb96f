// Package server implements an HTTP membership service around a single
// bloomset.Filter.
package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/jcalabro/bloomset"
	"github.com/jcalabro/bloomset/internal/metrics"
	"github.com/jcalabro/bloomset/keyhash"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// maxBodyBytes bounds request bodies
	maxBodyBytes = 8 << 20

	shutdownTimeout = 10 * time.Second
)

// Config controls where the service listens and how it persists its filter.
type Config struct {
	Addr string

	// FilterPath is where snapshots are written. Empty disables snapshots.
	FilterPath string

	// SnapshotInterval is the period of background snapshots. Zero disables
	// the background loop; a final snapshot is still written on shutdown.
	SnapshotInterval time.Duration
}

// Server owns a filter and serves membership queries against it. The filter
// is guarded by mu; no other code should touch it while the server runs.
type Server struct {
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	reg     *prometheus.Registry
	handler http.Handler

	snapMu sync.Mutex
	mu     sync.RWMutex
	filter *bloomset.Filter
}

// New returns a server for f. The server takes ownership of f.
func New(cfg Config, f *bloomset.Filter, logger *zap.Logger) *Server {
	reg := prometheus.NewRegistry()
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(reg),
		reg:     reg,
		filter:  f,
	}
	reg.MustRegister(metrics.NewFilterCollector("default", s.stats))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/add", s.handleAdd)
	mux.HandleFunc("POST /v1/contains", s.handleContainsBatch)
	mux.HandleFunc("GET /v1/contains", s.handleContains)
	mux.HandleFunc("POST /v1/test-and-add", s.handleTestAndAdd)
	mux.HandleFunc("GET /v1/info", s.handleInfo)
	mux.HandleFunc("POST /v1/clear", s.handleClear)
	mux.HandleFunc("POST /v1/snapshot", s.handleSnapshot)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	s.handler = mux

	return s
}

// Handler returns the HTTP handler of the service.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Registry returns the registry the service metrics are registered with.
func (s *Server) Registry() *prometheus.Registry {
	return s.reg
}

func (s *Server) stats() metrics.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return metrics.StatsOf(s.filter)
}

// Snapshot writes the filter to the configured path. The filter is copied
// under the read lock so writers are only blocked for the copy.
func (s *Server) Snapshot() error {
	if s.cfg.FilterPath == "" {
		return nil
	}

	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	s.mu.RLock()
	snap := s.filter.Copy()
	s.mu.RUnlock()

	start := time.Now()
	err := snap.SaveFile(s.cfg.FilterPath)
	duration := time.Since(start)
	s.metrics.SnapshotDuration.Observe(duration.Seconds())
	if err != nil {
		s.metrics.SnapshotsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("writing snapshot to %s: %w", s.cfg.FilterPath, err)
	}
	s.metrics.SnapshotsTotal.WithLabelValues("ok").Inc()

	s.logger.Debug("Wrote snapshot",
		zap.String("path", s.cfg.FilterPath),
		zap.Uint64("popcount", snap.Popcount()),
		zap.Duration("duration", duration))
	return nil
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down and writes
// a final snapshot.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is like Run but accepts connections on ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Membership service listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if s.cfg.SnapshotInterval > 0 && s.cfg.FilterPath != "" {
		g.Go(func() error {
			s.snapshotLoop(gCtx)
			return nil
		})
	}

	err := g.Wait()
	if snapErr := s.Snapshot(); snapErr != nil {
		s.logger.Error("Final snapshot failed", zap.Error(snapErr))
		return errors.Join(err, snapErr)
	}
	return err
}

func (s *Server) snapshotLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Snapshot(); err != nil {
				s.logger.Warn("Periodic snapshot failed", zap.Error(err))
			}
		}
	}
}

type keysRequest struct {
	Keys []string `json:"keys"`
}

type addResponse struct {
	Added int `json:"added"`
}

type containsBatchResponse struct {
	Results []bool `json:"results"`
}

type containsResponse struct {
	Key     string `json:"key"`
	Present bool   `json:"present"`
}

type infoResponse struct {
	SizeInBits uint64 `json:"size_in_bits"`
	K          uint64 `json:"k"`
	Popcount   uint64 `json:"popcount"`
	// ApproxItems is null once the filter is saturated
	ApproxItems  *float64 `json:"approx_items"`
	FillRatio    float64  `json:"fill_ratio"`
	EstimatedFPR float64  `json:"estimated_fpr"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	s.metrics.RequestsTotal.WithLabelValues("add").Inc()

	req, ok := s.decodeKeys(w, r)
	if !ok {
		return
	}
	hashes := keyhash.Strings(req.Keys)

	s.mu.Lock()
	for _, h := range hashes {
		s.filter.Add(h)
	}
	s.mu.Unlock()

	s.metrics.KeysTotal.WithLabelValues("add", "added").Add(float64(len(hashes)))
	s.writeJSON(w, http.StatusOK, addResponse{Added: len(hashes)})
}

func (s *Server) handleContainsBatch(w http.ResponseWriter, r *http.Request) {
	s.metrics.RequestsTotal.WithLabelValues("contains").Inc()

	req, ok := s.decodeKeys(w, r)
	if !ok {
		return
	}
	hashes := keyhash.Strings(req.Keys)
	results := make([]bool, len(hashes))

	s.mu.RLock()
	for i, h := range hashes {
		results[i] = s.filter.Contains(h)
	}
	s.mu.RUnlock()

	s.countResults("contains", results)
	s.writeJSON(w, http.StatusOK, containsBatchResponse{Results: results})
}

func (s *Server) handleContains(w http.ResponseWriter, r *http.Request) {
	s.metrics.RequestsTotal.WithLabelValues("contains").Inc()

	key, ok := r.URL.Query()["key"]
	if !ok || len(key) != 1 {
		s.writeError(w, http.StatusBadRequest, errors.New("exactly one key query parameter is required"))
		return
	}
	h := keyhash.String(key[0])

	s.mu.RLock()
	present := s.filter.Contains(h)
	s.mu.RUnlock()

	s.countResults("contains", []bool{present})
	s.writeJSON(w, http.StatusOK, containsResponse{Key: key[0], Present: present})
}

// handleTestAndAdd reports for each key whether it was possibly present
// before the request, then adds it. Duplicates within one request see the
// earlier occurrence.
func (s *Server) handleTestAndAdd(w http.ResponseWriter, r *http.Request) {
	s.metrics.RequestsTotal.WithLabelValues("test_and_add").Inc()

	req, ok := s.decodeKeys(w, r)
	if !ok {
		return
	}
	hashes := keyhash.Strings(req.Keys)
	results := make([]bool, len(hashes))

	s.mu.Lock()
	for i, h := range hashes {
		results[i] = s.filter.Contains(h)
		s.filter.Add(h)
	}
	s.mu.Unlock()

	s.countResults("test_and_add", results)
	s.writeJSON(w, http.StatusOK, containsBatchResponse{Results: results})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.metrics.RequestsTotal.WithLabelValues("info").Inc()

	s.mu.RLock()
	resp := infoResponse{
		SizeInBits:   s.filter.SizeInBits(),
		K:            s.filter.K(),
		Popcount:     s.filter.Popcount(),
		FillRatio:    s.filter.FillRatio(),
		EstimatedFPR: s.filter.EstimatedFalsePositiveRate(),
	}
	approx := s.filter.ApproxItems()
	s.mu.RUnlock()

	if !math.IsInf(approx, 0) {
		resp.ApproxItems = &approx
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.metrics.RequestsTotal.WithLabelValues("clear").Inc()

	s.mu.Lock()
	s.filter.Clear()
	s.mu.Unlock()

	s.logger.Info("Cleared filter")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.metrics.RequestsTotal.WithLabelValues("snapshot").Inc()

	if s.cfg.FilterPath == "" {
		s.writeError(w, http.StatusConflict, errors.New("snapshots are disabled"))
		return
	}
	if err := s.Snapshot(); err != nil {
		s.logger.Error("Snapshot failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) countResults(op string, results []bool) {
	var present int
	for _, p := range results {
		if p {
			present++
		}
	}
	s.metrics.KeysTotal.WithLabelValues(op, "present").Add(float64(present))
	s.metrics.KeysTotal.WithLabelValues(op, "absent").Add(float64(len(results) - present))
}

func (s *Server) decodeKeys(w http.ResponseWriter, r *http.Request) (keysRequest, bool) {
	var req keysRequest
	dec := gojson.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return req, false
	}
	return req, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := gojson.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
