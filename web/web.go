// Package web serves the computed gains of one CSV ledger over HTTP.
//
// The server exposes a read-only JSON API over the latest batch and, when
// watching is enabled, recomputes it whenever the file changes and notifies
// connected clients through server-sent events.
//
// SECURITY WARNING: This server has no authentication and should only be
// bound to localhost (127.0.0.1). Do not expose it to untrusted networks.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/phuslu/log"

	"github.com/robinvdvleuten/gains/input"
	"github.com/robinvdvleuten/gains/ledger"
	"github.com/robinvdvleuten/gains/report"
	"github.com/robinvdvleuten/gains/telemetry"
	"github.com/robinvdvleuten/gains/watch"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = "127.0.0.1:8080"

type Server struct {
	Addr         string
	Version      string
	WatchEnabled bool
	Origins      []string

	cfg      *ledger.Config
	loader   *input.Loader
	reporter *report.Reporter
	logger   *log.Logger

	// inputFile is the CSV ledger passed to New.
	inputFile string

	mu        sync.RWMutex
	batch     *ledger.Batch
	batchErr  error // per-asset failures of the current batch
	reloadErr error // last failed reload, cleared by the next good one
	loadedAt  time.Time

	// SSE clients for broadcasting reload events
	sseClients map[chan string]struct{}
	sseMu      sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.Addr = addr
	}
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.Version = version
	}
}

// WithWatch recomputes the batch whenever the ledger file changes.
func WithWatch() Option {
	return func(s *Server) {
		s.WatchEnabled = true
	}
}

// WithOrigins sets the origins allowed by CORS. Defaults to any origin.
func WithOrigins(origins ...string) Option {
	return func(s *Server) {
		s.Origins = origins
	}
}

// WithLoader sets the loader used to read the ledger file.
func WithLoader(loader *input.Loader) Option {
	return func(s *Server) {
		s.loader = loader
	}
}

// WithReporter sets the reporter used to build JSON documents.
func WithReporter(reporter *report.Reporter) Option {
	return func(s *Server) {
		s.reporter = reporter
	}
}

// New creates a server for ledgerFile. cfg may be nil for the defaults; its
// Logger is used for request and reload logging.
func New(ledgerFile string, cfg *ledger.Config, opts ...Option) *Server {
	if cfg == nil {
		cfg = ledger.NewConfig()
	}

	s := &Server{
		Addr:       DefaultAddr,
		Origins:    []string{"*"},
		cfg:        cfg,
		loader:     input.New(),
		reporter:   report.New(),
		logger:     cfg.Logger,
		inputFile:  ledgerFile,
		sseClients: make(map[chan string]struct{}),
	}
	if s.logger == nil {
		s.logger = &log.Logger{Writer: &log.IOWriter{Writer: io.Discard}}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the ledger and serves until ctx is done, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	collector := telemetry.FromContext(ctx)
	timer := collector.Start(fmt.Sprintf("web.start %s", s.Addr))

	if s.inputFile == "" {
		timer.End()
		return errors.New("ledger file is required")
	}

	loadTimer := timer.Child(fmt.Sprintf("web.load %s", filepath.Base(s.inputFile)))
	if err := s.Reload(ctx); err != nil {
		loadTimer.End()
		timer.End()
		return fmt.Errorf("failed to load ledger: %w", err)
	}
	loadTimer.End()

	setupTimer := timer.Child("web.setup_router")
	router := s.Router()
	setupTimer.End()
	timer.End()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.WatchEnabled {
		w := watch.New(s.inputFile, watch.WithLogger(s.logger))
		go func() {
			err := w.Watch(ctx, func() { s.handleFileChange(ctx) })
			if err != nil {
				s.logger.Error().Err(err).Str("file", s.inputFile).Msg("file watcher stopped")
			}
		}()
	}

	// No write timeout: event streams stay open.
	server := &http.Server{
		Addr:        s.Addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.Addr).Str("file", s.inputFile).Msg("serving gains")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	s.closeClients()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// Reload reads and recomputes the ledger. A load failure (unreadable file,
// invalid rows, bad configuration) leaves the current batch in place and is
// returned; per-asset failures are kept alongside the new batch.
func (s *Server) Reload(ctx context.Context) error {
	result, err := s.loader.Load(ctx, s.inputFile)
	if err == nil {
		var batch *ledger.Batch
		batch, err = ledger.ComputeAll(ctx, s.cfg, result.Inputs)

		var batchErrs *ledger.BatchErrors
		if err == nil || errors.As(err, &batchErrs) {
			s.mu.Lock()
			s.batch = batch
			s.batchErr = err
			s.reloadErr = nil
			s.loadedAt = time.Now()
			s.mu.Unlock()
			return nil
		}
	}

	s.mu.Lock()
	s.reloadErr = err
	s.mu.Unlock()
	return err
}

// handleFileChange reloads the ledger and tells clients about it.
func (s *Server) handleFileChange(ctx context.Context) {
	if err := s.Reload(ctx); err != nil {
		s.logger.Warn().Err(err).Str("file", s.inputFile).Msg("failed to reload ledger, keeping last good batch")
		s.broadcast("error")
		return
	}
	s.logger.Info().Str("file", s.inputFile).Msg("ledger reloaded")
	s.broadcast("reload")
}

// state is a consistent view of the server's latest computation.
type state struct {
	batch     *ledger.Batch
	batchErr  error
	reloadErr error
	loadedAt  time.Time
}

func (s *Server) snapshot() state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return state{batch: s.batch, batchErr: s.batchErr, reloadErr: s.reloadErr, loadedAt: s.loadedAt}
}

// handleSSE handles Server-Sent Events connections for real-time updates.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientChan := make(chan string, 10)

	s.sseMu.Lock()
	s.sseClients[clientChan] = struct{}{}
	s.sseMu.Unlock()

	defer func() {
		s.sseMu.Lock()
		if _, ok := s.sseClients[clientChan]; ok {
			delete(s.sseClients, clientChan)
			close(clientChan)
		}
		s.sseMu.Unlock()
	}()

	_, _ = fmt.Fprintf(w, "data: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-clientChan:
			if !ok {
				return
			}
			_, _ = fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()
		}
	}
}

// broadcast sends an event to all connected SSE clients.
func (s *Server) broadcast(event string) {
	s.sseMu.Lock()
	defer s.sseMu.Unlock()

	for clientChan := range s.sseClients {
		select {
		case clientChan <- event:
		default:
			// Client buffer full, skip
		}
	}
}

// closeClients ends every open event stream so that shutdown does not wait on them.
func (s *Server) closeClients() {
	s.sseMu.Lock()
	defer s.sseMu.Unlock()

	for clientChan := range s.sseClients {
		delete(s.sseClients, clientChan)
		close(clientChan)
	}
}
