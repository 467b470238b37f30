package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/bulktracker/btdash/internal/btclient"
	"github.com/bulktracker/btdash/internal/config"
	"github.com/bulktracker/btdash/internal/store"
	"github.com/bulktracker/btdash/internal/tree"
)

// Server renders the dashboard pages and JSON API for one upstream.
type Server struct {
	cfg      config.File
	base     string
	client   *btclient.Client
	db       *store.Store
	sessions *tree.Sessions
	lead     template.HTML
	started  time.Time
	now      func() time.Time
}

type Options struct {
	// HTTPClient overrides the client used for upstream requests.
	HTTPClient *http.Client
	// Store persists the response cache. When nil, responses are cached
	// in process for cache.ttl.
	Store *store.Store
}

// New builds a Server from a validated configuration.
func New(cfg config.File, opts Options) (*Server, error) {
	lead, err := renderLead(cfg.UI.Lead)
	if err != nil {
		return nil, fmt.Errorf("render ui.lead: %w", err)
	}
	s := &Server{
		cfg:     cfg,
		base:    cfg.Server.BasePrefix,
		db:      opts.Store,
		lead:    lead,
		started: time.Now().UTC(),
		now:     time.Now,
	}
	clientOpts := btclient.Options{
		HTTPClient: opts.HTTPClient,
		Timeout:    cfg.Upstream.Timeout.Duration,
		TTL:        cfg.Cache.TTL.Duration,
		OnFetched:  s.recordUpstreamOK,
	}
	if opts.Store != nil {
		clientOpts.Cache = opts.Store
	}
	client, err := btclient.New(cfg.Upstream.URL, clientOpts)
	if err != nil {
		return nil, err
	}
	s.client = client
	s.sessions = tree.NewSessions(client, s.base, cfg.Cache.SessionTTL.Duration, cfg.Cache.MaxSessions)
	return s, nil
}

func (s *Server) recordUpstreamOK(ctx context.Context, _ string) {
	if s.db == nil {
		return
	}
	ts := s.now().UTC().Format(time.RFC3339)
	if err := s.db.SetAppState(context.WithoutCancel(ctx), store.StateLastUpstreamOKUTC, ts); err != nil {
		slog.Warn("record upstream success", "error", err)
	}
}

// Handler returns the HTTP handler serving every route under the base
// prefix.
func (s *Server) Handler() http.Handler {
	return buildRouter(s)
}

// Run serves cfg until ctx is cancelled.
func Run(ctx context.Context, cfg config.File) error {
	var db *store.Store
	if cfg.Cache.Path != "" {
		var err error
		db, err = store.Open(cfg.Cache.Path)
		if err != nil {
			return fmt.Errorf("open response cache: %w", err)
		}
		defer db.Close()
	}

	s, err := New(cfg, Options{Store: db})
	if err != nil {
		return err
	}
	handler := s.Handler()

	stopMaintenance, err := s.startMaintenance()
	if err != nil {
		return err
	}
	defer stopMaintenance()

	if cfg.Server.GRPCAddr != "" {
		stopGRPC, err := startGRPCServer(cfg.Server.GRPCAddr, handler, s.base)
		if err != nil {
			return err
		}
		defer stopGRPC()
	}
	if cfg.MDNS.Enable {
		defer startMDNSAdvertiser(cfg.Server.Addr, cfg.MDNS.Instance, s.base)()
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("btdash server started", "addr", cfg.Server.Addr, "base_prefix", s.base, "upstream", cfg.Upstream.URL)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen and serve: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		slog.Info("btdash server stopped")
		return nil
	case err := <-errCh:
		if err != nil {
			return err
		}
		slog.Info("btdash server stopped")
		return nil
	}
}
