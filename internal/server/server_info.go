package server

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bulktracker/btdash/internal/server/httpx"
	"github.com/bulktracker/btdash/internal/store"
	"github.com/bulktracker/btdash/internal/version"
)

type cacheInfo struct {
	Enabled           bool   `json:"enabled"`
	Backend           string `json:"backend,omitempty"`
	Entries           int    `json:"entries"`
	LastSweepUTC      string `json:"last_sweep_utc,omitempty"`
	LastSweepRemoved  string `json:"last_sweep_removed,omitempty"`
	LastUpstreamOKUTC string `json:"last_upstream_ok_utc,omitempty"`
}

type serverInfoResponse struct {
	Name       string    `json:"name"`
	APIVersion int       `json:"api_version"`
	Version    string    `json:"version"`
	Release    bool      `json:"release"`
	Hostname   string    `json:"hostname"`
	BasePrefix string    `json:"base_prefix"`
	Upstream   string    `json:"upstream"`
	StartedUTC string    `json:"started_utc"`
	Sessions   int       `json:"sessions"`
	Cache      cacheInfo `json:"cache"`
}

func (s *Server) serverInfoHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	resp := serverInfoResponse{
		Name:       "btdash",
		APIVersion: 1,
		Version:    version.Current(),
		Release:    version.IsRelease(),
		Hostname:   strings.TrimSpace(host),
		BasePrefix: s.base,
		Upstream:   s.client.BaseURL(),
		StartedUTC: s.started.Format(time.RFC3339),
		Sessions:   s.sessions.Len(),
	}
	if n := s.client.MemoryEntries(); n >= 0 {
		resp.Cache.Enabled = true
		resp.Cache.Backend = "memory"
		resp.Cache.Entries = n
	}
	if s.db != nil {
		resp.Cache.Enabled = true
		resp.Cache.Backend = "sqlite"
		if n, err := s.db.CountResponses(r.Context()); err != nil {
			slog.Warn("count cached responses", "error", err)
		} else {
			resp.Cache.Entries = n
		}
		state, err := s.db.ListAppState(r.Context())
		if err != nil {
			slog.Warn("read app state", "error", err)
		}
		resp.Cache.LastSweepUTC = state[store.StateLastSweepUTC]
		resp.Cache.LastSweepRemoved = state[store.StateLastSweepRemoved]
		resp.Cache.LastUpstreamOKUTC = state[store.StateLastUpstreamOKUTC]
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
