package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// startMaintenance schedules the cache and session sweep on
// cache.sweep_schedule. The returned function stops the schedule and waits
// for a running sweep. An empty schedule disables sweeping.
func (s *Server) startMaintenance() (func(), error) {
	if s.cfg.Cache.SweepSchedule == "" {
		return func() {}, nil
	}
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Cache.SweepSchedule, func() { s.sweep(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule sweep %q: %w", s.cfg.Cache.SweepSchedule, err)
	}
	c.Start()
	return func() { <-c.Stop().Done() }, nil
}

// sweep drops idle category sessions and expired cached responses.
func (s *Server) sweep(ctx context.Context) {
	now := s.now()
	sessions := s.sessions.Sweep(now)
	responses := int64(s.client.SweepMemory(now))
	if s.db != nil {
		ctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		n, err := s.db.SweepResponses(ctx, now)
		if err != nil {
			slog.Error("sweep response cache", "error", err)
		}
		responses += n
	}
	if sessions > 0 || responses > 0 {
		slog.Info("sweep finished", "sessions_removed", sessions, "responses_removed", responses)
	}
}
