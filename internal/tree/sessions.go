package tree

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bulktracker/btdash/internal/btclient"
)

type session struct {
	tree     *Tree
	lastSeen time.Time
}

// DefaultMaxSessions bounds Sessions when NewSessions is given no limit.
const DefaultMaxSessions = 1000

// Sessions keeps one Tree per browser session. At most limit sessions are
// kept; creating one more evicts the least recently seen.
type Sessions struct {
	fetcher btclient.Fetcher
	base    string
	ttl     time.Duration
	limit   int

	mu       sync.Mutex
	sessions map[string]*session
}

func NewSessions(fetcher btclient.Fetcher, basePrefix string, ttl time.Duration, limit int) *Sessions {
	if limit <= 0 {
		limit = DefaultMaxSessions
	}
	return &Sessions{
		fetcher:  fetcher,
		base:     basePrefix,
		ttl:      ttl,
		limit:    limit,
		sessions: map[string]*session{},
	}
}

// Get returns the tree for id, creating a session with a fresh id when id
// is empty, malformed or expired. The returned id is the one to keep.
func (s *Sessions) Get(id string, now time.Time) (*Tree, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok && !s.expired(sess, now) {
		sess.lastSeen = now
		return sess.tree, id
	}
	delete(s.sessions, id)
	if len(s.sessions) >= s.limit {
		s.sweepLocked(now)
	}
	if len(s.sessions) >= s.limit {
		s.evictOldestLocked()
	}
	id = uuid.NewString()
	sess := &session{tree: New(s.fetcher, s.base), lastSeen: now}
	s.sessions[id] = sess
	return sess.tree, id
}

func (s *Sessions) expired(sess *session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.lastSeen) > s.ttl
}

// Sweep drops idle sessions and reports how many were removed.
func (s *Sessions) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(now)
}

func (s *Sessions) sweepLocked(now time.Time) int {
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *Sessions) evictOldestLocked() {
	var (
		oldestID string
		oldest   *session
	)
	for id, sess := range s.sessions {
		if oldest == nil || sess.lastSeen.Before(oldest.lastSeen) {
			oldestID, oldest = id, sess
		}
	}
	delete(s.sessions, oldestID)
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
