// Package testutil provides a fake BulkTracker JSON API for tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

type route struct {
	status int
	body   string
	block  chan struct{}
}

// Upstream serves canned responses keyed by request path and counts hits.
type Upstream struct {
	Server *httptest.Server

	mu      sync.Mutex
	routes  map[string]route
	hits    map[string]int
	queries map[string]url.Values
}

func NewUpstream(t testing.TB) *Upstream {
	t.Helper()
	u := &Upstream{
		routes:  map[string]route{},
		hits:    map[string]int{},
		queries: map[string]url.Values{},
	}
	u.Server = httptest.NewServer(http.HandlerFunc(u.serve))
	t.Cleanup(u.Server.Close)
	return u
}

// URL returns the API root with a trailing slash.
func (u *Upstream) URL() string {
	return u.Server.URL + "/"
}

// JSON registers a 200 response with body for path.
func (u *Upstream) JSON(path, body string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.routes[path] = route{status: http.StatusOK, body: body}
}

// Status registers an empty response with the given status code.
func (u *Upstream) Status(path string, code int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.routes[path] = route{status: code}
}

// Block makes requests for path wait until the returned function is called.
func (u *Upstream) Block(path, body string) (release func()) {
	ch := make(chan struct{})
	u.mu.Lock()
	u.routes[path] = route{status: http.StatusOK, body: body, block: ch}
	u.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Hits returns how many requests were made for path.
func (u *Upstream) Hits(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits[path]
}

// LastQuery returns the query of the most recent request for path.
func (u *Upstream) LastQuery(path string) url.Values {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.queries[path]
}

func (u *Upstream) serve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.EscapedPath()
	u.mu.Lock()
	u.hits[path]++
	u.queries[path] = r.URL.Query()
	rt, ok := u.routes[path]
	u.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if rt.block != nil {
		select {
		case <-rt.block:
		case <-r.Context().Done():
			return
		}
	}
	if rt.body != "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(rt.status)
	_, _ = w.Write([]byte(rt.body))
}
