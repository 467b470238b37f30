package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bulktracker/btdash/internal/config"
	"github.com/bulktracker/btdash/internal/store"
	"github.com/bulktracker/btdash/internal/testutil"
)

const testBase = "/bt/"

type testEnv struct {
	up      *testutil.Upstream
	srv     *Server
	handler http.Handler
}

func newTestEnv(t *testing.T, withCache bool, mutate func(*config.File)) *testEnv {
	t.Helper()
	up := testutil.NewUpstream(t)
	cfg := config.Default()
	cfg.Server.BasePrefix = testBase
	cfg.Upstream.URL = up.URL()
	cfg.UI.PageSize = 2
	if mutate != nil {
		mutate(&cfg)
	}
	var opts Options
	if withCache {
		db, err := store.Open(filepath.Join(t.TempDir(), "btdash.db"))
		if err != nil {
			t.Fatalf("open store: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })
		opts.Store = db
	}
	s, err := New(cfg, opts)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return &testEnv{up: up, srv: s, handler: s.Handler()}
}

func (e *testEnv) get(t *testing.T, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) getWithHeader(t *testing.T, path, key, value string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(key, value)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) post(t *testing.T, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func sessionCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatalf("expected %s cookie in response", sessionCookie)
	return nil
}
