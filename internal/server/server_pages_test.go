package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bulktracker/btdash/internal/config"
)

const allBuildsBody = `[{"BuildTs":"2024-01-02T00:00:00Z","Branch":"main","Platform":"linux/amd64","NumFailed":2,"NumIndirectFailed":1,"NumOk":10,"BuildUser":"ci","ResultID":"abc"}]`

func TestBuildsPageScenario(t *testing.T) {
	env := newTestEnv(t, false, func(cfg *config.File) {
		cfg.UI.Lead = "Welcome to **BulkTracker**"
	})
	env.up.JSON("/json/allbuilds/", allBuildsBody)

	rec := env.get(t, "/bt/")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<td", ">2024-01-02<", ">main<", ">linux/amd64<",
		"2 failed", "1 indirect-failed", "10 ok",
		"<strong>BulkTracker</strong>",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in builds page:\n%s", want, body)
		}
	}
	if n := strings.Count(body, `href="/bt/build/abc"`); n != 3 {
		t.Fatalf("expected first three cells linking to the build, got %d links", n)
	}
	if strings.Contains(body, "T00:00:00Z<") {
		t.Fatalf("expected date-only rendering")
	}
}

func TestBuildsPageResortUsesCache(t *testing.T) {
	env := newTestEnv(t, true, nil)
	env.up.JSON("/json/allbuilds/", `[
		{"ResultID":"1","BuildTs":"2024-01-01T00:00:00Z","Branch":"b"},
		{"ResultID":"2","BuildTs":"2024-01-03T00:00:00Z","Branch":"a"}
	]`)

	first := env.get(t, "/bt/")
	second := env.get(t, "/bt/?sort=1&dir=asc")
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("unexpected status %d / %d", first.Code, second.Code)
	}
	if hits := env.up.Hits("/json/allbuilds/"); hits != 1 {
		t.Fatalf("expected re-sort without a second upstream GET, got %d", hits)
	}
	body := second.Body.String()
	if strings.Index(body, `href="/bt/build/2"`) > strings.Index(body, `href="/bt/build/1"`) {
		t.Fatalf("expected branch a (build 2) first after sorting")
	}
	if !strings.Contains(body, `class="sorted-asc"`) {
		t.Fatalf("expected active sort header")
	}
}

func TestBuildsPageResortWithDefaultCacheConfig(t *testing.T) {
	env := newTestEnv(t, false, nil)
	env.up.JSON("/json/allbuilds/", `[
		{"ResultID":"1","BuildTs":"2024-01-01T00:00:00Z","Branch":"b","Platform":"x"},
		{"ResultID":"2","BuildTs":"2024-01-03T00:00:00Z","Branch":"a","Platform":"y"},
		{"ResultID":"3","BuildTs":"2024-01-02T00:00:00Z","Branch":"c","Platform":"z"}
	]`)

	for _, path := range []string{"/bt/", "/bt/?sort=1&dir=asc", "/bt/?sort=2&dir=desc", "/bt/?page=2"} {
		if rec := env.get(t, path); rec.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, rec.Code)
		}
	}
	if hits := env.up.Hits("/json/allbuilds/"); hits != 1 {
		t.Fatalf("expected one upstream GET for a load plus re-sorts and paging, got %d", hits)
	}

	later := env.srv.now().Add(env.srv.cfg.Cache.TTL.Duration * 2)
	if removed := env.srv.client.SweepMemory(later); removed != 1 {
		t.Fatalf("expected the cached response to expire, removed %d", removed)
	}
}

func TestBuildsPageFetchFailure(t *testing.T) {
	env := newTestEnv(t, false, nil)
	env.up.Status("/json/allbuilds/", http.StatusInternalServerError)

	rec := env.get(t, "/bt/")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `<div class="alert" id="error">`+msgFetchFailed) {
		t.Fatalf("expected inline fetch error box:\n%s", rec.Body.String())
	}
	if rec.Header().Get("ETag") != "" {
		t.Fatalf("error pages must not carry an ETag")
	}
}

func TestBuildsPageMalformedResponse(t *testing.T) {
	env := newTestEnv(t, false, nil)
	env.up.JSON("/json/allbuilds/", `{"builds":[]}`)

	rec := env.get(t, "/bt/")
	if rec.Code != http.StatusBadGateway || !strings.Contains(rec.Body.String(), msgMalformedData) {
		t.Fatalf("expected malformed response box, got %d:\n%s", rec.Code, rec.Body.String())
	}
}

func TestBuildsPagePaging(t *testing.T) {
	env := newTestEnv(t, false, nil)
	env.up.JSON("/json/allbuilds/", `[
		{"ResultID":"1","BuildTs":"2024-01-01T00:00:00Z"},
		{"ResultID":"2","BuildTs":"2024-01-02T00:00:00Z"},
		{"ResultID":"3","BuildTs":"2024-01-03T00:00:00Z"}
	]`)
	rec := env.get(t, "/bt/?page=2")
	body := rec.Body.String()
	if !strings.Contains(body, "Page 2 of 2") || !strings.Contains(body, `href="/bt/build/1"`) || strings.Contains(body, `href="/bt/build/3"`) {
		t.Fatalf("unexpected second page:\n%s", body)
	}
}

func TestBuildsPageETag(t *testing.T) {
	env := newTestEnv(t, false, nil)
	env.up.JSON("/json/allbuilds/", allBuildsBody)

	first := env.get(t, "/bt/")
	tag := first.Header().Get("ETag")
	if tag == "" {
		t.Fatalf("expected ETag on builds page")
	}
	rec := env.getWithHeader(t, "/bt/", "If-None-Match", tag)
	if rec.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", rec.Code)
	}
}

func TestBuildPage(t *testing.T) {
	env := newTestEnv(t, false, nil)
	env.up.Status("/json/build/abc", http.StatusNotFound)
	env.up.JSON("/json/pkgsbreakingmostothers/abc", `[
		{"PkgPath":"devel/gettext","PkgName":"gettext-0.22","BuildStatus":2,"Breaks":3,"ResultID":"r1"},
		{"PkgPath":"lang/perl5","PkgName":"perl-5.38","BuildStatus":3,"Breaks":40,"ResultID":"r2"},
		{"PkgPath":"x11/odd","PkgName":"odd-1","BuildStatus":7,"Breaks":1,"ResultID":"r3"}
	]`)

	rec := env.get(t, "/bt/build/abc")
	if rec.Code != http.StatusOK {
		t.Fatalf("header failure must not fail the page, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, msgFetchFailed) {
		t.Fatalf("expected header panel error")
	}
	if strings.Index(body, "perl-5.38") > strings.Index(body, "gettext-0.22") {
		t.Fatalf("expected breaking packages sorted by Breaks desc")
	}
	for _, want := range []string{
		`href="/bt/pkg/r2"`,
		`href="/bt/pkgresults/lang/perl5"`,
		`class="danger text-danger"`,
		`class="warning text-warning"`,
		`class="status-unknown">unknown<`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in build page:\n%s", want, body)
		}
	}
}

func TestBuildPageHeader(t *testing.T) {
	env := newTestEnv(t, false, nil)
	env.up.JSON("/json/build/7", `{"BuildID":7,"BuildTs":"2024-03-01T12:00:00Z","Platform":"NetBSD 10.0/x86_64","Branch":"2024Q1","Compiler":"gcc","BuildUser":"pbulk","ReportUrl":"https://reports.example.org/2024Q1/meta/report.html","NumOk":5}`)
	env.up.JSON("/json/pkgsbreakingmostothers/7", `[]`)

	body := env.get(t, "/bt/build/7").Body.String()
	for _, want := range []string{"2024-03-01", "NetBSD 10.0/x86_64", "pbulk", `href="https://reports.example.org/2024Q1/meta/report.html"`, "No results."} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in build header:\n%s", want, body)
		}
	}
}

func TestPkgResultsPage(t *testing.T) {
	env := newTestEnv(t, false, nil)
	env.up.JSON("/json/pkgresults/net/curl", `[{"PkgName":"curl-8.5.0","BuildStatus":2,"BuildTs":"2024-02-01T00:00:00Z","Branch":"main","Platform":"linux/amd64","Compiler":"gcc","ResultID":"p1","BuildID":"b1"}]`)
	env.up.JSON("/json/allpkgresults/net/curl", `[]`)

	rec := env.get(t, "/bt/pkgresults/net/curl")
	body := rec.Body.String()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	for _, want := range []string{`id="pkgname-header">net/curl<`, `class="danger text-danger">failed<`, `href="/bt/pkg/p1"`, `href="/bt/build/b1"`, ">2024-02-01<", `id="results"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in pkgresults page:\n%s", want, body)
		}
	}
	if strings.Contains(body, "Page 1 of") {
		t.Fatalf("per-package views are not paged")
	}

	env.get(t, "/bt/net/curl?variant=all")
	if env.up.Hits("/json/allpkgresults/net/curl") != 1 {
		t.Fatalf("expected variant=all to use allpkgresults")
	}
	if env.up.Hits("/json/pkgresults/net/curl") != 1 {
		t.Fatalf("expected latest results fetched once")
	}
}

func TestPkgResultsMalformedURL(t *testing.T) {
	env := newTestEnv(t, false, nil)
	for _, path := range []string{"/bt/pkgresults/net", "/bt/pkgresults/a/b/c", "/bt/pkgresults/a/b%2Ec"} {
		rec := env.get(t, path)
		body := rec.Body.String()
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, rec.Code)
		}
		if !strings.Contains(body, msgMalformedURL) || strings.Contains(body, `id="results"`) {
			t.Fatalf("%s: expected error and hidden results:\n%s", path, body)
		}
	}
}

func TestPkgRedirect(t *testing.T) {
	env := newTestEnv(t, false, nil)
	rec := env.get(t, "/bt/pkg/r42")
	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != env.up.URL()+"pkg/r42" {
		t.Fatalf("unexpected redirect target %q", loc)
	}
}

func TestSelectRedirects(t *testing.T) {
	env := newTestEnv(t, false, nil)
	rec := env.post(t, "/bt/select", url.Values{"pkg": {"net%2Fhttp"}})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/bt/net/http" {
		t.Fatalf("unexpected select response %d %q", rec.Code, rec.Header().Get("Location"))
	}
	rec = env.get(t, "/bt/select?pkg=net/http")
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/bt/net/http" {
		t.Fatalf("unexpected GET select response %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if rec := env.post(t, "/bt/select", url.Values{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty selection, got %d", rec.Code)
	}
}

func TestAutocompleteProxy(t *testing.T) {
	env := newTestEnv(t, false, nil)
	env.up.JSON("/json/autocomplete/", `{"results":[{"id":"net/curl","text":"net/curl"}],"pagination":{"more":false}}`)
	rec := env.get(t, "/bt/autocomplete?q=cur")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"id":"net/curl"`) {
		t.Fatalf("unexpected autocomplete response %d %s", rec.Code, rec.Body.String())
	}
	if env.up.LastQuery("/json/autocomplete/").Get("q") != "cur" {
		t.Fatalf("expected query forwarded upstream")
	}
}

func TestCategoriesFlow(t *testing.T) {
	env := newTestEnv(t, false, nil)
	env.up.JSON("/json/dir/", `["graphics/","net/"]`)
	env.up.JSON("/json/dir/graphics/", `["gimp","inkscape"]`)
	env.up.Status("/json/dir/net/", http.StatusInternalServerError)

	rec := env.get(t, "/bt/categories")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	cookie := sessionCookieFrom(t, rec)
	if !strings.Contains(rec.Body.String(), `action="/bt/categories/graphics/expand"`) {
		t.Fatalf("expected expand form:\n%s", rec.Body.String())
	}

	rec = env.post(t, "/bt/categories/graphics/expand", nil, cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect after expand, got %d", rec.Code)
	}
	env.post(t, "/bt/categories/net/expand", nil, cookie)

	body := env.get(t, "/bt/categories", cookie).Body.String()
	if !strings.Contains(body, `href="/bt/pkgresults/graphics/gimp"`) {
		t.Fatalf("expected graphics children:\n%s", body)
	}
	if !strings.Contains(body, `<p class="text-error">Failed to load navigation.</p>`) {
		t.Fatalf("expected localized net failure:\n%s", body)
	}

	env.post(t, "/bt/categories/graphics/collapse", nil, cookie)
	if body := env.get(t, "/bt/categories", cookie).Body.String(); strings.Contains(body, "gimp") {
		t.Fatalf("expected collapsed graphics")
	}
	env.post(t, "/bt/categories/graphics/expand", nil, cookie)
	if hits := env.up.Hits("/json/dir/graphics/"); hits != 1 {
		t.Fatalf("expected cached children on re-expand, got %d GETs", hits)
	}
	if rec := env.post(t, "/bt/categories/nope/expand", nil, cookie); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown category, got %d", rec.Code)
	}

	frag := env.get(t, "/bt/categories/graphics/", cookie)
	if frag.Code != http.StatusOK || !strings.HasPrefix(frag.Body.String(), `<ul class="list-inline">`) {
		t.Fatalf("unexpected fragment %d %q", frag.Code, frag.Body.String())
	}
}

func TestBuildPageCategoryPanel(t *testing.T) {
	env := newTestEnv(t, false, nil)
	env.up.JSON("/json/build/7", `{"BuildID":7,"Platform":"NetBSD 10.0/x86_64"}`)
	env.up.JSON("/json/pkgsbreakingmostothers/7", `[]`)
	env.up.JSON("/json/dir/", `["net/"]`)
	env.up.JSON("/json/dir/net/", `["curl"]`)

	rec := env.get(t, "/bt/build/7")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`id="categories-panel"`,
		`action="/bt/categories/net/expand"`,
		`<input type="hidden" name="return" value="/bt/build/7">`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in build page:\n%s", want, body)
		}
	}
	cookie := sessionCookieFrom(t, rec)

	rec = env.post(t, "/bt/categories/net/expand", url.Values{"return": {"/bt/build/7"}}, cookie)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/bt/build/7#net-node" {
		t.Fatalf("expected redirect back to the build, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if body := env.get(t, "/bt/build/7", cookie).Body.String(); !strings.Contains(body, `href="/bt/pkgresults/net/curl"`) {
		t.Fatalf("expected expanded category on the build page:\n%s", body)
	}

	for _, ret := range []string{"https://evil.example/bt/", "//evil.example/bt/", "/elsewhere"} {
		rec = env.post(t, "/bt/categories/net/collapse", url.Values{"return": {ret}}, cookie)
		if loc := rec.Header().Get("Location"); loc != "/bt/categories#net-node" {
			t.Fatalf("return %q: expected category list fallback, got %q", ret, loc)
		}
	}
}

func TestBuildPageCategoryFailureIsLocal(t *testing.T) {
	env := newTestEnv(t, false, nil)
	env.up.JSON("/json/build/7", `{"BuildID":7}`)
	env.up.JSON("/json/pkgsbreakingmostothers/7", `[]`)
	env.up.Status("/json/dir/", http.StatusInternalServerError)

	rec := env.get(t, "/bt/build/7")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected the build page to stay 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `<p class="text-error">Failed to load navigation.</p>`) {
		t.Fatalf("expected category panel error:\n%s", rec.Body.String())
	}
}

func TestConcurrentCategoryFragmentsSettle(t *testing.T) {
	env := newTestEnv(t, false, nil)
	env.up.JSON("/json/dir/", `["graphics/"]`)
	release := env.up.Block("/json/dir/graphics/", `["gimp","inkscape"]`)
	cookie := sessionCookieFrom(t, env.get(t, "/bt/categories"))

	responses := make(chan *httptest.ResponseRecorder, 2)
	fetch := func() { responses <- env.get(t, "/bt/categories/graphics/", cookie) }
	waitHits := func(n int) {
		deadline := time.Now().Add(5 * time.Second)
		for env.up.Hits("/json/dir/graphics/") < n {
			if time.Now().After(deadline) {
				t.Fatalf("expected %d category loads upstream", n)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
	go fetch()
	waitHits(1)

	page := env.get(t, "/bt/categories", cookie).Body.String()
	if !strings.Contains(page, "Loading packages...") {
		t.Fatalf("expected loading notice while the category loads:\n%s", page)
	}

	go fetch()
	waitHits(2)
	release()
	for i := 0; i < 2; i++ {
		rec := <-responses
		body := rec.Body.String()
		if rec.Code != http.StatusOK || !strings.Contains(body, `href="/bt/pkgresults/graphics/gimp"`) {
			t.Fatalf("expected settled fragment with children, got %d %q", rec.Code, body)
		}
	}
}

func TestSweepExpiresSessions(t *testing.T) {
	env := newTestEnv(t, true, nil)
	env.up.JSON("/json/dir/", `["net"]`)
	env.get(t, "/bt/categories")
	if env.srv.sessions.Len() != 1 {
		t.Fatalf("expected one session")
	}
	later := env.srv.now().Add(env.srv.cfg.Cache.SessionTTL.Duration * 2)
	env.srv.now = func() time.Time { return later }
	env.srv.sweep(t.Context())
	if env.srv.sessions.Len() != 0 {
		t.Fatalf("expected idle session swept")
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, false, nil)
	rec := env.get(t, "/bt/healthz")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected healthz %d %s", rec.Code, rec.Body.String())
	}
	if rec := env.get(t, "/healthz"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected routes to live under the base prefix, got %d", rec.Code)
	}
}
