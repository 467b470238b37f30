package testutil

import (
	"io"
	"net/http"
	"testing"
)

func TestUpstreamServesAndCounts(t *testing.T) {
	u := NewUpstream(t)
	u.JSON("/json/dir/", `["net"]`)
	u.Status("/json/dir/broken/", http.StatusInternalServerError)

	resp, err := http.Get(u.URL() + "json/dir/?x=1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != `["net"]` {
		t.Fatalf("unexpected response %d %q", resp.StatusCode, body)
	}
	if u.Hits("/json/dir/") != 1 {
		t.Fatalf("expected one hit, got %d", u.Hits("/json/dir/"))
	}
	if got := u.LastQuery("/json/dir/").Get("x"); got != "1" {
		t.Fatalf("expected recorded query, got %q", got)
	}

	resp, err = http.Get(u.URL() + "json/dir/broken/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}
