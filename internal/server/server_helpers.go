package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/bulktracker/btdash/internal/btclient"
	"github.com/bulktracker/btdash/internal/server/httpx"
)

// ErrMalformedURL marks a package path that is not "category/package".
var ErrMalformedURL = errors.New("malformed package URL")

var packagePathRE = regexp.MustCompile(`^[A-Za-z0-9+\-_]+/[A-Za-z0-9+\-_]+$`)

const (
	msgFetchFailed   = "Failed to load data from BulkTracker."
	msgMalformedData = "BulkTracker returned data that could not be read."
	msgMalformedURL  = "Failed to decode the package name from the URL."
	msgInternal      = "Internal error."
)

// parsePackagePath validates "category/package" and splits it.
func parsePackagePath(raw string) (category, pkg string, err error) {
	raw = strings.Trim(raw, "/")
	if !packagePathRE.MatchString(raw) {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedURL, raw)
	}
	category, pkg, _ = strings.Cut(raw, "/")
	return category, pkg, nil
}

// classifyError maps an error kind to the message shown in its inline error
// box and the response status.
func classifyError(err error) (string, int) {
	switch {
	case errors.Is(err, ErrMalformedURL):
		return msgMalformedURL, http.StatusBadRequest
	case errors.Is(err, btclient.ErrMalformedResponse):
		return msgMalformedData, http.StatusBadGateway
	case errors.Is(err, btclient.ErrFetchFailure):
		return msgFetchFailed, http.StatusBadGateway
	default:
		return msgInternal, http.StatusInternalServerError
	}
}

func writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	msg, code := classifyError(err)
	slog.Warn("api request failed", "path", r.URL.Path, "status", code, "error", err)
	httpx.WriteError(w, code, msg)
}

func pathSegment(s string) string {
	return url.PathEscape(s)
}

func queryInt(q url.Values, key string, fallback int) int {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
