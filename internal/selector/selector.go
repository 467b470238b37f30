// Package selector turns a chosen package path into a navigation target and
// proxies upstream autocomplete suggestions.
package selector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bulktracker/btdash/internal/btclient"
	"github.com/bulktracker/btdash/internal/protocol"
)

var ErrEmptySelection = errors.New("empty package selection")

// Target returns the page for a selected package path. The value is
// percent-decoded and every segment re-escaped so that path separators
// stay literal: "net%2Fhttp" and "net/http" both yield base+"net/http".
func Target(basePrefix, value string) (string, error) {
	decoded, err := url.PathUnescape(strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("decode selection %q: %w", value, err)
	}
	decoded = strings.Trim(decoded, "/")
	if decoded == "" {
		return "", ErrEmptySelection
	}
	segs := strings.Split(decoded, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	if !strings.HasSuffix(basePrefix, "/") {
		basePrefix += "/"
	}
	return basePrefix + strings.Join(segs, "/"), nil
}

// Suggest fetches autocomplete suggestions for q. An empty query returns
// no results without contacting upstream.
func Suggest(ctx context.Context, f btclient.Fetcher, q string) (protocol.AutocompleteResponse, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return protocol.AutocompleteResponse{Results: []protocol.AutocompleteResult{}}, nil
	}
	resp, err := btclient.FetchObject[protocol.AutocompleteResponse](ctx, f, btclient.AutocompletePath(q))
	if err != nil {
		return protocol.AutocompleteResponse{}, fmt.Errorf("autocomplete %q: %w", q, err)
	}
	if resp.Results == nil {
		resp.Results = []protocol.AutocompleteResult{}
	}
	return resp, nil
}
