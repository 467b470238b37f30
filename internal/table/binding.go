package table

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bulktracker/btdash/internal/btclient"
)

// ErrSuperseded is returned by Load when a newer Load on the same binding
// started before this one finished.
var ErrSuperseded = errors.New("table load superseded by a newer load")

// Options configures a Binding.
type Options struct {
	Paging      bool
	PageSize    int
	DefaultSort *SortSpec
	BasePrefix  string
}

// Binding ties an upstream endpoint to a column list. The server builds
// one per request; concurrent Loads on a shared Binding resolve in favour
// of the most recently started one.
type Binding[T any] struct {
	fetcher  btclient.Fetcher
	endpoint string
	columns  []Column[T]
	opts     Options

	mu  sync.Mutex
	gen uint64
}

func NewBinding[T any](fetcher btclient.Fetcher, endpoint string, columns []Column[T], opts Options) *Binding[T] {
	if opts.BasePrefix == "" {
		opts.BasePrefix = "/"
	}
	return &Binding[T]{
		fetcher:  fetcher,
		columns:  columns,
		opts:     opts,
		endpoint: endpoint,
	}
}

func (b *Binding[T]) begin() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	return b.gen
}

func (b *Binding[T]) current(gen uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen == gen
}

// Load fetches the endpoint once and returns the decorated table.
func (b *Binding[T]) Load(ctx context.Context) (*Table[T], error) {
	gen := b.begin()
	records, err := btclient.FetchList[T](ctx, b.fetcher, b.endpoint)
	if !b.current(gen) {
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	t := Build(records, b.columns, b.opts)
	if ds := b.opts.DefaultSort; ds != nil {
		if err := t.Sort(ds.Column, ds.Direction); err != nil {
			return nil, fmt.Errorf("default sort for %s: %w", b.endpoint, err)
		}
	}
	return t, nil
}

// Build projects records through columns without fetching. Rows are
// decorated exactly once.
func Build[T any](records []T, columns []Column[T], opts Options) *Table[T] {
	if opts.BasePrefix == "" {
		opts.BasePrefix = "/"
	}
	t := &Table[T]{
		Columns:  columns,
		Records:  records,
		Rows:     make([]Row, 0, len(records)),
		paging:   opts.Paging,
		pageSize: opts.PageSize,
	}
	for i, rec := range records {
		row := Row{Index: i, Cells: make([]Cell, len(columns))}
		for c, col := range columns {
			row.Cells[c] = col.cell(rec)
		}
		Decorate(&row, rec, columns, opts.BasePrefix)
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Decorate sets cell links and classes from the columns' Link and Class
// functions. Cell text is left alone, so decorating twice is a no-op.
func Decorate[T any](row *Row, rec T, columns []Column[T], basePrefix string) {
	for i, col := range columns {
		if i >= len(row.Cells) {
			return
		}
		if col.Link != nil {
			if link := col.Link(rec); link != "" {
				row.Cells[i].Href = joinBase(basePrefix, link)
			}
		}
		if col.Class != nil {
			row.Cells[i].Class = col.Class(rec)
		}
	}
}

func joinBase(base, rel string) string {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + strings.TrimPrefix(rel, "/")
}
