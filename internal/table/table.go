package table

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Direction is a sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// ParseDirection accepts "asc" and "desc"; anything else is ascending.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), "desc") {
		return Descending
	}
	return Ascending
}

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// SortSpec names a column index and direction.
type SortSpec struct {
	Column    int
	Direction Direction
}

type sortKey struct {
	num     float64
	numeric bool
	text    string
}

func newSortKey(v any) sortKey {
	if v == nil {
		return sortKey{}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return sortKey{num: float64(rv.Int()), numeric: true, text: fmt.Sprint(v)}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return sortKey{num: float64(rv.Uint()), numeric: true, text: fmt.Sprint(v)}
	case reflect.Float32, reflect.Float64:
		return sortKey{num: rv.Float(), numeric: true, text: fmt.Sprint(v)}
	case reflect.String:
		s := rv.String()
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return sortKey{num: f, numeric: true, text: s}
		}
		return sortKey{text: s}
	}
	return sortKey{text: fmt.Sprint(v)}
}

// less orders numeric keys before text keys, numbers by value and text
// lexically. Mixed columns therefore still sort deterministically.
func (k sortKey) less(o sortKey) bool {
	if k.numeric != o.numeric {
		return k.numeric
	}
	if k.numeric {
		return k.num < o.num
	}
	return k.text < o.text
}

// Cell is one rendered table cell.
type Cell struct {
	Text  string
	Href  string
	Class string
	Hint  string
	key   sortKey
}

// Row is one rendered table row. Index is the record's position in the
// upstream response.
type Row struct {
	Index int
	Cells []Cell
}

// Table holds the projected rows of one load. Records keep fetch order;
// Rows are reordered by Sort and reduced by Filter.
type Table[T any] struct {
	Columns []Column[T]
	Records []T
	Rows    []Row

	paging   bool
	pageSize int
	sort     SortSpec
	sorted   bool
	filter   string
}

// Len reports the number of visible rows.
func (t *Table[T]) Len() int { return len(t.Rows) }

// Record returns the record backing row.
func (t *Table[T]) Record(row Row) T { return t.Records[row.Index] }

// Sorted reports the current sort and whether one has been applied.
func (t *Table[T]) Sorted() (SortSpec, bool) { return t.sort, t.sorted }

// FilterPattern returns the active filter.
func (t *Table[T]) FilterPattern() string { return t.filter }

// Sort reorders the rows in memory. Ties keep fetch order.
func (t *Table[T]) Sort(col int, dir Direction) error {
	if col < 0 || col >= len(t.Columns) {
		return fmt.Errorf("sort column %d out of range [0,%d)", col, len(t.Columns))
	}
	sort.Slice(t.Rows, func(i, j int) bool {
		ri, rj := t.Rows[i], t.Rows[j]
		a, b := ri.Cells[col].key, rj.Cells[col].key
		if dir == Descending {
			a, b = b, a
		}
		switch {
		case a.less(b):
			return true
		case b.less(a):
			return false
		}
		return ri.Index < rj.Index
	})
	t.sort = SortSpec{Column: col, Direction: dir}
	t.sorted = true
	return nil
}

// Filter returns a table holding only the rows with a cell matching
// pattern. Patterns with glob metacharacters are matched with doublestar
// against each cell's text; others match as case-insensitive substrings.
// An empty pattern returns t.
func (t *Table[T]) Filter(pattern string) *Table[T] {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return t
	}
	match := substringMatcher(pattern)
	if strings.ContainsAny(pattern, "*?[{") && doublestar.ValidatePattern(pattern) {
		match = globMatcher(pattern)
	}
	out := *t
	out.filter = pattern
	out.Rows = nil
	for _, row := range t.Rows {
		for _, cell := range row.Cells {
			if match(cell.Text) {
				out.Rows = append(out.Rows, row)
				break
			}
		}
	}
	return &out
}

func substringMatcher(pattern string) func(string) bool {
	needle := strings.ToLower(pattern)
	return func(s string) bool {
		return strings.Contains(strings.ToLower(s), needle)
	}
}

func globMatcher(pattern string) func(string) bool {
	pattern = strings.ToLower(pattern)
	return func(s string) bool {
		ok, err := doublestar.Match(pattern, strings.ToLower(s))
		return err == nil && ok
	}
}

// Page is one page of rows.
type Page struct {
	Rows   []Row
	Number int
	Count  int
	Total  int
}

// Page returns page n (1-based), clamped to the valid range. Tables
// without paging always return every row as page 1.
func (t *Table[T]) Page(n int) Page {
	total := len(t.Rows)
	if !t.paging || t.pageSize <= 0 {
		return Page{Rows: t.Rows, Number: 1, Count: 1, Total: total}
	}
	count := (total + t.pageSize - 1) / t.pageSize
	if count == 0 {
		count = 1
	}
	if n < 1 {
		n = 1
	}
	if n > count {
		n = count
	}
	start := (n - 1) * t.pageSize
	end := min(start+t.pageSize, total)
	return Page{Rows: t.Rows[start:end], Number: n, Count: count, Total: total}
}
