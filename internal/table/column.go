package table

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bulktracker/btdash/internal/status"
)

// Column declares one table column: where its value comes from, how it is
// shown and how its cell is decorated. A table's column slice is the only
// place that defines column order.
type Column[T any] struct {
	Title string
	// Field is a dotted path into the record. Ignored when Value is set.
	Field string
	// Value computes the cell value from the whole record.
	Value func(rec T) any
	// Render turns the value into display text. Defaults to fmt.Sprint,
	// with nil rendering blank.
	Render func(v any) string
	// Hint produces the cell's title attribute.
	Hint func(v any) string
	// Link returns a path relative to the base prefix. An empty result
	// leaves the cell unlinked.
	Link func(rec T) string
	// Class returns CSS classes for the cell.
	Class func(rec T) string
}

func (c Column[T]) value(rec T) (any, bool) {
	if c.Value != nil {
		return c.Value(rec), true
	}
	return resolveField(rec, c.Field)
}

func (c Column[T]) cell(rec T) Cell {
	v, ok := c.value(rec)
	if !ok {
		v = nil
	}
	cell := Cell{key: newSortKey(v)}
	switch {
	case c.Render != nil:
		cell.Text = c.Render(v)
	case v == nil:
	default:
		cell.Text = fmt.Sprint(v)
	}
	if c.Hint != nil {
		cell.Hint = c.Hint(v)
	}
	return cell
}

// DateOnly renders a timestamp as the text before its first "T". Blank,
// absent and zero timestamps render blank.
func DateOnly(v any) string {
	s := timestampText(v)
	if s == "" {
		return ""
	}
	date, _, _ := strings.Cut(s, "T")
	return date
}

// RelativeAge renders a timestamp as a relative age ("3 days ago"). Values
// that do not parse as RFC 3339 render blank.
func RelativeAge(v any) string {
	s := timestampText(v)
	if s == "" {
		return ""
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return ""
	}
	return humanize.Time(ts)
}

func timestampText(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s = t
	case time.Time:
		if t.IsZero() {
			return ""
		}
		s = t.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		s = t.String()
	default:
		s = fmt.Sprint(t)
	}
	s = strings.TrimSpace(s)
	// Go servers encode unset time.Time values as the zero instant.
	if strings.HasPrefix(s, "0001-01-01") {
		return ""
	}
	return s
}

// StatusLabel renders a status code, showing status.UnknownPlaceholder for
// codes outside the vocabulary.
func StatusLabel(v any) string {
	code, ok := v.(status.Code)
	if !ok {
		return status.UnknownPlaceholder
	}
	return status.Display(code)
}

// StatusClass returns the severity classes for code, or "status-unknown".
func StatusClass(code status.Code) string {
	class, err := status.CSSClass(code)
	if err != nil {
		return "status-unknown"
	}
	return class
}
