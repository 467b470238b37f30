// Package status maps BulkTracker package build status codes to their
// display labels and CSS severity classes.
package status

import (
	"errors"
	"fmt"
	"strings"
)

// Code is the integer build status of a package result.
type Code int

const (
	OK Code = iota
	Prefailed
	Failed
	IndirectFailed
	IndirectPrefailed
)

// UnknownPlaceholder is rendered in place of a label for codes outside the
// vocabulary.
const UnknownPlaceholder = "unknown"

var ErrUnknownStatusCode = errors.New("unknown status code")

type entry struct {
	label    string
	cssClass string
}

var vocabulary = map[Code]entry{
	OK:                {label: "ok", cssClass: "success text-success"},
	Prefailed:         {label: "prefailed", cssClass: "info text-info"},
	Failed:            {label: "failed", cssClass: "danger text-danger"},
	IndirectFailed:    {label: "indirect-failed", cssClass: "warning text-warning"},
	IndirectPrefailed: {label: "indirect-prefailed", cssClass: "info text-info"},
}

func lookup(code Code) (entry, error) {
	e, ok := vocabulary[code]
	if !ok {
		return entry{}, fmt.Errorf("%w: %d", ErrUnknownStatusCode, int(code))
	}
	return e, nil
}

func Label(code Code) (string, error) {
	e, err := lookup(code)
	if err != nil {
		return "", err
	}
	return e.label, nil
}

func CSSClass(code Code) (string, error) {
	e, err := lookup(code)
	if err != nil {
		return "", err
	}
	return e.cssClass, nil
}

// Display returns the label for code, or UnknownPlaceholder when the code
// is not part of the vocabulary.
func Display(code Code) string {
	label, err := Label(code)
	if err != nil {
		return UnknownPlaceholder
	}
	return label
}

// Parse maps a label back to its code. It accepts the labels returned by
// Label, case-insensitively.
func Parse(label string) (Code, error) {
	want := strings.ToLower(strings.TrimSpace(label))
	for code, e := range vocabulary {
		if e.label == want {
			return code, nil
		}
	}
	return 0, fmt.Errorf("%w: label %q", ErrUnknownStatusCode, label)
}

func (c Code) String() string {
	return Display(c)
}
