// Package tree holds the category navigation tree: top-level categories
// that expand on demand into links to their packages.
package tree

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/bulktracker/btdash/internal/btclient"
)

// LoadFailedMessage is shown in place of a category's children when they
// could not be loaded.
const LoadFailedMessage = "Failed to load navigation."

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrSuperseded      = errors.New("category load superseded")
)

type State int

const (
	Collapsed State = iota
	Loading
	Expanded
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Expanded:
		return "expanded"
	default:
		return "collapsed"
	}
}

// Link is one package entry under a category.
type Link struct {
	Text string
	Href string
}

type node struct {
	name     string
	state    State
	children []Link
	loaded   bool
	err      string
	gen      uint64
	// done is closed when the node's current loading episode ends.
	done chan struct{}
}

func (n *node) endLoad() {
	if n.done != nil {
		close(n.done)
		n.done = nil
	}
}

// NodeView is a snapshot of one category.
type NodeView struct {
	Name     string
	State    State
	Children []Link
	Err      string
}

// Visible reports whether the node's body (children, load error or the
// loading notice) is shown.
func (v NodeView) Visible() bool { return v.State != Collapsed || v.Err != "" }

func (v NodeView) Loading() bool { return v.State == Loading }

// Tree is safe for concurrent use.
type Tree struct {
	fetcher btclient.Fetcher
	base    string

	mu        sync.Mutex
	order     []string
	nodes     map[string]*node
	topLoaded bool
}

func New(fetcher btclient.Fetcher, basePrefix string) *Tree {
	if !strings.HasSuffix(basePrefix, "/") {
		basePrefix += "/"
	}
	return &Tree{
		fetcher: fetcher,
		base:    basePrefix,
		nodes:   map[string]*node{},
	}
}

// Sanitize reduces a category name to its first path segment.
func Sanitize(name string) string {
	name = strings.TrimSpace(name)
	first, _, _ := strings.Cut(name, "/")
	return first
}

// TopLevelLoaded reports whether LoadTopLevel has succeeded.
func (t *Tree) TopLevelLoaded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.topLoaded
}

// LoadTopLevel fetches the category list. Categories already known keep
// their state and cached children.
func (t *Tree) LoadTopLevel(ctx context.Context) error {
	names, err := btclient.FetchList[string](ctx, t.fetcher, btclient.CategoriesPath)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	order := make([]string, 0, len(names))
	seen := map[string]bool{}
	for _, raw := range names {
		name := Sanitize(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		order = append(order, name)
		if _, ok := t.nodes[name]; !ok {
			t.nodes[name] = &node{name: name}
		}
	}
	for name := range t.nodes {
		if !seen[name] {
			delete(t.nodes, name)
		}
	}
	t.order = order
	t.topLoaded = true
	return nil
}

// Expand shows a category's packages, fetching them on first expansion
// only. A failed load leaves the node collapsed with LoadFailedMessage and
// can be retried. An Expand overtaken by a newer one waits for the newer
// load (or ctx) before returning ErrSuperseded, so the node can be read
// in its settled state.
func (t *Tree) Expand(ctx context.Context, name string) error {
	name = Sanitize(name)
	t.mu.Lock()
	n, ok := t.nodes[name]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	if n.loaded {
		n.state = Expanded
		t.mu.Unlock()
		return nil
	}
	n.gen++
	gen := n.gen
	if n.state != Loading || n.done == nil {
		n.done = make(chan struct{})
	}
	n.state = Loading
	n.err = ""
	t.mu.Unlock()

	pkgs, err := btclient.FetchList[string](ctx, t.fetcher, btclient.CategoryPath(name))

	t.mu.Lock()
	if n.gen != gen {
		done := n.done
		t.mu.Unlock()
		if done != nil {
			select {
			case <-done:
			case <-ctx.Done():
			}
		}
		return ErrSuperseded
	}
	defer t.mu.Unlock()
	defer n.endLoad()
	if err != nil {
		n.state = Collapsed
		n.err = LoadFailedMessage
		return fmt.Errorf("expand category %s: %w", name, err)
	}
	n.children = make([]Link, 0, len(pkgs))
	for _, pkg := range pkgs {
		n.children = append(n.children, Link{
			Text: pkg,
			Href: t.base + "pkgresults/" + url.PathEscape(name) + "/" + url.PathEscape(pkg),
		})
	}
	n.loaded = true
	n.state = Expanded
	return nil
}

// Collapse hides a category's children and keeps them cached. A load in
// flight for the node is discarded when it completes.
func (t *Tree) Collapse(name string) error {
	name = Sanitize(name)
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	if n.state == Loading {
		n.gen++
		n.endLoad()
	}
	n.state = Collapsed
	n.err = ""
	return nil
}

// Node returns a snapshot of one category.
func (t *Tree) Node(name string) (NodeView, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[Sanitize(name)]
	if !ok {
		return NodeView{}, false
	}
	return n.view(), true
}

// Nodes returns snapshots of every category in upstream order.
func (t *Tree) Nodes() []NodeView {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]NodeView, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.nodes[name].view())
	}
	return out
}

func (n *node) view() NodeView {
	v := NodeView{Name: n.name, State: n.state, Err: n.err}
	if n.state == Expanded {
		v.Children = append([]Link(nil), n.children...)
	}
	return v
}
