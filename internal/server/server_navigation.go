package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bulktracker/btdash/internal/selector"
	"github.com/bulktracker/btdash/internal/server/httpx"
	"github.com/bulktracker/btdash/internal/tree"
)

const sessionCookie = "btdash_session"

// sessionTree returns the category tree of the requesting browser,
// issuing a new session cookie when needed.
func (s *Server) sessionTree(w http.ResponseWriter, r *http.Request) *tree.Tree {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	t, newID := s.sessions.Get(id, s.now())
	if newID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    newID,
			Path:     s.base,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return t
}

func ensureTopLevel(ctx context.Context, t *tree.Tree) error {
	if t.TopLevelLoaded() {
		return nil
	}
	return t.LoadTopLevel(ctx)
}

func (s *Server) categoriesPageHandler(w http.ResponseWriter, r *http.Request) {
	t := s.sessionTree(w, r)
	data := s.newPageData("Categories")
	data.Heading = "Categories"
	status := http.StatusOK
	if err := ensureTopLevel(r.Context(), t); err != nil {
		status = panelError(r, &data, "categories", err)
	}
	data.Nodes = t.Nodes()
	s.writePage(w, r, categoriesPage, status, data)
}

func (s *Server) categoryExpandHandler(w http.ResponseWriter, r *http.Request) {
	s.categoryAction(w, r, func(t *tree.Tree, name string) error {
		return t.Expand(r.Context(), name)
	})
}

func (s *Server) categoryCollapseHandler(w http.ResponseWriter, r *http.Request) {
	s.categoryAction(w, r, func(t *tree.Tree, name string) error {
		return t.Collapse(name)
	})
}

// categoryAction applies an expand or collapse and sends the browser back
// to the category list. Load failures are kept on the node and shown there.
func (s *Server) categoryAction(w http.ResponseWriter, r *http.Request, apply func(*tree.Tree, string) error) {
	t := s.sessionTree(w, r)
	name := tree.Sanitize(chi.URLParam(r, "name"))
	if err := ensureTopLevel(r.Context(), t); err != nil {
		slog.Warn("load categories", "error", err)
		http.Redirect(w, r, s.returnTarget(r.FormValue("return")), http.StatusSeeOther)
		return
	}
	err := apply(t, name)
	switch {
	case errors.Is(err, tree.ErrUnknownCategory):
		http.NotFound(w, r)
		return
	case errors.Is(err, tree.ErrSuperseded):
	case err != nil:
		slog.Warn("category action failed", "category", name, "error", err)
	}
	http.Redirect(w, r, s.returnTarget(r.FormValue("return"))+"#"+name+"-node", http.StatusSeeOther)
}

// returnTarget accepts a local path under the base prefix as the page to
// go back to after a category action; anything else means the category
// list.
func (s *Server) returnTarget(raw string) string {
	fallback := s.base + "categories"
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || raw == "" || u.Scheme != "" || u.Host != "" || strings.HasPrefix(u.Path, "//") {
		return fallback
	}
	if !strings.HasPrefix(u.Path, s.base) {
		return fallback
	}
	return u.EscapedPath()
}

// categoryFragmentHandler expands a category and answers with just its
// package list. A node still loading for another request answers 202 with
// a loading notice.
func (s *Server) categoryFragmentHandler(w http.ResponseWriter, r *http.Request) {
	t := s.sessionTree(w, r)
	name := tree.Sanitize(chi.URLParam(r, "name"))
	if err := ensureTopLevel(r.Context(), t); err != nil {
		slog.Warn("load categories", "error", err)
		httpx.WriteHTML(w, r, http.StatusBadGateway, []byte(`<p class="text-error">`+tree.LoadFailedMessage+`</p>`))
		return
	}
	err := t.Expand(r.Context(), name)
	if errors.Is(err, tree.ErrUnknownCategory) {
		http.NotFound(w, r)
		return
	}
	status := http.StatusOK
	if err != nil && !errors.Is(err, tree.ErrSuperseded) {
		slog.Warn("expand category", "category", name, "error", err)
		status = http.StatusBadGateway
	}
	node, _ := t.Node(name)
	if node.Loading() {
		status = http.StatusAccepted
	}
	body, err := renderCategoryBody(node)
	if err != nil {
		slog.Error("render category", "category", name, "error", err)
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}
	httpx.WriteHTML(w, r, status, body)
}

// selectHandler turns a package selection into a navigation.
func (s *Server) selectHandler(w http.ResponseWriter, r *http.Request) {
	target, err := selector.Target(s.base, r.FormValue("pkg"))
	if err != nil {
		slog.Debug("reject package selection", "error", err)
		http.Error(w, "invalid package selection", http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) autocompleteHandler(w http.ResponseWriter, r *http.Request) {
	resp, err := selector.Suggest(r.Context(), s.client, r.URL.Query().Get("q"))
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
