package server

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bulktracker/btdash/internal/btclient"
	"github.com/bulktracker/btdash/internal/protocol"
	"github.com/bulktracker/btdash/internal/server/httpx"
	"github.com/bulktracker/btdash/internal/table"
	"github.com/bulktracker/btdash/internal/tree"
)

// loadTableHTML loads one table and renders the page requested by the
// query's sort, dir, filter and page parameters.
func loadTableHTML[T any](ctx context.Context, s *Server, q url.Values, id, endpoint string, columns []table.Column[T], opts table.Options) (template.HTML, error) {
	opts.BasePrefix = s.base
	tbl, err := table.NewBinding(s.client, endpoint, columns, opts).Load(ctx)
	if err != nil {
		return "", err
	}
	if v := strings.TrimSpace(q.Get("sort")); v != "" {
		col, err := strconv.Atoi(v)
		if err == nil {
			err = tbl.Sort(col, table.ParseDirection(q.Get("dir")))
		}
		if err != nil {
			slog.Debug("ignore sort parameter", "sort", v, "error", err)
		}
	}
	return tbl.Filter(q.Get("filter")).View(id, queryInt(q, "page", 1), q).HTML()
}

func (s *Server) writePage(w http.ResponseWriter, r *http.Request, t *template.Template, status int, data pageData) {
	body, err := renderPage(t, data)
	if err != nil {
		slog.Error("render page", "path", r.URL.Path, "error", err)
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}
	httpx.WriteHTML(w, r, status, body)
}

// panelError records err on the page and returns the response status.
func panelError(r *http.Request, data *pageData, what string, err error) int {
	msg, code := classifyError(err)
	slog.Warn("load "+what, "path", r.URL.Path, "error", err)
	data.Error = msg
	return code
}

func (s *Server) buildsPageHandler(w http.ResponseWriter, r *http.Request) {
	data := s.newPageData("Builds")
	data.Heading = "Latest bulk builds"
	data.Lead = s.lead
	status := http.StatusOK

	html, err := loadTableHTML(r.Context(), s, r.URL.Query(), "builds", btclient.AllBuildsPath, buildColumns, table.Options{
		Paging:      true,
		PageSize:    s.cfg.UI.PageSize,
		DefaultSort: &buildDefaultSort,
	})
	if err != nil {
		status = panelError(r, &data, "builds", err)
	}
	data.Table = html
	s.writePage(w, r, buildsPage, status, data)
}

func (s *Server) buildPageHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	data := s.newPageData("Build " + id)
	data.Heading = "Build " + id
	status := http.StatusOK

	// The header panel is independent of the table below it.
	build, err := btclient.FetchObject[protocol.BuildRecord](r.Context(), s.client, btclient.BuildPath(id))
	if err != nil {
		msg, _ := classifyError(err)
		slog.Warn("load build details", "build", id, "error", err)
		data.BuildError = msg
	} else {
		data.Build = &build
	}

	html, err := loadTableHTML(r.Context(), s, r.URL.Query(), "breaking", btclient.BreakingMostOthersPath(id), breakingColumns, table.Options{
		Paging:      true,
		PageSize:    s.cfg.UI.PageSize,
		DefaultSort: &breakingDefaultSort,
	})
	if err != nil {
		status = panelError(r, &data, "breaking packages", err)
	}
	data.Table = html

	// The category panel fails on its own without affecting the page status.
	nav := s.sessionTree(w, r)
	if err := ensureTopLevel(r.Context(), nav); err != nil {
		slog.Warn("load categories", "path", r.URL.Path, "error", err)
		data.NavError = tree.LoadFailedMessage
	}
	data.Nodes = nav.Nodes()
	data.ReturnTo = r.URL.Path
	s.writePage(w, r, buildPage, status, data)
}

// packagePathParam returns the "category/package" part of a package results
// URL, either from the pkgresults wildcard or the short {cat}/{pkg} form.
func packagePathParam(r *http.Request) string {
	if rest := chi.URLParam(r, "*"); rest != "" {
		return rest
	}
	cat, pkg := chi.URLParam(r, "cat"), chi.URLParam(r, "pkg")
	if cat == "" && pkg == "" {
		return ""
	}
	return cat + "/" + pkg
}

func (s *Server) pkgResultsPageHandler(w http.ResponseWriter, r *http.Request) {
	raw := packagePathParam(r)
	data := s.newPageData("Package results")

	cat, pkg, err := parsePackagePath(raw)
	if err != nil {
		status := panelError(r, &data, "package results", err)
		data.HideResults = true
		s.writePage(w, r, pkgResultsPage, status, data)
		return
	}

	q := r.URL.Query()
	variant := btclient.ParseVariant(q.Get("variant"))
	data.Title = cat + "/" + pkg
	data.Heading = cat + "/" + pkg
	data.Variant = string(variant)
	data.LatestHref = variantHref(q, "latest")
	data.AllHref = variantHref(q, "all")
	status := http.StatusOK

	html, err := loadTableHTML(r.Context(), s, q, "pkgresults", btclient.PackageResultsPath(variant, cat, pkg), pkgResultColumns, table.Options{})
	if err != nil {
		status = panelError(r, &data, "package results", err)
	}
	data.Table = html
	s.writePage(w, r, pkgResultsPage, status, data)
}

func variantHref(q url.Values, variant string) string {
	out := url.Values{}
	for _, k := range []string{"sort", "dir", "filter"} {
		if v := q.Get(k); v != "" {
			out.Set(k, v)
		}
	}
	if variant != "latest" {
		out.Set("variant", variant)
	}
	if len(out) == 0 {
		return "?"
	}
	return "?" + out.Encode()
}

// pkgRedirectHandler sends package result links to the upstream result
// page, which owns per-result details.
func (s *Server) pkgRedirectHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, s.client.Resolve("pkg/"+pathSegment(id)), http.StatusFound)
}
