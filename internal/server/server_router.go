package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
)

func buildRouter(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Pages
	r.Get("/", s.buildsPageHandler)
	r.Get("/build/{id}", s.buildPageHandler)
	r.Get("/pkg/{id}", s.pkgRedirectHandler)
	r.Get("/pkgresults/*", s.pkgResultsPageHandler)

	// Navigation
	r.Get("/categories", s.categoriesPageHandler)
	r.Get("/categories/{name}/", s.categoryFragmentHandler)
	r.Post("/categories/{name}/expand", s.categoryExpandHandler)
	r.Post("/categories/{name}/collapse", s.categoryCollapseHandler)
	r.Get("/select", s.selectHandler)
	r.Post("/select", s.selectHandler)
	r.Get("/autocomplete", s.autocompleteHandler)
	r.Get("/ui/autocomplete.js", autocompleteScriptHandler)

	// Health/info
	r.Get("/healthz", healthzHandler)
	r.Get("/api/v1/server-info", s.serverInfoHandler)

	// JSON API
	r.Get("/api/v1/builds", s.apiBuildsHandler)
	r.Get("/api/v1/builds/{id}", s.apiBuildHandler)
	r.Get("/api/v1/pkgresults/{cat}/{pkg}", s.apiPkgResultsHandler)
	r.Get("/api/v1/categories", s.apiCategoriesHandler)
	r.Get("/api/v1/categories/{name}", s.apiCategoryHandler)

	// Package paths selected through the selector land here.
	r.Get("/{cat}/{pkg}", s.pkgResultsPageHandler)

	var h http.Handler = r
	if prefix := strings.TrimSuffix(s.base, "/"); prefix != "" {
		root := chi.NewRouter()
		root.Mount(prefix, r)
		h = root
	}
	return gzhttp.GzipHandler(h)
}
