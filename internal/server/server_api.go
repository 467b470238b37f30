package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bulktracker/btdash/internal/btclient"
	"github.com/bulktracker/btdash/internal/protocol"
	"github.com/bulktracker/btdash/internal/server/httpx"
	"github.com/bulktracker/btdash/internal/status"
	"github.com/bulktracker/btdash/internal/tree"
)

type buildsResponse struct {
	Builds []protocol.BuildRecord `json:"builds"`
}

type buildResponse struct {
	Build      *protocol.BuildRecord            `json:"build,omitempty"`
	BuildError string                           `json:"build_error,omitempty"`
	Breaking   []protocol.BreakingPackageRecord `json:"breaking"`
}

type pkgResultsResponse struct {
	Package string                         `json:"package"`
	Variant string                         `json:"variant"`
	Results []protocol.PackageResultRecord `json:"results"`
}

type categoriesResponse struct {
	Categories []string `json:"categories"`
}

type categoryResponse struct {
	Category string   `json:"category"`
	Packages []string `json:"packages"`
}

func (s *Server) apiBuildsHandler(w http.ResponseWriter, r *http.Request) {
	builds, err := btclient.FetchList[protocol.BuildRecord](r.Context(), s.client, btclient.AllBuildsPath)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildsResponse{Builds: builds})
}

func (s *Server) apiBuildHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	breaking, err := btclient.FetchList[protocol.BreakingPackageRecord](r.Context(), s.client, btclient.BreakingMostOthersPath(id))
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	resp := buildResponse{Breaking: breaking}
	build, err := btclient.FetchObject[protocol.BuildRecord](r.Context(), s.client, btclient.BuildPath(id))
	if err != nil {
		resp.BuildError, _ = classifyError(err)
	} else {
		resp.Build = &build
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// apiPkgResultsHandler serves package results. ?variant=all selects the
// allpkgresults endpoint and ?status=<label> keeps only matching results.
func (s *Server) apiPkgResultsHandler(w http.ResponseWriter, r *http.Request) {
	cat, pkg, err := parsePackagePath(chi.URLParam(r, "cat") + "/" + chi.URLParam(r, "pkg"))
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	q := r.URL.Query()
	want := -1
	if label := strings.TrimSpace(q.Get("status")); label != "" {
		code, err := status.Parse(label)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		want = int(code)
	}
	variant := btclient.ParseVariant(q.Get("variant"))
	results, err := btclient.FetchList[protocol.PackageResultRecord](r.Context(), s.client, btclient.PackageResultsPath(variant, cat, pkg))
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	if want >= 0 {
		kept := results[:0]
		for _, res := range results {
			if int(res.BuildStatus) == want {
				kept = append(kept, res)
			}
		}
		results = kept
	}
	httpx.WriteJSON(w, http.StatusOK, pkgResultsResponse{
		Package: cat + "/" + pkg,
		Variant: string(variant),
		Results: results,
	})
}

func (s *Server) apiCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	names, err := btclient.FetchList[string](r.Context(), s.client, btclient.CategoriesPath)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	out := make([]string, 0, len(names))
	seen := map[string]bool{}
	for _, n := range names {
		if n = tree.Sanitize(n); n != "" && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	httpx.WriteJSON(w, http.StatusOK, categoriesResponse{Categories: out})
}

func (s *Server) apiCategoryHandler(w http.ResponseWriter, r *http.Request) {
	name := tree.Sanitize(chi.URLParam(r, "name"))
	if name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "category name is required")
		return
	}
	pkgs, err := btclient.FetchList[string](r.Context(), s.client, btclient.CategoryPath(name))
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, categoryResponse{Category: name, Packages: pkgs})
}
