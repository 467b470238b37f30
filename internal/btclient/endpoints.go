package btclient

import (
	"net/url"
	"strings"
)

// Variant selects one of the two package result endpoints. The API does not
// document how their record sets relate, so both are exposed as is.
type Variant string

const (
	VariantLatest Variant = "pkgresults"
	VariantAll    Variant = "allpkgresults"
)

// ParseVariant maps the "variant" query values used by the pages onto an
// endpoint. Anything but "all" selects the latest results.
func ParseVariant(v string) Variant {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "all", string(VariantAll):
		return VariantAll
	default:
		return VariantLatest
	}
}

const (
	AllBuildsPath  = "json/allbuilds/"
	CategoriesPath = "json/dir/"
)

func BuildPath(buildID string) string {
	return "json/build/" + url.PathEscape(buildID)
}

func PackageResultsPath(v Variant, category, pkg string) string {
	return "json/" + string(v) + "/" + url.PathEscape(category) + "/" + url.PathEscape(pkg)
}

func BreakingMostOthersPath(buildID string) string {
	return "json/pkgsbreakingmostothers/" + url.PathEscape(buildID)
}

func CategoryPath(category string) string {
	return CategoriesPath + url.PathEscape(category) + "/"
}

func AutocompletePath(query string) string {
	return "json/autocomplete/?q=" + url.QueryEscape(query)
}
