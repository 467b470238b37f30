package server

import (
	"bytes"
	"html/template"

	"github.com/bulktracker/btdash/internal/protocol"
	"github.com/bulktracker/btdash/internal/table"
	"github.com/bulktracker/btdash/internal/tree"
)

const uiLayoutHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}} - {{.SiteTitle}}</title>
  <style>{{.CSS}}</style>
</head>
<body>
<main>
  <header class="card">
    <h1><a href="{{.Base}}">{{.SiteTitle}}</a></h1>
    <nav>
      <a href="{{.Base}}">Builds</a>
      <a href="{{.Base}}categories">Categories</a>
      <form class="selector" method="post" action="{{.Base}}select">
        <input type="text" id="pkg-select" name="pkg" list="pkg-suggestions" placeholder="category/package" autocomplete="off">
        <datalist id="pkg-suggestions"></datalist>
        <button type="submit">Go</button>
      </form>
    </nav>
  </header>
  {{template "content" .}}
</main>
<script src="{{.Base}}ui/autocomplete.js" data-base="{{.Base}}"></script>
</body>
</html>
`

const uiBuildsHTML = `{{define "content"}}
  {{if .Lead}}<section class="card lead">{{.Lead}}</section>{{end}}
  <section class="card" id="builds-panel">
    <h2>{{.Heading}}</h2>
    {{if .Error}}<div class="alert" id="error">{{.Error}}</div>{{end}}
    {{.Table}}
  </section>
{{end}}`

const uiBuildHTML = `{{define "content"}}
  <section class="card" id="build-info">
    <h2>{{.Heading}}</h2>
    {{if .BuildError}}<div class="alert">{{.BuildError}}</div>
    {{else}}{{with .Build}}
    <dl class="build-info">
      <dt>Date</dt><dd>{{dateOnly .BuildTs}}</dd>
      <dt>Platform</dt><dd>{{.Platform}}</dd>
      <dt>Branch</dt><dd>{{.Branch}}</dd>
      {{if .Compiler}}<dt>Compiler</dt><dd>{{.Compiler}}</dd>{{end}}
      <dt>User</dt><dd>{{.BuildUser}}</dd>
      <dt>Results</dt><dd>{{.Summary}}</dd>
      {{if .ReportURL}}<dt>Report</dt><dd><a href="{{.ReportURL}}">{{.ReportBase}}</a></dd>{{end}}
    </dl>
    {{end}}{{end}}
  </section>
  <section class="card" id="breaking-panel">
    <h2>Packages breaking most other packages</h2>
    {{if .Error}}<div class="alert" id="error">{{.Error}}</div>{{end}}
    {{.Table}}
  </section>
  <section class="card" id="categories-panel">
    <h2>Categories</h2>
    {{if .NavError}}<p class="text-error">{{.NavError}}</p>{{else}}{{template "category-list" .}}{{end}}
  </section>
{{end}}`

const uiPkgResultsHTML = `{{define "content"}}
  <section class="card" id="pkgresults-panel">
    <h2 id="pkgname-header">{{.Heading}}</h2>
    {{if .Error}}<div class="alert" id="error">{{.Error}}</div>{{end}}
    {{if not .HideResults}}
    <div id="results">
      <p class="variant-toggle">
        <a id="latest" href="{{.LatestHref}}"{{if eq .Variant "pkgresults"}} class="active"{{end}}>Latest</a>
        <a id="all" href="{{.AllHref}}"{{if eq .Variant "allpkgresults"}} class="active"{{end}}>All</a>
      </p>
      {{.Table}}
    </div>
    {{end}}
  </section>
{{end}}`

const uiCategoriesHTML = `{{define "content"}}
  <section class="card" id="categories-panel">
    <h2>{{.Heading}}</h2>
    {{if .Error}}<div class="alert" id="error">{{.Error}}</div>{{end}}
    {{template "category-list" .}}
  </section>
{{end}}`

const uiCategoryListHTML = `{{define "category-list"}}
    <ul class="categories">
    {{range .Nodes}}
      <li id="{{.Name}}-node">
        <form method="post" action="{{$.Base}}categories/{{.Name}}/{{if eq .State.String "expanded"}}collapse{{else}}expand{{end}}">
          {{if $.ReturnTo}}<input type="hidden" name="return" value="{{$.ReturnTo}}">{{end}}
          <button type="submit" id="{{.Name}}-collapse">{{if eq .State.String "expanded"}}&minus;{{else}}+{{end}}</button>
        </form>
        {{.Name}}
        {{if .Visible}}<div id="{{.Name}}-body">{{template "category-body" .}}</div>{{end}}
      </li>
    {{end}}
    </ul>
{{- end}}`

const uiCategoryBodyHTML = `{{define "category-body"}}
{{- if .Err}}<p class="text-error">{{.Err}}</p>
{{- else if .Loading}}<p class="text-muted">Loading packages...</p>
{{- else if .Visible}}<ul class="list-inline">{{range .Children}}<li class="column-item"><a href="{{.Href}}">{{.Text}}</a></li>{{end}}</ul>
{{- end}}
{{- end}}`

var uiFuncs = template.FuncMap{
	"dateOnly": table.DateOnly,
}

var (
	uiLayout       = template.Must(template.New("layout").Funcs(uiFuncs).Parse(uiLayoutHTML + uiCategoryListHTML + uiCategoryBodyHTML))
	buildsPage     = mustPage(uiBuildsHTML)
	buildPage      = mustPage(uiBuildHTML)
	pkgResultsPage = mustPage(uiPkgResultsHTML)
	categoriesPage = mustPage(uiCategoriesHTML)
)

func mustPage(content string) *template.Template {
	return template.Must(template.Must(uiLayout.Clone()).Parse(content))
}

type pageData struct {
	Title     string
	SiteTitle string
	Base      string
	CSS       template.CSS
	Lead      template.HTML

	Heading     string
	Error       string
	HideResults bool
	Table       template.HTML

	Build      *protocol.BuildRecord
	BuildError string

	Variant    string
	LatestHref string
	AllHref    string

	Nodes    []tree.NodeView
	NavError string
	// ReturnTo is where expand and collapse send the browser back to.
	ReturnTo string
}

func (s *Server) newPageData(title string) pageData {
	return pageData{
		Title:     title,
		SiteTitle: s.cfg.UI.Title,
		Base:      s.base,
		CSS:       template.CSS(uiPageChromeCSS),
	}
}

func renderPage(t *template.Template, data pageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderCategoryBody(node tree.NodeView) ([]byte, error) {
	var buf bytes.Buffer
	if err := uiLayout.ExecuteTemplate(&buf, "category-body", node); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
