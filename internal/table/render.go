package table

import (
	"bytes"
	"html/template"
	"net/url"
	"strconv"
)

// Header is a column heading with its re-sort link.
type Header struct {
	Title  string
	Href   string
	Active bool
	Dir    string
}

// View is the template-ready form of one table page.
type View struct {
	ID        string
	Headers   []Header
	Rows      []Row
	Page      int
	PageCount int
	Total     int
	PrevHref  string
	NextHref  string
	Filter    string
}

// View builds page n of the table. query carries the request's current
// query parameters so sort and pager links keep the filter and variant.
func (t *Table[T]) View(id string, n int, query url.Values) View {
	p := t.Page(n)
	v := View{
		ID:        id,
		Rows:      p.Rows,
		Page:      p.Number,
		PageCount: p.Count,
		Total:     p.Total,
		Filter:    t.filter,
	}
	cur, sorted := t.Sorted()
	for i, col := range t.Columns {
		h := Header{Title: col.Title}
		dir := Ascending
		if sorted && cur.Column == i {
			h.Active = true
			h.Dir = cur.Direction.String()
			if cur.Direction == Ascending {
				dir = Descending
			}
		}
		q := cloneQuery(query)
		q.Set("sort", strconv.Itoa(i))
		q.Set("dir", dir.String())
		q.Del("page")
		h.Href = "?" + q.Encode()
		v.Headers = append(v.Headers, h)
	}
	if p.Number > 1 {
		v.PrevHref = pageHref(query, p.Number-1)
	}
	if p.Number < p.Count {
		v.NextHref = pageHref(query, p.Number+1)
	}
	return v
}

func pageHref(query url.Values, n int) string {
	q := cloneQuery(query)
	q.Set("page", strconv.Itoa(n))
	return "?" + q.Encode()
}

func cloneQuery(q url.Values) url.Values {
	out := url.Values{}
	for k, vs := range q {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

var tableTemplate = template.Must(template.New("table").Parse(`
{{- define "cell" -}}
<td{{if .Class}} class="{{.Class}}"{{end}}{{if .Hint}} title="{{.Hint}}"{{end}}>{{if .Href}}<a href="{{.Href}}">{{.Text}}</a>{{else}}{{.Text}}{{end}}</td>
{{- end -}}
{{- define "row" -}}
<tr>{{range .Cells}}{{template "cell" .}}{{end}}</tr>
{{- end -}}
{{- define "table" -}}
<form class="table-filter" method="get">
  <input type="search" name="filter" value="{{.Filter}}" placeholder="Filter (glob or text)">
</form>
<table id="{{.ID}}" class="table">
  <thead><tr>{{range .Headers}}<th{{if .Active}} class="sorted-{{.Dir}}"{{end}}><a href="{{.Href}}">{{.Title}}</a></th>{{end}}</tr></thead>
  <tbody>
  {{- range .Rows}}
  {{template "row" .}}
  {{- else}}
  <tr><td class="empty" colspan="{{len .Headers}}">No results.</td></tr>
  {{- end}}
  </tbody>
</table>
{{- if gt .PageCount 1}}
<nav class="pager">
  {{if .PrevHref}}<a href="{{.PrevHref}}">&laquo; Previous</a>{{end}}
  <span>Page {{.Page}} of {{.PageCount}} ({{.Total}} rows)</span>
  {{if .NextHref}}<a href="{{.NextHref}}">Next &raquo;</a>{{end}}
</nav>
{{- end}}
{{- end -}}
`))

// HTML renders the view as a table with its filter box and pager.
func (v View) HTML() (template.HTML, error) {
	var buf bytes.Buffer
	if err := tableTemplate.ExecuteTemplate(&buf, "table", v); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
