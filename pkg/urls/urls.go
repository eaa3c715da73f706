package urls

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/ethpandaops/reportviewer/pkg/filters"
)

// Query parameters understood by the report viewer page
const (
	ParamPreselectFilters = "preselect_filters"
	ParamNativeFiltersKey = "native_filters_key"
	ParamPermalinkKey     = "permalink_key"
	ParamStandalone       = "standalone"
)

// StandaloneMode controls how much chrome an embedded report viewer shows
type StandaloneMode int

const (
	StandaloneNone StandaloneMode = iota
	StandaloneHideNav
	StandaloneHideNavAndTitle
	StandaloneReport
)

// Param is one query parameter. Order is kept as given.
type Param struct {
	Key   string
	Value string
}

// ReportViewerURL describes a link to a report viewer page
type ReportViewerURL struct {
	Pathname string
	// Query holds parameters of the current location that are carried over
	Query []Param
	// Filters are encoded as preselect_filters when not empty
	Filters    map[string]filters.ActiveFilter
	Hash       string
	Standalone StandaloneMode
}

// String renders the link. Parameters in Query are preserved in order,
// preselect_filters replaces a carried over value and standalone comes last.
func (u ReportViewerURL) String() (string, error) {
	params := make([]Param, 0, len(u.Query)+2)

	preselect := ""

	if len(u.Filters) > 0 {
		encoded, err := PreselectFilters(u.Filters)
		if err != nil {
			return "", err
		}

		preselect = encoded
	}

	replaced := false

	for _, p := range u.Query {
		if p.Key == ParamStandalone {
			continue
		}

		if p.Key == ParamPreselectFilters && preselect != "" {
			if replaced {
				continue
			}

			p.Value = preselect
			replaced = true
		}

		params = append(params, p)
	}

	if preselect != "" && !replaced {
		params = append(params, Param{Key: ParamPreselectFilters, Value: preselect})
	}

	if u.Standalone != StandaloneNone {
		params = append(params, Param{Key: ParamStandalone, Value: strconv.Itoa(int(u.Standalone))})
	}

	var b strings.Builder

	b.WriteString(u.Pathname)

	for i, p := range params {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}

		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}

	if u.Hash != "" {
		b.WriteByte('#')
		b.WriteString(u.Hash)
	}

	return b.String(), nil
}

// ParseQuery splits a raw query string into ordered parameters
func ParseQuery(raw string) ([]Param, error) {
	raw = strings.TrimPrefix(raw, "?")
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, "&")
	out := make([]Param, 0, len(parts))

	for _, part := range parts {
		if part == "" {
			continue
		}

		key, value, _ := strings.Cut(part, "=")

		k, err := url.QueryUnescape(key)
		if err != nil {
			return nil, fmt.Errorf("invalid query key %q: %w", key, err)
		}

		v, err := url.QueryUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("invalid query value for %q: %w", k, err)
		}

		out = append(out, Param{Key: k, Value: v})
	}

	return out, nil
}

// PreselectFilters encodes active filters as {"<chartId>": {"<column>": values}}
func PreselectFilters(active map[string]filters.ActiveFilter) (string, error) {
	out := make(map[string]map[string][]any)

	keys := make([]string, 0, len(active))
	for key := range active {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		chartID, column, err := filters.ParseKey(key)
		if err != nil {
			return "", err
		}

		id := strconv.Itoa(chartID)
		if out[id] == nil {
			out[id] = make(map[string][]any)
		}

		values := active[key].Values
		if values == nil {
			values = []any{}
		}

		out[id][column] = values
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to encode filters: %w", err)
	}

	return string(data), nil
}

// Builder renders absolute share links from the configured templates
type Builder struct {
	base      *url.URL
	permalink *template.Template
	viewer    *template.Template
	subject   *template.Template
	body      *template.Template
}

// NewBuilder parses the link templates of cfg
func NewBuilder(cfg *Config) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}

	b := &Builder{base: base}

	for _, t := range []struct {
		name string
		text string
		dst  **template.Template
	}{
		{name: "permalink", text: cfg.PermalinkPath, dst: &b.permalink},
		{name: "reportviewer", text: cfg.ReportViewerPath, dst: &b.viewer},
		{name: "subject", text: cfg.EmailSubject, dst: &b.subject},
		{name: "body", text: cfg.EmailBody, dst: &b.body},
	} {
		tmpl, err := template.New(t.name).Funcs(sprig.TxtFuncMap()).Parse(t.text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", t.name, err)
		}

		*t.dst = tmpl
	}

	return b, nil
}

// Permalink returns the absolute URL of a permalink key
func (b *Builder) Permalink(key string) (string, error) {
	path, err := render(b.permalink, map[string]any{"Key": url.PathEscape(key)})
	if err != nil {
		return "", err
	}

	return b.base.String() + path, nil
}

// ReportViewer returns the absolute URL of a report viewer, optionally
// pointing at a stored filter state.
func (b *Builder) ReportViewer(id int, slug, filterStateKey string) (string, error) {
	path, err := render(b.viewer, map[string]any{"ID": id, "Slug": slug})
	if err != nil {
		return "", err
	}

	u := ReportViewerURL{Pathname: b.base.String() + path}
	if filterStateKey != "" {
		u.Query = []Param{{Key: ParamNativeFiltersKey, Value: filterStateKey}}
	}

	return u.String()
}

// Mailto returns a mailto link sharing link under title
func (b *Builder) Mailto(title, link string) (string, error) {
	vars := map[string]any{"Title": title, "URL": link}

	subject, err := render(b.subject, vars)
	if err != nil {
		return "", err
	}

	body, err := render(b.body, vars)
	if err != nil {
		return "", err
	}

	return "mailto:?Subject=" + mailEscape(subject) + "&Body=" + mailEscape(body), nil
}

// mailEscape escapes s for a mailto header, spaces as %20
func mailEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func render(tmpl *template.Template, vars map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", tmpl.Name(), err)
	}

	return buf.String(), nil
}
