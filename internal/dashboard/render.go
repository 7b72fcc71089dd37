package dashboard

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Renderer executes the dashboard templates.
type Renderer struct {
	t   *template.Template
	loc *time.Location
	now func() time.Time
}

func NewRenderer(loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.Local
	}
	r := &Renderer{loc: loc, now: time.Now}

	t, err := template.New("dashboard").Funcs(template.FuncMap{
		"dict":      dict,
		"duration":  FormatDuration,
		"percent":   FormatPercent,
		"state":     ResolveState,
		"join":      strings.Join,
		"deref":     func(v *int64) int64 { return *v },
		"timestamp": func(ts int64) string { return FormatTimestamp(ts, r.loc) },
		"relative":  func(ts int64) string { return FormatRelative(ts, r.now()) },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	r.t = t
	return r, nil
}

func dict(kv ...interface{}) (map[string]interface{}, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("dict needs key/value pairs")
	}
	m := make(map[string]interface{}, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", kv[i])
		}
		m[k] = kv[i+1]
	}
	return m, nil
}

// Page renders the full document.
func (r *Renderer) Page(w io.Writer, v View) error {
	return r.t.ExecuteTemplate(w, "page", v)
}

// Fragment renders the part of the page that is swapped on refresh.
func (r *Renderer) Fragment(v View) (string, error) {
	var buf bytes.Buffer
	if err := r.t.ExecuteTemplate(&buf, "view", v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *Renderer) Timestamp(t time.Time) string {
	return FormatTimestamp(t.Unix(), r.loc)
}

// Static serves the embedded script and stylesheet.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
