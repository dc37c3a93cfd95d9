// Package view renders html/template pages inside a layout with the shared request context
// (user, CSRF token, flash messages, validation errors, old input, language).
package view

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/diewo77/cna-billing/auth"
	"github.com/diewo77/cna-billing/i18n"
	"github.com/diewo77/cna-billing/internal/lib/sl"
	"github.com/diewo77/cna-billing/internal/session"
)

// Layouts. Pages pick one with data["Layout"]; the app layout is the default.
const (
	LayoutKey  = "Layout"
	LayoutApp  = "app"
	LayoutAuth = "auth"
	LayoutNone = "none"
)

// Options configure a Renderer.
type Options struct {
	BaseDir string // templates root; detected from the working directory when empty
	AppName string
	Dev     bool // re-parse templates on every request
	// Can answers the "can" template func. Nil means every check is false.
	Can func(r *http.Request, resource, action string) bool
	Log *slog.Logger
}

// Renderer parses templates once and executes clones per request.
type Renderer struct {
	opts    Options
	baseDir string

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// New builds a Renderer.
func New(opts Options) *Renderer {
	if opts.Log == nil {
		opts.Log = slog.New(slog.DiscardHandler)
	}
	base := opts.BaseDir
	if base == "" {
		base = detectBase()
	}
	return &Renderer{opts: opts, baseDir: filepath.Clean(base), cache: map[string]*template.Template{}}
}

// BaseDir returns the templates root in use.
func (v *Renderer) BaseDir() string { return v.baseDir }

func detectBase() string {
	for _, c := range []string{"templates", "../templates", "../../templates"} {
		if fi, err := os.Stat(c); err == nil && fi.IsDir() {
			return c
		}
	}
	return "templates"
}

// Render writes the page with status 200.
func (v *Renderer) Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	return v.RenderStatus(w, r, http.StatusOK, name, data)
}

// RenderStatus executes name (a path below the templates root such as "clients/index.html")
// and writes it with status. Nothing is written when execution fails.
func (v *Renderer) RenderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	layout, _ := data[LayoutKey].(string)
	if layout == "" {
		layout = LayoutApp
	}

	t, err := v.lookup(layout, name)
	if err != nil {
		v.opts.Log.Error("failed to parse template", slog.String("template", name), sl.Err(err))
		return err
	}
	rc := v.shared(r, data)
	t, err = t.Clone()
	if err != nil {
		return err
	}
	t.Funcs(rc.funcs(v))

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		v.opts.Log.Error("failed to render template", slog.String("template", name), sl.Err(err))
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}

func (v *Renderer) lookup(layout, name string) (*template.Template, error) {
	key := layout + "|" + name
	if !v.opts.Dev {
		v.mu.RLock()
		t, ok := v.cache[key]
		v.mu.RUnlock()
		if ok {
			return t, nil
		}
	}
	t, err := v.parse(layout, name)
	if err != nil {
		return nil, err
	}
	if !v.opts.Dev {
		v.mu.Lock()
		v.cache[key] = t
		v.mu.Unlock()
	}
	return t, nil
}

// parse builds the template set: the layout (when any), every partial, then the page.
// Pages define "title" and "content"; layouts execute them.
func (v *Renderer) parse(layout, name string) (*template.Template, error) {
	page := filepath.Join(v.baseDir, filepath.FromSlash(name))
	if _, err := os.Stat(page); err != nil {
		return nil, fmt.Errorf("view: template %q: %w", name, err)
	}
	var files []string
	root := filepath.Base(page)
	if layout != LayoutNone {
		lp := filepath.Join(v.baseDir, "layouts", layout+".html")
		if _, err := os.Stat(lp); err != nil {
			return nil, fmt.Errorf("view: layout %q: %w", layout, err)
		}
		files = append(files, lp)
		root = filepath.Base(lp)
	}
	partials, _ := filepath.Glob(filepath.Join(v.baseDir, "partials", "*.html"))
	sort.Strings(partials)
	files = append(files, partials...)
	files = append(files, page)

	return template.New(root).Funcs(placeholderFuncs()).ParseFiles(files...)
}

// requestContext is what the per-request funcs close over.
type requestContext struct {
	r      *http.Request
	lang   string
	csrf   string
	old    map[string]string
	errors map[string]string
}

// shared fills the keys every layout reads, leaving values set by the handler alone.
// Flash messages, errors and old input are consumed from the session here.
func (v *Renderer) shared(r *http.Request, data map[string]any) *requestContext {
	rc := &requestContext{r: r, lang: i18n.FromContext(r.Context())}
	s := session.FromContext(r.Context())
	if s != nil {
		rc.csrf = s.CSRFToken()
		rc.old = s.TakeOld()
		rc.errors = s.TakeErrors()
	}
	set := func(k string, val any) {
		if _, ok := data[k]; !ok {
			data[k] = val
		}
	}
	set("User", auth.UserFromContext(r.Context()))
	set("CSRFToken", rc.csrf)
	set("Errors", rc.errors)
	set("Old", rc.old)
	set("CurrentURL", r.URL.RequestURI())
	set("CurrentPath", r.URL.Path)
	set("AppName", v.opts.AppName)
	set("Lang", rc.lang)
	if s != nil {
		set("Flash", s.TakeAllFlash())
	} else {
		set("Flash", map[string][]string{})
	}
	if e, ok := data["Errors"].(map[string]string); ok {
		rc.errors = e
	}
	if o, ok := data["Old"].(map[string]string); ok {
		rc.old = o
	}
	return rc
}

// versionedAsset returns /static/<rel>?v=<hash> so browsers refetch changed files.
func versionedAsset(staticDir, rel string) string {
	if strings.HasPrefix(rel, "http://") || strings.HasPrefix(rel, "https://") || strings.HasPrefix(rel, "//") {
		return rel
	}
	b, err := os.ReadFile(filepath.Join(staticDir, filepath.FromSlash(rel)))
	if err != nil {
		return "/static/" + rel
	}
	h := sha1.Sum(b)
	return fmt.Sprintf("/static/%s?v=%x", rel, h[:8])
}
