package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/diewo77/cna-billing/auth"
	"github.com/diewo77/cna-billing/httpx"
	"github.com/diewo77/cna-billing/i18n"
	"github.com/diewo77/cna-billing/internal/lib/sl"
	"github.com/diewo77/cna-billing/internal/services"
	"github.com/diewo77/cna-billing/internal/session"
	"github.com/diewo77/cna-billing/view"
)

// Pinger reports whether a backing service answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type PageHandler struct {
	Base
	dashboard *services.Dashboard
	languages []string
	checks    map[string]Pinger
}

// NewPageHandler builds the landing, dashboard, language and health pages. checks are probed
// by /healthz.
func NewPageHandler(b Base, dashboard *services.Dashboard, languages []string, checks map[string]Pinger) *PageHandler {
	if len(languages) == 0 {
		languages = i18n.Supported
	}
	return &PageHandler{Base: b, dashboard: dashboard, languages: languages, checks: checks}
}

// Home sends members to the dashboard and guests to the login page. Any other unmatched
// path gets the 404 page.
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.NotFound(w, r)
		return
	}
	if auth.UserFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sum, err := h.dashboard.Summary(r.Context(), h.Now())
	if err != nil {
		h.Log.Error("dashboard failed", sl.Err(err))
		h.errorPage(w, r, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "dashboard/index.html", map[string]any{"Summary": sum})
}

// Language stores the chosen language and goes back to the page the visitor came from.
func (h *PageHandler) Language(w http.ResponseWriter, r *http.Request) {
	code := strings.ToLower(r.PathValue("lang"))
	if s := session.FromContext(r.Context()); s != nil && h.supports(code) {
		s.SetLanguage(code)
	}
	http.Redirect(w, r, backTo(r, "/dashboard"), http.StatusSeeOther)
}

func (h *PageHandler) supports(code string) bool {
	for _, l := range h.languages {
		if strings.EqualFold(strings.TrimSpace(l), code) {
			return true
		}
	}
	return false
}

// backTo returns the same-host Referer path, or fallback. Paths a browser would read as
// another host ("//x", "/\\x") fall back too.
func backTo(r *http.Request, fallback string) string {
	ref := r.Referer()
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != r.Host) || !strings.HasPrefix(u.Path, "/") {
		return fallback
	}
	if strings.HasPrefix(u.Path, "//") || strings.HasPrefix(u.Path, "/\\") {
		return fallback
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}

// Health is the liveness probe.
func (h *PageHandler) Health(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready probes every registered dependency.
func (h *PageHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	status := http.StatusOK
	out := map[string]string{}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			out[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		out[name] = "ok"
	}
	httpx.JSON(w, status, map[string]any{"status": http.StatusText(status), "checks": out})
}

func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	if httpx.WantsJSON(r) {
		httpx.Fail(w, http.StatusNotFound, tr(r, "errors.not_found"))
		return
	}
	h.errorPage(w, r, http.StatusNotFound)
}

func (h *PageHandler) errorPage(w http.ResponseWriter, r *http.Request, status int) {
	if err := h.ErrorPage(w, r, status); err != nil {
		http.Error(w, http.StatusText(status), status)
	}
}

// ErrorPage renders errors/404.html or errors/500.html. It satisfies middleware.ErrorPage.
func (h *PageHandler) ErrorPage(w http.ResponseWriter, r *http.Request, status int) error {
	name := "errors/500.html"
	if status == http.StatusNotFound {
		name = "errors/404.html"
	}
	return h.View.RenderStatus(w, r, status, name, map[string]any{view.LayoutKey: view.LayoutAuth, "Status": status})
}
