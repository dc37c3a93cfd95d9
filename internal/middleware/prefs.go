// Package middleware holds the cross-cutting HTTP middleware of the app.
package middleware

import (
	"net/http"
	"strings"

	"github.com/diewo77/cna-billing/i18n"
	"github.com/diewo77/cna-billing/internal/session"
)

// Chain wraps h so that the first middleware is the outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Language resolves the request language (session > ?lang > Accept-Language > fallback)
// and stores it in the context. A language picked from the query or the browser is
// remembered in the session; /lang/{lang} is how users switch afterwards.
// supported limits the choice further than the translation tables; empty means all of them.
func Language(fallback string, supported []string) func(http.Handler) http.Handler {
	allowed := func(lang string) bool {
		if !i18n.IsSupported(lang) {
			return false
		}
		if len(supported) == 0 {
			return true
		}
		for _, s := range supported {
			if strings.EqualFold(strings.TrimSpace(s), lang) {
				return true
			}
		}
		return false
	}
	if !allowed(fallback) {
		fallback = i18n.Default
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := session.FromContext(r.Context())
			lang := ""
			if s != nil && allowed(s.Language()) {
				lang = s.Language()
			}
			if q := strings.ToLower(r.URL.Query().Get("lang")); lang == "" && q != "" && allowed(q) {
				lang = q
			}
			if lang == "" {
				if d := i18n.DetectLanguage(r.Header.Get("Accept-Language")); allowed(d) && acceptsLanguage(r, d) {
					lang = d
				}
			}
			if lang != "" && s != nil {
				s.SetLanguage(lang)
			}
			if lang == "" {
				lang = fallback
			}
			next.ServeHTTP(w, r.WithContext(i18n.WithLang(r.Context(), lang)))
		})
	}
}

// acceptsLanguage tells a real Accept-Language match from DetectLanguage's default.
func acceptsLanguage(r *http.Request, lang string) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Accept-Language")), lang)
}
