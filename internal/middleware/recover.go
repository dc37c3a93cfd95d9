package middleware

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/diewo77/cna-billing/httpx"
	"github.com/diewo77/cna-billing/i18n"
)

// ErrorPage renders a full error page with the given status.
type ErrorPage func(w http.ResponseWriter, r *http.Request, status int) error

var debugPage = template.Must(template.New("panic").Parse(`<!DOCTYPE html>
<html><head><title>Error</title></head>
<body><h1>{{.Message}}</h1><pre>{{.Stack}}</pre></body></html>`))

// Recover turns panics into a 500. In debug mode the message and stack are shown;
// otherwise page renders the generic error page.
func Recover(log *slog.Logger, debugMode bool, page ErrorPage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				stack := debug.Stack()
				msg := fmt.Sprint(rec)
				log.Error("panic recovered",
					slog.String("panic", msg),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(stack)),
				)

				if httpx.WantsJSON(r) {
					httpx.Fail(w, http.StatusInternalServerError, i18n.T(i18n.FromContext(r.Context()), "errors.server"))
					return
				}
				if debugMode {
					w.Header().Set("Content-Type", "text/html; charset=utf-8")
					w.WriteHeader(http.StatusInternalServerError)
					_ = debugPage.Execute(w, map[string]string{"Message": msg, "Stack": string(stack)})
					return
				}
				if page != nil && page(w, r, http.StatusInternalServerError) == nil {
					return
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
