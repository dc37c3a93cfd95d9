// Package i18n holds the UI translations and the language helpers used by templates and handlers.
package i18n

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Default is the fallback language.
const Default = "en"

// Supported lists the languages with a translation table.
var Supported = []string{"en", "es"}

// IsSupported reports whether lang has a translation table.
func IsSupported(lang string) bool {
	_, ok := catalog[strings.ToLower(lang)]
	return ok
}

// T returns the translation of key in lang, falling back to English and then to the key itself.
func T(lang, key string) string {
	if msg, ok := catalog[strings.ToLower(lang)][key]; ok {
		return msg
	}
	if msg, ok := catalog[Default][key]; ok {
		return msg
	}
	return key
}

// Tf translates key and formats it with args.
func Tf(lang, key string, args ...any) string {
	return fmt.Sprintf(T(lang, key), args...)
}

// DetectLanguage picks the first supported language of an Accept-Language header.
func DetectLanguage(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		primary := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if IsSupported(primary) {
			return primary
		}
	}
	return Default
}

type ctxKey struct{}

// WithLang stores the request language in ctx.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ctxKey{}, lang)
}

// FromContext returns the request language, or Default.
func FromContext(ctx context.Context) string {
	if l, ok := ctx.Value(ctxKey{}).(string); ok && l != "" {
		return l
	}
	return Default
}

// Money formats an amount with two decimals and the separators of lang: $1,234.50 or $1.234,50.
func Money(lang string, d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	thousands, dec := ",", "."
	if strings.ToLower(lang) == "es" {
		thousands, dec = ".", ","
	}
	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(thousands)
		}
		b.WriteRune(c)
	}
	out := "$" + b.String() + dec + frac
	if neg {
		out = "-" + out
	}
	return out
}

// Date formats t as a calendar date in the convention of lang.
func Date(lang string, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	if strings.ToLower(lang) == "es" {
		return t.Format("02/01/2006")
	}
	return t.Format("Jan 2, 2006")
}
