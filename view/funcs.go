package view

import (
	"fmt"
	"html/template"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diewo77/cna-billing/i18n"
)

// placeholderFuncs declares every func name so templates parse; Render swaps in the
// request-bound versions on a clone.
func placeholderFuncs() template.FuncMap {
	rc := &requestContext{lang: i18n.Default}
	return rc.funcs(nil)
}

func (rc *requestContext) funcs(v *Renderer) template.FuncMap {
	lang := rc.lang
	return template.FuncMap{
		"t": func(key string, args ...any) string {
			if len(args) == 0 {
				return i18n.T(lang, key)
			}
			return i18n.Tf(lang, key, args...)
		},
		"lang":  func() string { return lang },
		"money": func(v any) string { return i18n.Money(lang, toDecimal(v)) },
		"date": func(v any) string {
			switch t := v.(type) {
			case time.Time:
				if t.IsZero() {
					return ""
				}
				return i18n.Date(lang, t)
			case *time.Time:
				if t == nil || t.IsZero() {
					return ""
				}
				return i18n.Date(lang, *t)
			}
			return ""
		},
		// isoDate formats for <input type="date">.
		"isoDate": func(v any) string {
			switch t := v.(type) {
			case time.Time:
				if !t.IsZero() {
					return t.Format("2006-01-02")
				}
			case *time.Time:
				if t != nil && !t.IsZero() {
					return t.Format("2006-01-02")
				}
			}
			return ""
		},
		// old returns the previously submitted value of field, else the first fallback.
		"old": func(field string, fallback ...any) string {
			if val, ok := rc.old[field]; ok {
				return val
			}
			if len(fallback) > 0 && fallback[0] != nil {
				return fmt.Sprint(fallback[0])
			}
			return ""
		},
		"error": func(field string) string { return rc.errors[field] },
		"csrfField": func() template.HTML {
			return template.HTML(`<input type="hidden" name="csrf_token" value="` +
				template.HTMLEscapeString(rc.csrf) + `">`)
		},
		"csrfToken": func() string { return rc.csrf },
		"can": func(resource, action string) bool {
			if v == nil || v.opts.Can == nil || rc.r == nil {
				return false
			}
			return v.opts.Can(rc.r, resource, action)
		},
		"asset": func(rel string) string {
			if v == nil {
				return "/static/" + rel
			}
			return versionedAsset(filepath.Join(filepath.Dir(v.baseDir), "static"), rel)
		},
		"dict": dict,
		"add":  add,
		"mul":  mul,
		"seq":  seq,
		"year": func() int { return time.Now().Year() },
	}
}

// dict builds a map from key/value pairs for sub-templates:
//
//	{{ template "pagination" (dict "Page" .Page "Base" "/clients") }}
func dict(values ...any) map[string]any {
	if len(values)%2 != 0 {
		return nil
	}
	m := make(map[string]any, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			continue
		}
		m[key] = values[i+1]
	}
	return m
}

// add sums integers as int and anything else as float64.
func add(a, b any) any {
	ia, oka := toInt(a)
	ib, okb := toInt(b)
	if oka && okb {
		return ia + ib
	}
	return toFloat64(a) + toFloat64(b)
}

func mul(a, b any) any {
	ia, oka := toInt(a)
	ib, okb := toInt(b)
	if oka && okb {
		return ia * ib
	}
	return toFloat64(a) * toFloat64(b)
}

// seq returns 1..n, used by pagination links.
func seq(n int) []int {
	if n < 1 {
		return nil
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	}
	return 0, false
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	case decimal.Decimal:
		return n.InexactFloat64()
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	}
	return 0
}

func toDecimal(v any) decimal.Decimal {
	switch n := v.(type) {
	case decimal.Decimal:
		return n
	case *decimal.Decimal:
		if n != nil {
			return *n
		}
	case float64:
		return decimal.NewFromFloat(n)
	case int:
		return decimal.NewFromInt(int64(n))
	case int64:
		return decimal.NewFromInt(n)
	case string:
		d, err := decimal.NewFromString(n)
		if err == nil {
			return d
		}
	}
	return decimal.Zero
}
