// Package validation checks form input against pipe-separated rule strings such as
// "required|email|max:255" and produces translated messages per field.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/shopspring/decimal"

	"github.com/diewo77/cna-billing/i18n"
)

// Rules maps a form field to its rule string.
type Rules map[string]string

// Errors maps a form field to its first failing message.
type Errors map[string]string

func (e Errors) Empty() bool { return len(e) == 0 }

// Add records msg for field unless the field already failed.
func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

var nonDigit = regexp.MustCompile(`\D`)

// Validator runs rule strings through go-playground/validator.
type Validator struct {
	v *validator.Validate
}

// New registers the custom phone, date and positive tags.
func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return IsPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01-02", fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("positive", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
		return err == nil && d.IsPositive()
	})
	return &Validator{v: v}
}

// IsPhone accepts 10 to 15 digits once every non-digit is stripped.
func IsPhone(s string) bool {
	n := len(nonDigit.ReplaceAllString(s, ""))
	return n >= 10 && n <= 15
}

type rule struct {
	name string
	arg  int
}

// parse splits "required|min:8" into rules. Unknown names panic: rule strings are constants.
func parse(spec string) []rule {
	var out []rule
	for _, part := range strings.Split(spec, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, arg, hasArg := strings.Cut(part, ":")
		r := rule{name: name}
		switch name {
		case "required", "email", "phone", "numeric", "date", "positive":
		case "min", "max":
			n, err := strconv.Atoi(arg)
			if !hasArg || err != nil {
				panic(fmt.Sprintf("validation: rule %q needs a numeric argument", part))
			}
			r.arg = n
		default:
			panic(fmt.Sprintf("validation: unknown rule %q", part))
		}
		out = append(out, r)
	}
	return out
}

// Validate checks data against rules. The first failing rule of each field wins.
// Format rules (email, phone, numeric, date, positive) only run on non-empty values.
func (v *Validator) Validate(lang string, rules Rules, data map[string]string) Errors {
	errs := Errors{}
	for field, spec := range rules {
		value := data[field]
		for _, r := range parse(spec) {
			if v.passes(r, value) {
				continue
			}
			errs[field] = message(lang, field, r)
			break
		}
	}
	return errs
}

func (v *Validator) passes(r rule, value string) bool {
	trimmed := strings.TrimSpace(value)
	switch r.name {
	case "required":
		return trimmed != ""
	case "min":
		return v.v.Var(value, "min="+strconv.Itoa(r.arg)) == nil
	case "max":
		return v.v.Var(value, "max="+strconv.Itoa(r.arg)) == nil
	}
	if trimmed == "" {
		return true
	}
	return v.v.Var(trimmed, r.name) == nil
}

func message(lang, field string, r rule) string {
	label := Label(lang, field)
	switch r.name {
	case "min", "max":
		return i18n.Tf(lang, "validation."+r.name, label, r.arg)
	default:
		return i18n.Tf(lang, "validation."+r.name, label)
	}
}

// Label is the translated display name of a field, or the field name with spaces.
func Label(lang, field string) string {
	key := "field." + field
	if l := i18n.T(lang, key); l != key {
		return l
	}
	return strings.ReplaceAll(field, "_", " ")
}
