package db

import (
	"net/url"
	"regexp"
	"strings"
)

var passwordKV = regexp.MustCompile(`(password=)([^\s]+)`)

// MaskDSN hides the password of a key=value or URL style DSN so it can be logged.
func MaskDSN(dsn string) string {
	s := strings.TrimSpace(dsn)
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		u, err := url.Parse(s)
		if err != nil || u.User == nil {
			return s
		}
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
		return strings.Replace(u.String(), "%2A%2A%2A", "***", 1)
	}
	return passwordKV.ReplaceAllString(s, `${1}***`)
}
