package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RememberCookie is the name of the remember-me cookie.
const RememberCookie = "remember_me"

// RememberTTL is how long a remember-me token stays valid.
const RememberTTL = 30 * 24 * time.Hour

// RememberClaims identify the user a remember-me token was issued to.
type RememberClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Remember issues and checks signed remember-me tokens.
type Remember struct {
	key    []byte
	ttl    time.Duration
	secure bool
}

// NewRemember signs tokens with key (APP_KEY).
func NewRemember(key string, secure bool) *Remember {
	return &Remember{key: []byte(key), ttl: RememberTTL, secure: secure}
}

// Issue returns a signed token for userID valid from now.
func (m *Remember) Issue(userID string, now time.Time) (string, error) {
	claims := &RememberClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign remember token: %w", err)
	}
	return s, nil
}

// Parse validates token and returns its user id.
func (m *Remember) Parse(token string, now time.Time) (string, error) {
	claims := &RememberClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.key, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		return "", fmt.Errorf("failed to parse remember token: %w", err)
	}
	if !parsed.Valid || claims.UserID == "" {
		return "", errors.New("invalid remember token")
	}
	return claims.UserID, nil
}

// SetCookie issues a token for userID and writes it as the remember-me cookie.
func (m *Remember) SetCookie(w http.ResponseWriter, userID string, now time.Time) error {
	tok, err := m.Issue(userID, now)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     RememberCookie,
		Value:    tok,
		Path:     "/",
		Expires:  now.Add(m.ttl),
		MaxAge:   int(m.ttl / time.Second),
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearCookie deletes the remember-me cookie.
func (m *Remember) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name: RememberCookie, Value: "", Path: "/", MaxAge: -1, Expires: time.Unix(0, 0),
		Secure: m.secure, HttpOnly: true, SameSite: http.SameSiteLaxMode,
	})
}
