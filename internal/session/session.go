package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

// Flash kinds used by the controllers and templates.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Counter is a rate-limit bucket: Count attempts until Reset.
type Counter struct {
	Count int       `json:"count"`
	Reset time.Time `json:"reset"`
}

// Data is the persisted part of a session.
type Data struct {
	UserID        string              `json:"user_id,omitempty"`
	CSRF          string              `json:"csrf,omitempty"`
	Flash         map[string][]string `json:"flash,omitempty"`
	Errors        map[string]string   `json:"errors,omitempty"`
	Old           map[string]string   `json:"old,omitempty"`
	Lang          string              `json:"lang,omitempty"`
	Attempts      map[string]Counter  `json:"attempts,omitempty"`
	RegeneratedAt time.Time           `json:"regenerated_at"`
}

// Session is the state of one visitor for the duration of a request.
type Session struct {
	id      string
	data    Data
	retired []string
	stored  bool // loaded from the store
	now     func() time.Time
}

func newSession(now func() time.Time) *Session {
	return &Session{id: newID(), data: Data{RegeneratedAt: now()}, now: now}
}

// blank reports whether the session holds nothing worth a cookie.
func (s *Session) blank() bool {
	d := s.data
	return d.UserID == "" && d.CSRF == "" && d.Lang == "" &&
		len(d.Flash) == 0 && len(d.Errors) == 0 && len(d.Old) == 0 && len(d.Attempts) == 0
}

// New starts a fresh session that is not bound to a store.
func New() *Session { return newSession(time.Now) }

// ID returns the current session id.
func (s *Session) ID() string { return s.id }

// UserID returns the authenticated user id, or "".
func (s *Session) UserID() string { return s.data.UserID }

// IsAuthenticated reports whether a user is logged in.
func (s *Session) IsAuthenticated() bool { return s.data.UserID != "" }

// SetUser logs userID in. Callers regenerate the session first.
func (s *Session) SetUser(userID string) { s.data.UserID = userID }

// Logout drops everything but the language and starts over under a new id.
func (s *Session) Logout() {
	s.data = Data{Lang: s.data.Lang}
	s.Regenerate()
}

// Regenerate moves the session to a fresh id; the old id is deleted from the store on save.
func (s *Session) Regenerate() {
	s.retired = append(s.retired, s.id)
	s.id = newID()
	s.data.RegeneratedAt = s.now()
}

// CSRFToken returns the session's CSRF token, creating it on first use.
func (s *Session) CSRFToken() string {
	if s.data.CSRF == "" {
		s.data.CSRF = randomHex(32)
	}
	return s.data.CSRF
}

// VerifyCSRF compares token with the session token in constant time.
func (s *Session) VerifyCSRF(token string) bool {
	if token == "" || s.data.CSRF == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.data.CSRF)) == 1
}

// Flash queues a message shown on the next rendered page.
func (s *Session) Flash(kind, msg string) {
	if s.data.Flash == nil {
		s.data.Flash = make(map[string][]string)
	}
	s.data.Flash[kind] = append(s.data.Flash[kind], msg)
}

// TakeFlash returns and removes the queued messages of one kind.
func (s *Session) TakeFlash(kind string) []string {
	msgs := s.data.Flash[kind]
	delete(s.data.Flash, kind)
	return msgs
}

// TakeAllFlash returns and removes every queued message.
func (s *Session) TakeAllFlash() map[string][]string {
	all := s.data.Flash
	s.data.Flash = nil
	return all
}

// FlashErrors stores validation errors (field → message) for the next render.
func (s *Session) FlashErrors(errs map[string]string) { s.data.Errors = errs }

// TakeErrors returns and removes the stored validation errors.
func (s *Session) TakeErrors() map[string]string {
	errs := s.data.Errors
	s.data.Errors = nil
	return errs
}

// SetOld remembers submitted form values so the form can be re-filled.
func (s *Session) SetOld(values map[string]string) { s.data.Old = values }

// Old returns one remembered form value.
func (s *Session) Old(field string) string { return s.data.Old[field] }

// ClearOld forgets remembered form values.
func (s *Session) ClearOld() { s.data.Old = nil }

// TakeOld returns and clears the remembered form values.
func (s *Session) TakeOld() map[string]string {
	old := s.data.Old
	s.data.Old = nil
	return old
}

// Language returns the language chosen by the visitor, or "".
func (s *Session) Language() string { return s.data.Lang }

// SetLanguage stores the visitor's language.
func (s *Session) SetLanguage(lang string) { s.data.Lang = lang }

// Allow counts one attempt for identifier and reports whether it is within max per window.
// The identifier is hashed before it is stored.
func (s *Session) Allow(identifier string, max int, window time.Duration, now time.Time) bool {
	key := hashKey(identifier)
	if s.data.Attempts == nil {
		s.data.Attempts = make(map[string]Counter)
	}
	c, ok := s.data.Attempts[key]
	if !ok || !now.Before(c.Reset) {
		c = Counter{Reset: now.Add(window)}
	}
	c.Count++
	s.data.Attempts[key] = c
	return c.Count <= max
}

// ResetAttempts clears the counter of identifier.
func (s *Session) ResetAttempts(identifier string) {
	delete(s.data.Attempts, hashKey(identifier))
}

type ctxKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the request's session, or nil outside the session middleware.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}

func newID() string { return randomHex(32) }

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

func hashKey(identifier string) string {
	sum := sha256.Sum256([]byte(identifier))
	return hex.EncodeToString(sum[:])
}
