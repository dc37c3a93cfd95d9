package session

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/diewo77/cna-billing/internal/lib/sl"
)

// RegenerateEvery is how often an authenticated session gets a new id.
const RegenerateEvery = 5 * time.Minute

// Options configure the session cookie.
type Options struct {
	CookieName string
	Lifetime   time.Duration
	Secure     bool
	HTTPOnly   bool
	SameSite   http.SameSite
}

// Manager loads the session for each request and writes it back afterwards.
type Manager struct {
	store Store
	opts  Options
	log   *slog.Logger
	now   func() time.Time
}

// NewManager builds a Manager on store.
func NewManager(store Store, opts Options, log *slog.Logger) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "cna_session"
	}
	if opts.Lifetime <= 0 {
		opts.Lifetime = 2 * time.Hour
	}
	return &Manager{store: store, opts: opts, log: log, now: time.Now}
}

// Middleware attaches the visitor's session to the request context. The cookie is written with
// the response headers, so a session regenerated by the handler is sent under its new id.
// A new session that is still blank when the headers go out is neither stored nor sent.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.load(r)
		if s.IsAuthenticated() && m.now().Sub(s.data.RegeneratedAt) > RegenerateEvery {
			s.Regenerate()
		}
		sw := &sessionWriter{ResponseWriter: w, m: m, r: r, s: s}
		next.ServeHTTP(sw, r.WithContext(WithSession(r.Context(), s)))
		if !sw.wroteHeader {
			sw.commit()
		}
		if sw.skipped {
			return
		}
		m.save(r, s)
	})
}

func (m *Manager) load(r *http.Request) *Session {
	c, err := r.Cookie(m.opts.CookieName)
	if err != nil || c.Value == "" {
		return newSession(m.now)
	}
	d, err := m.store.Load(r.Context(), c.Value)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.log.Error("session load failed", sl.Err(err))
		}
		return newSession(m.now)
	}
	return &Session{id: c.Value, data: *d, stored: true, now: m.now}
}

func (m *Manager) save(r *http.Request, s *Session) {
	ctx := r.Context()
	for _, old := range s.retired {
		if err := m.store.Delete(ctx, old); err != nil {
			m.log.Error("session delete failed", sl.Err(err))
		}
	}
	s.retired = nil
	if err := m.store.Save(ctx, s.id, &s.data, m.opts.Lifetime); err != nil {
		m.log.Error("session save failed", sl.Err(err))
	}
}

func (m *Manager) cookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(m.opts.Lifetime / time.Second),
		Expires:  m.now().Add(m.opts.Lifetime),
		Secure:   m.opts.Secure,
		HttpOnly: m.opts.HTTPOnly,
		SameSite: m.opts.SameSite,
	}
}

type sessionWriter struct {
	http.ResponseWriter
	m           *Manager
	r           *http.Request
	s           *Session
	wroteHeader bool
	skipped     bool
}

func (w *sessionWriter) commit() {
	w.wroteHeader = true
	if !w.s.stored && w.s.blank() {
		w.skipped = true
		return
	}
	http.SetCookie(w.ResponseWriter, w.m.cookie(w.s.id))
	w.m.save(w.r, w.s)
}

func (w *sessionWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.commit()
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.commit()
	}
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
