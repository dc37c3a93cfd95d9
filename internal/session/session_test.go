package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC) }

func TestCSRFToken(t *testing.T) {
	s := newSession(fixedNow)
	assert.False(t, s.VerifyCSRF(""))
	assert.False(t, s.VerifyCSRF("anything"))

	tok := s.CSRFToken()
	assert.Len(t, tok, 64)
	assert.Equal(t, tok, s.CSRFToken())
	assert.True(t, s.VerifyCSRF(tok))
	assert.False(t, s.VerifyCSRF(tok[:63]+"x"))
	assert.False(t, s.VerifyCSRF(""))
}

func TestFlashIsTakenOnce(t *testing.T) {
	s := newSession(fixedNow)
	s.Flash(FlashSuccess, "saved")
	s.Flash(FlashSuccess, "again")
	s.Flash(FlashError, "oops")

	assert.Equal(t, []string{"saved", "again"}, s.TakeFlash(FlashSuccess))
	assert.Empty(t, s.TakeFlash(FlashSuccess))

	all := s.TakeAllFlash()
	assert.Equal(t, []string{"oops"}, all[FlashError])
	assert.Empty(t, s.TakeAllFlash())
}

func TestErrorsAndOldInput(t *testing.T) {
	s := newSession(fixedNow)
	s.FlashErrors(map[string]string{"email": "bad"})
	s.SetOld(map[string]string{"email": "nope"})

	assert.Equal(t, "nope", s.Old("email"))
	assert.Equal(t, map[string]string{"email": "bad"}, s.TakeErrors())
	assert.Nil(t, s.TakeErrors())
	assert.Equal(t, map[string]string{"email": "nope"}, s.TakeOld())
	assert.Empty(t, s.Old("email"))

	s.SetOld(map[string]string{"a": "b"})
	s.ClearOld()
	assert.Empty(t, s.Old("a"))
}

func TestAllowCountsWithinWindow(t *testing.T) {
	s := newSession(fixedNow)
	now := fixedNow()
	window := 15 * time.Minute

	for i := 0; i < 5; i++ {
		assert.True(t, s.Allow("1.2.3.4:ada@example.com", 5, window, now), "attempt %d", i+1)
	}
	assert.False(t, s.Allow("1.2.3.4:ada@example.com", 5, window, now.Add(time.Minute)))
	assert.True(t, s.Allow("1.2.3.4:other@example.com", 5, window, now))

	// counter resets once the window has elapsed
	assert.True(t, s.Allow("1.2.3.4:ada@example.com", 5, window, now.Add(window)))

	for k := range s.data.Attempts {
		assert.NotContains(t, k, "ada")
	}
	s.ResetAttempts("1.2.3.4:ada@example.com")
	assert.Len(t, s.data.Attempts, 1)
}

func TestRegenerateAndLogout(t *testing.T) {
	s := newSession(fixedNow)
	first := s.ID()
	s.SetUser("u1")
	s.SetLanguage("es")
	s.CSRFToken()

	s.Regenerate()
	assert.NotEqual(t, first, s.ID())
	assert.Equal(t, []string{first}, s.retired)
	assert.Equal(t, "u1", s.UserID())

	s.Logout()
	assert.False(t, s.IsAuthenticated())
	assert.Equal(t, "es", s.Language())
	assert.Empty(t, s.data.CSRF)
	assert.Len(t, s.retired, 2)
}

func TestContextRoundTrip(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	s := newSession(fixedNow)
	require.Same(t, s, FromContext(WithSession(context.Background(), s)))
}
