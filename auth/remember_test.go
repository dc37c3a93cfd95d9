package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func TestRememberRoundTrip(t *testing.T) {
	m := NewRemember("app-key", false)
	tok, err := m.Issue("user-1", epoch)
	require.NoError(t, err)

	uid, err := m.Parse(tok, epoch.Add(29*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "user-1", uid)
}

func TestRememberExpires(t *testing.T) {
	m := NewRemember("app-key", false)
	tok, err := m.Issue("user-1", epoch)
	require.NoError(t, err)
	_, err = m.Parse(tok, epoch.Add(31*24*time.Hour))
	assert.Error(t, err)
}

func TestRememberRejectsOtherKey(t *testing.T) {
	tok, err := NewRemember("app-key", false).Issue("user-1", epoch)
	require.NoError(t, err)
	_, err = NewRemember("other-key", false).Parse(tok, epoch)
	assert.Error(t, err)
	_, err = NewRemember("app-key", false).Parse("not.a.token", epoch)
	assert.Error(t, err)
}

func TestRememberCookies(t *testing.T) {
	m := NewRemember("app-key", true)
	rec := httptest.NewRecorder()
	require.NoError(t, m.SetCookie(rec, "user-1", epoch))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, RememberCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, int(RememberTTL/time.Second), cookies[0].MaxAge)

	rec = httptest.NewRecorder()
	m.ClearCookie(rec)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}
