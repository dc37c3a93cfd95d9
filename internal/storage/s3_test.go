package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/cna-billing/internal/config"
)

type fakeS3 struct {
	mu     sync.Mutex
	method string
	path   string
	ctype  string
	body   []byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.method, f.path, f.ctype, f.body = r.Method, r.URL.Path, r.Header.Get("Content-Type"), b
	f.mu.Unlock()
	w.Header().Set("ETag", `"etag"`)
	w.WriteHeader(http.StatusOK)
}

func testConfig(endpoint string) config.StorageConfig {
	return config.StorageConfig{
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		Region:          "us-east-1",
		Bucket:          "exports",
		Endpoint:        endpoint,
	}
}

func TestNewS3Disabled(t *testing.T) {
	_, err := NewS3(context.Background(), config.StorageConfig{})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestPutUsesPathStyleEndpoint(t *testing.T) {
	fake := &fakeS3{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s, err := NewS3(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)

	err = s.Put(context.Background(), "invoices/2025/03/a.xlsx", "application/octet-stream", bytes.NewReader([]byte("xlsx")))
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, fake.method)
	assert.Equal(t, "/exports/invoices/2025/03/a.xlsx", fake.path)
	assert.Equal(t, "application/octet-stream", fake.ctype)
	assert.Equal(t, "xlsx", string(fake.body))
}

func TestURLIsPresigned(t *testing.T) {
	s, err := NewS3(context.Background(), testConfig("http://minio.local:9000"))
	require.NoError(t, err)

	u, err := s.URL(context.Background(), "invoices/a.xlsx", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "http://minio.local:9000/exports/invoices/a.xlsx?"), u)
	assert.Contains(t, u, "X-Amz-Signature=")
	assert.Contains(t, u, "X-Amz-Expires=600")
}

func TestKey(t *testing.T) {
	at := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	k := Key("exports", "../Invoices March.xlsx", at)
	assert.Regexp(t, `^exports/2025/03/[0-9a-f-]{36}_Invoices_March\.xlsx$`, k)
	assert.Regexp(t, `_file$`, Key("exports", "..", at))
}
