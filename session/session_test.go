package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProviderCreateAndRelease(t *testing.T) {
	p := NewStaticProvider()

	s, err := p.Create(context.Background(), map[string]interface{}{"browser": "chromium"})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 1, p.Active())

	require.NoError(t, p.Release(context.Background(), s.ID))
	assert.Equal(t, 0, p.Active())
}

func TestStaticProviderFailNextCreateOnlyAffectsOneCall(t *testing.T) {
	p := NewStaticProvider()
	p.FailNextCreate()

	_, err := p.Create(context.Background(), nil)
	assert.Error(t, err)
	assert.Equal(t, 0, p.Active())

	s, err := p.Create(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Active())
	_ = s
}

func TestBrowserbaseProviderCreateParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/sessions", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-BB-API-Key"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "proj-1", body["projectId"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "sess-1", "connectUrl": "ws://example/sess-1"})
	}))
	defer srv.Close()

	p := NewBrowserbaseProvider(srv.URL, "test-key", "proj-1")
	s, err := p.Create(context.Background(), map[string]interface{}{"browser": "chromium"})
	require.NoError(t, err)
	assert.Equal(t, "sess-1", s.ID)
	assert.Equal(t, "ws://example/sess-1", s.ConnectURL)
}

func TestBrowserbaseProviderCreateSurfacesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewBrowserbaseProvider(srv.URL, "test-key", "proj-1")
	_, err := p.Create(context.Background(), nil)
	assert.Error(t, err)
}

func TestBrowserbaseProviderReleaseSwallowsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewBrowserbaseProvider(srv.URL, "test-key", "proj-1")
	err := p.Release(context.Background(), "sess-1")
	assert.NoError(t, err, "release failures are logged, not propagated")
}

func TestLoadTemplateParsesYAML(t *testing.T) {
	dir := t.TempDir()
	content := "baseUrl: https://api.browserbase.com\nconnectUrlFormat: \"wss://connect.browserbase.com/%s\"\ndefaultHeaders:\n  X-BB-API-Key: abc123\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "browserbase.yaml"), []byte(content), 0644))

	tmpl, err := LoadTemplate(dir, "browserbase")
	require.NoError(t, err)
	assert.Equal(t, "https://api.browserbase.com", tmpl.BaseURL)
	assert.Equal(t, "abc123", tmpl.DefaultHeaders["X-BB-API-Key"])
}

func TestLoadTemplateMissingFileReturnsError(t *testing.T) {
	_, err := LoadTemplate(t.TempDir(), "ghost")
	assert.Error(t, err)
}
