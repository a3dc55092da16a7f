package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestConfig() config {
	var cfg config
	cfg.env = "testing"
	cfg.storage = "file"
	cfg.jwt.secret = "test-secret"
	cfg.jwt.expiry = time.Hour
	cfg.cors.trustedOrigins = []string{"http://localhost:3000"}
	return cfg
}

// newTestApp returns an application backed by JSON files in a temp directory.
func newTestApp(t *testing.T) (*application, *fileStore) {
	t.Helper()
	dir := t.TempDir()
	fs := newFileStore(filepath.Join(dir, "users.json"), filepath.Join(dir, "todos.json"))
	return newApplication(newTestConfig(), newStorage(fs, fs)), fs
}

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, h http.Handler) *testServer {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return &testServer{ts}
}

// do sends a JSON request, attaching token as the auth_token cookie when set.
func (ts *testServer) do(t *testing.T, method, path string, body any, token string) (int, http.Header, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: authCookieName, Value: token})
	}
	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, res.Header, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}
