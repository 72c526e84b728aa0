package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"time-nest/backend/internal/handlers"
	"time-nest/backend/testutil"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func setupStaticEnv(t *testing.T) *testutil.TestEnv {
	t.Helper()
	env := testutil.SetupTestRouter(t)
	dir := env.Config.Server.StaticDir
	writeFile(t, dir, "index.html", "<h1>index</h1>")
	writeFile(t, dir, "dashboard.html", "<h1>dashboard</h1>")
	writeFile(t, dir, "js/app.js", "console.log('app')")
	writeFile(t, filepath.Dir(dir), "secret.txt", "top secret")
	return env
}

func TestStatic_ServesFrontend(t *testing.T) {
	env := setupStaticEnv(t)

	tests := []struct {
		path     string
		wantBody string
	}{
		{"/", "<h1>index</h1>"},
		{"/index.html", "<h1>index</h1>"},
		{"/dashboard", "<h1>dashboard</h1>"},
		{"/dashboard.html", "<h1>dashboard</h1>"},
		{"/js/app.js", "console.log('app')"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := env.Do(t, http.MethodGet, tt.path, "", nil)
			assert.Equal(t, http.StatusOK, resp.Code)
			assert.Equal(t, tt.wantBody, resp.Body.String())
		})
	}
}

func TestStatic_NotFound(t *testing.T) {
	env := setupStaticEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"存在しないファイル", http.MethodGet, "/missing"},
		{"ディレクトリ", http.MethodGet, "/js"},
		{"ディレクトリトラバーサル", http.MethodGet, "/../secret.txt"},
		{"エンコードされたトラバーサル", http.MethodGet, "/%2e%2e/secret.txt"},
		{"未定義のAPI", http.MethodGet, "/api/unknown"},
		{"GET以外", http.MethodPost, "/index.html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.Do(t, tt.method, tt.path, "", nil)
			assert.Equal(t, http.StatusNotFound, resp.Code)
			assert.JSONEq(t, `{"error":"Not Found"}`, resp.Body.String())
		})
	}
}

func TestHealth(t *testing.T) {
	env := testutil.SetupTestRouter(t)

	resp := env.Do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"ok","service":"Time Nest API"}`, resp.Body.String())

	resp = env.Do(t, http.MethodGet, "/api/dbcheck", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"ok"}`, resp.Body.String())
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestDBCheck_Unavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		pinger pingerFunc
	}{
		{"pingエラー", func(context.Context) error { return errors.New("connection refused") }},
		{"タイムアウト", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/api/dbcheck", handlers.NewHealthHandler(tt.pinger, 20*time.Millisecond).DBCheckHandler)

			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/dbcheck", nil))

			assert.Equal(t, http.StatusInternalServerError, resp.Code)
			assert.JSONEq(t, `{"status":"error","error":"Database unavailable"}`, resp.Body.String())
			assert.NotContains(t, resp.Body.String(), "connection refused")
		})
	}
}
