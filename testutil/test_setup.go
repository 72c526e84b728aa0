// Package testutil はHTTPテスト用のルーター・偽Googleサーバー・ログイン補助を提供します。
package testutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"time-nest/backend/internal/config"
	"time-nest/backend/internal/models"
	"time-nest/backend/internal/repositories"
	"time-nest/backend/internal/routes"
	"time-nest/backend/internal/session"
)

// FakeGoogle はGoogleのトークン・userinfoエンドポイントを模したサーバーです。
// 認可コードごとに返すプロフィールを登録できます。
type FakeGoogle struct {
	Server *httptest.Server

	mu           sync.Mutex
	profiles     map[string]map[string]any
	TokenStatus  int
	UserinfoCode int
	TokenCalls   atomic.Int32
}

// NewFakeGoogle は偽Googleサーバーを起動します。テスト終了時に停止されます。
func NewFakeGoogle(t *testing.T) *FakeGoogle {
	t.Helper()
	g := &FakeGoogle{
		profiles:     make(map[string]map[string]any),
		TokenStatus:  http.StatusOK,
		UserinfoCode: http.StatusOK,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", g.handleToken)
	mux.HandleFunc("/userinfo", g.handleUserinfo)
	g.Server = httptest.NewServer(mux)
	t.Cleanup(g.Server.Close)
	return g
}

// RegisterCode は認可コードに対応するuserinfoのレスポンスを登録します。
func (g *FakeGoogle) RegisterCode(code string, profile map[string]any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.profiles[code] = profile
}

// SetStatus はトークン・userinfoエンドポイントのステータスを変更します。
func (g *FakeGoogle) SetStatus(token, userinfo int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.TokenStatus = token
	g.UserinfoCode = userinfo
}

func (g *FakeGoogle) handleToken(w http.ResponseWriter, r *http.Request) {
	g.TokenCalls.Add(1)
	_ = r.ParseForm()
	code := r.PostForm.Get("code")

	g.mu.Lock()
	status := g.TokenStatus
	_, known := g.profiles[code]
	g.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"server_error"}`))
		return
	}
	if !known {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": "at-" + code,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (g *FakeGoogle) handleUserinfo(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer at-")

	g.mu.Lock()
	status := g.UserinfoCode
	profile, ok := g.profiles[code]
	g.mu.Unlock()

	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(profile)
}

// TestEnv はテスト用ルーターとその依存をまとめます。
type TestEnv struct {
	Router *gin.Engine
	Config *config.Config
	Store  *repositories.Store
	Google *FakeGoogle
}

// TestConfig はメモリストアと偽Googleを使うテスト用設定を返します。
func TestConfig(t *testing.T, google *FakeGoogle) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Driver = "memory"
	cfg.Server.StaticDir = t.TempDir()
	cfg.Auth.SecretKey = "test-secret-key"
	cfg.Auth.JWTSecret = "test-jwt-secret"
	cfg.Auth.LoginRatePerMinute = 0
	cfg.Google.ClientID = "test-client-id"
	cfg.Google.ClientSecret = "test-client-secret"
	cfg.Google.AuthURL = google.Server.URL + "/auth"
	cfg.Google.TokenURL = google.Server.URL + "/token"
	cfg.Google.UserinfoURL = google.Server.URL + "/userinfo"
	cfg.Google.Timeout = 2 * time.Second
	return cfg
}

// SetupTestRouter はテスト用のGinルーターをセットアップします。
// mutate で設定を変更できます。
func SetupTestRouter(t *testing.T, mutate ...func(*config.Config)) *TestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	google := NewFakeGoogle(t)
	cfg := TestConfig(t, google)
	for _, m := range mutate {
		m(cfg)
	}
	store := repositories.NewMemoryStore()

	router, err := routes.SetupRouter(cfg, store)
	require.NoError(t, err)
	gin.SetMode(gin.TestMode)

	return &TestEnv{Router: router, Config: cfg, Store: store, Google: google}
}

// Do はリクエストを実行し、レスポンスを返します。body がnil以外ならJSONとして送ります。
func (e *TestEnv) Do(t *testing.T, method, path, token string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp := httptest.NewRecorder()
	e.Router.ServeHTTP(resp, req)
	return resp
}

// CookieNamed はレスポンスのSet-Cookieから名前で探します。
func CookieNamed(resp *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range resp.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// StartLogin は /auth/google を呼び、stateとstate Cookieを返します。
func (e *TestEnv) StartLogin(t *testing.T) (string, *http.Cookie) {
	t.Helper()
	resp := e.Do(t, http.MethodGet, "/auth/google", "", nil)
	require.Equal(t, http.StatusFound, resp.Code, resp.Body.String())

	loc, err := url.Parse(resp.Header().Get("Location"))
	require.NoError(t, err)
	stateCookie := CookieNamed(resp, session.StateCookieName)
	require.NotNil(t, stateCookie)
	return loc.Query().Get("state"), stateCookie
}

var codeSeq atomic.Int64

// LoginWithGoogle はログインフロー全体を実行し、identity Cookieを返します。
func (e *TestEnv) LoginWithGoogle(t *testing.T, email, name string) *http.Cookie {
	t.Helper()
	code := fmt.Sprintf("code-%d", codeSeq.Add(1))
	e.Google.RegisterCode(code, map[string]any{"email": email, "name": name})

	state, stateCookie := e.StartLogin(t)
	resp := e.Do(t, http.MethodGet, "/auth/google/callback?state="+url.QueryEscape(state)+"&code="+code, "", nil, stateCookie)
	require.Equal(t, http.StatusFound, resp.Code, resp.Body.String())

	sessionCookie := CookieNamed(resp, session.IdentityCookieName)
	require.NotNil(t, sessionCookie)
	return sessionCookie
}

// LoginAndGetToken はGoogleログイン後にセッションをアクセストークンに交換します。
func (e *TestEnv) LoginAndGetToken(t *testing.T, email, name string) (string, error) {
	t.Helper()
	sessionCookie := e.LoginWithGoogle(t, email, name)

	resp := e.Do(t, http.MethodPost, "/api/auth/token", "", nil, sessionCookie)
	if resp.Code != http.StatusOK {
		return "", fmt.Errorf("token exchange failed with status %d: %s", resp.Code, resp.Body.String())
	}
	var tokenRes models.TokenResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &tokenRes); err != nil {
		return "", fmt.Errorf("failed to unmarshal token response: %w", err)
	}
	if tokenRes.AccessToken == "" {
		return "", errors.New("access_token not found in token response")
	}
	return tokenRes.AccessToken, nil
}

// CreateTestTask はAPI経由でタスクを作成します。
func (e *TestEnv) CreateTestTask(t *testing.T, token string, payload map[string]any) models.Task {
	t.Helper()
	resp := e.Do(t, http.MethodPost, "/api/tasks/", token, payload)
	require.Equal(t, http.StatusCreated, resp.Code, "タスク作成に失敗しました: %s", resp.Body.String())

	var body struct {
		Item models.Task `json:"item"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body.Item
}
