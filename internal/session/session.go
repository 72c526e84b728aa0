// Package session はブラウザ向けの署名付きCookieを管理します。
//
// OAuthのstate用Cookieとログイン後のidentity用Cookieは別々の名前・有効期間を持ちます。
// 値はgorilla/securecookieで署名・暗号化され、鍵はSECRET_KEYからHKDFで導出されます。
package session

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/hkdf"

	"time-nest/backend/internal/models"
)

// Cookie名
const (
	StateCookieName    = "timenest_oauth_state"
	IdentityCookieName = "timenest_session"
)

// ErrNoSession は有効なidentity Cookieが無い場合のエラーです。
var ErrNoSession = errors.New("no valid session")

// Config はCookieの設定です。
type Config struct {
	Secret          string
	SessionLifetime time.Duration
	StateTTL        time.Duration
	Secure          bool
}

type statePayload struct {
	State    string    `json:"state"`
	IssuedAt time.Time `json:"issued_at"`
}

// Manager はstate CookieとidentityCookieの発行・検証を行います。
type Manager struct {
	cfg      Config
	state    *securecookie.SecureCookie
	identity *securecookie.SecureCookie
	now      func() time.Time
}

// NewManager は新しいManagerを作成します。
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, errors.New("session secret is required")
	}
	hashKey, err := deriveKey(cfg.Secret, "timenest cookie hash", 64)
	if err != nil {
		return nil, err
	}
	blockKey, err := deriveKey(cfg.Secret, "timenest cookie block", 32)
	if err != nil {
		return nil, err
	}

	newCodec := func(maxAge time.Duration) *securecookie.SecureCookie {
		return securecookie.New(hashKey, blockKey).
			SetSerializer(securecookie.JSONEncoder{}).
			MaxAge(int(maxAge.Seconds()))
	}
	return &Manager{
		cfg:      cfg,
		state:    newCodec(cfg.StateTTL),
		identity: newCodec(cfg.SessionLifetime),
		now:      time.Now,
	}, nil
}

func deriveKey(secret, info string, n int) ([]byte, error) {
	key := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("failed to derive cookie key: %w", err)
	}
	return key, nil
}

// IssueState はランダムなstateを生成し、state Cookieに保存して返します。
func (m *Manager) IssueState(w http.ResponseWriter) (string, error) {
	raw := securecookie.GenerateRandomKey(32)
	if raw == nil {
		return "", errors.New("failed to generate oauth state")
	}
	state := base64.RawURLEncoding.EncodeToString(raw)

	encoded, err := m.state.Encode(StateCookieName, statePayload{State: state, IssuedAt: m.now().UTC()})
	if err != nil {
		return "", fmt.Errorf("failed to encode state cookie: %w", err)
	}
	m.setCookie(w, StateCookieName, encoded, m.cfg.StateTTL)
	return state, nil
}

// ConsumeState はクエリのstateとCookieのstateを比較します。
// 結果に関わらずstate Cookieは削除されます。
func (m *Manager) ConsumeState(w http.ResponseWriter, r *http.Request, got string) bool {
	m.ClearState(w)
	if got == "" {
		return false
	}
	c, err := r.Cookie(StateCookieName)
	if err != nil || c.Value == "" {
		return false
	}
	var payload statePayload
	if err := m.state.Decode(StateCookieName, c.Value, &payload); err != nil {
		return false
	}
	if payload.State == "" || m.now().After(payload.IssuedAt.Add(m.cfg.StateTTL)) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(payload.State), []byte(got)) == 1
}

// ClearState はstate Cookieを削除します。
func (m *Manager) ClearState(w http.ResponseWriter) {
	m.clearCookie(w, StateCookieName)
}

// SetIdentity はログイン完了後のidentity Cookieを設定します。
func (m *Manager) SetIdentity(w http.ResponseWriter, user *models.User) (*models.Identity, error) {
	id := &models.Identity{
		UserID:       user.ID,
		UserEmail:    user.Email,
		UserName:     user.Name,
		AuthProvider: user.AuthProvider,
		IssuedAt:     m.now().UTC(),
	}
	encoded, err := m.identity.Encode(IdentityCookieName, id)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session cookie: %w", err)
	}
	m.setCookie(w, IdentityCookieName, encoded, m.cfg.SessionLifetime)
	return id, nil
}

// Identity はidentity Cookieを検証して返します。
// 改ざん・期限切れ・未設定の場合は ErrNoSession です。
func (m *Manager) Identity(r *http.Request) (*models.Identity, error) {
	c, err := r.Cookie(IdentityCookieName)
	if err != nil || c.Value == "" {
		return nil, ErrNoSession
	}
	var id models.Identity
	if err := m.identity.Decode(IdentityCookieName, c.Value, &id); err != nil {
		return nil, ErrNoSession
	}
	if id.UserID == "" || m.now().After(id.IssuedAt.Add(m.cfg.SessionLifetime)) {
		return nil, ErrNoSession
	}
	return &id, nil
}

// ClearIdentity はidentity Cookieを削除します。
func (m *Manager) ClearIdentity(w http.ResponseWriter) {
	m.clearCookie(w, IdentityCookieName)
}

func (m *Manager) setCookie(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   m.cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   m.cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
