package models

import "time"

// AuthProviderGoogle はGoogleログインで作成されたユーザーの認証プロバイダ名です。
const AuthProviderGoogle = "google"

// User はユーザーを表します。
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	AuthProvider string    `json:"auth_provider"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GoogleProfile はGoogleのuserinfoエンドポイントから取得したプロフィールです。
type GoogleProfile struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	GivenName string `json:"given_name"`
	Picture   string `json:"picture,omitempty"`
}

// DisplayName は name、given_name の順に表示名を決め、どちらも無ければ既定値を返します。
func (p GoogleProfile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if p.GivenName != "" {
		return p.GivenName
	}
	return "Google User"
}

// Identity はセッションCookieに保存されるログイン情報です。
type Identity struct {
	UserID       string    `json:"user_id"`
	UserEmail    string    `json:"user_email"`
	UserName     string    `json:"user_name"`
	AuthProvider string    `json:"auth_provider"`
	IssuedAt     time.Time `json:"issued_at"`
}

// TokenResponse はセッションから発行したアクセストークンのレスポンスです。
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	User        *User  `json:"user"`
}
