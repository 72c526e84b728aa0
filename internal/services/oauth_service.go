package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"

	"time-nest/backend/internal/config"
	"time-nest/backend/internal/logging"
	"time-nest/backend/internal/metrics"
	"time-nest/backend/internal/models"
)

// ログインフローのエラー。ハンドラーがHTTPステータスとメッセージに変換します。
var (
	ErrOAuthNotConfigured = errors.New("google oauth not configured")
	ErrTokenExchange      = errors.New("failed to exchange authorization code")
	ErrMissingAccessToken = errors.New("missing access token from google")
	ErrUserinfo           = errors.New("failed to fetch user info from google")
	ErrMissingEmail       = errors.New("google account does not have an email address")
)

// providerStatusError はプロバイダが2xx以外を返したことを表します。
type providerStatusError struct {
	call   string
	status int
}

func (e *providerStatusError) Error() string {
	return fmt.Sprintf("%s endpoint returned status %d", e.call, e.status)
}

// GoogleOAuthService はGoogleとのAuthorization Code交換を行います。
type GoogleOAuthService struct {
	oauth       *oauth2.Config
	userinfoURL string
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker[models.GoogleProfile]
	configured  bool
}

// NewGoogleOAuthService は新しいGoogleOAuthServiceを作成します。
// 連続5回の上流障害でブレーカーが開き、30秒間は即座に失敗します。
func NewGoogleOAuthService(cfg config.GoogleConfig) *GoogleOAuthService {
	settings := gobreaker.Settings{
		Name:    "google-oauth",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isClientFault(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.OAuthBreakerState.Set(float64(to))
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}

	return &GoogleOAuthService{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userinfoURL: cfg.UserinfoURL,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		breaker:     gobreaker.NewCircuitBreaker[models.GoogleProfile](settings),
		configured:  cfg.Configured(),
	}
}

// Configured はクライアントID・シークレットが設定されているかを返します。
func (s *GoogleOAuthService) Configured() bool {
	return s.configured
}

// AuthCodeURL は同意画面へのリダイレクトURLを返します。
func (s *GoogleOAuthService) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Authenticate は認可コードをトークンに交換し、プロフィールを取得します。
// リトライは行いません。
func (s *GoogleOAuthService) Authenticate(ctx context.Context, code string) (models.GoogleProfile, error) {
	if !s.configured {
		return models.GoogleProfile{}, ErrOAuthNotConfigured
	}
	profile, err := s.breaker.Execute(func() (models.GoogleProfile, error) {
		return s.authenticate(ctx, code)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return models.GoogleProfile{}, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	return profile, err
}

func (s *GoogleOAuthService) authenticate(ctx context.Context, code string) (models.GoogleProfile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	start := time.Now()
	token, err := s.oauth.Exchange(ctx, code)
	metrics.RecordProviderCall("token", time.Since(start), err)
	if err != nil {
		return models.GoogleProfile{}, classifyExchangeError(err)
	}
	if token.AccessToken == "" {
		return models.GoogleProfile{}, ErrMissingAccessToken
	}

	start = time.Now()
	profile, err := s.fetchProfile(ctx, token.AccessToken)
	metrics.RecordProviderCall("userinfo", time.Since(start), err)
	if err != nil {
		return models.GoogleProfile{}, fmt.Errorf("%w: %w", ErrUserinfo, err)
	}
	if profile.Email == "" {
		return models.GoogleProfile{}, ErrMissingEmail
	}
	return profile, nil
}

// classifyExchangeError はトークン交換のエラーを分類します。
// x/oauth2 はaccess_tokenの無い2xx応答を専用の型を持たないエラーで返します。
func classifyExchangeError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	var urlErr *url.Error
	switch {
	case errors.As(err, &retrieveErr), errors.As(err, &urlErr):
		return fmt.Errorf("%w: %w", ErrTokenExchange, err)
	case strings.Contains(err.Error(), "missing access_token"):
		return ErrMissingAccessToken
	default:
		return fmt.Errorf("%w: %w", ErrTokenExchange, err)
	}
}

func (s *GoogleOAuthService) fetchProfile(ctx context.Context, accessToken string) (models.GoogleProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userinfoURL, nil)
	if err != nil {
		return models.GoogleProfile{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return models.GoogleProfile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return models.GoogleProfile{}, &providerStatusError{call: "userinfo", status: resp.StatusCode}
	}

	var profile models.GoogleProfile
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&profile); err != nil {
		return models.GoogleProfile{}, fmt.Errorf("decode userinfo: %w", err)
	}
	return profile, nil
}

// isClientFault はブレーカーの失敗として数えないエラーかを判定します。
// 再利用された認可コードなどプロバイダの4xxは上流障害ではありません。
func isClientFault(err error) bool {
	if errors.Is(err, ErrMissingEmail) {
		return true
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return retrieveErr.Response.StatusCode >= 400 && retrieveErr.Response.StatusCode < 500
	}
	var statusErr *providerStatusError
	if errors.As(err, &statusErr) {
		return statusErr.status >= 400 && statusErr.status < 500
	}
	return false
}
