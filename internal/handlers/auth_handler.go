package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"time-nest/backend/internal/logging"
	"time-nest/backend/internal/metrics"
	"time-nest/backend/internal/models"
	"time-nest/backend/internal/repositories"
	"time-nest/backend/internal/services"
	"time-nest/backend/internal/session"
)

// AuthHandler はGoogleログインとセッション関連のハンドラーを管理します。
type AuthHandler struct {
	oauth         *services.GoogleOAuthService
	userService   *services.UserService
	jwtService    *services.JWTService
	sessions      *session.Manager
	dashboardPath string
}

// NewAuthHandler は新しいAuthHandlerを作成します。
func NewAuthHandler(
	oauth *services.GoogleOAuthService,
	userService *services.UserService,
	jwtService *services.JWTService,
	sessions *session.Manager,
	dashboardPath string,
) *AuthHandler {
	return &AuthHandler{
		oauth:         oauth,
		userService:   userService,
		jwtService:    jwtService,
		sessions:      sessions,
		dashboardPath: dashboardPath,
	}
}

func (h *AuthHandler) notConfigured(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Google OAuth not configured"})
}

// GoogleLoginHandler はstateを発行してGoogleの同意画面へリダイレクトします。
func (h *AuthHandler) GoogleLoginHandler(c *gin.Context) {
	if !h.oauth.Configured() {
		h.notConfigured(c)
		return
	}
	state, err := h.sessions.IssueState(c.Writer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, h.oauth.AuthCodeURL(state))
}

// GoogleCallbackHandler はGoogleからのリダイレクトを処理し、セッションを確立します。
func (h *AuthHandler) GoogleCallbackHandler(c *gin.Context) {
	if !h.oauth.Configured() {
		h.notConfigured(c)
		return
	}
	log := logging.Ctx(c.Request.Context())

	if oauthErr := c.Query("error"); oauthErr != "" {
		h.sessions.ClearState(c.Writer)
		metrics.RecordLogin("provider_denied")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Google OAuth error: " + oauthErr})
		return
	}
	if !h.sessions.ConsumeState(c.Writer, c.Request, c.Query("state")) {
		metrics.RecordLogin("invalid_state")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OAuth state"})
		return
	}
	code := c.Query("code")
	if code == "" {
		metrics.RecordLogin("missing_code")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing authorization code"})
		return
	}

	profile, err := h.oauth.Authenticate(c.Request.Context(), code)
	if err != nil {
		h.respondOAuthError(c, err)
		return
	}

	user, err := h.userService.ResolveOAuthUser(c.Request.Context(), profile)
	if err != nil {
		metrics.RecordLogin("store_error")
		respondError(c, err)
		return
	}

	if _, err := h.sessions.SetIdentity(c.Writer, user); err != nil {
		respondError(c, err)
		return
	}
	metrics.RecordLogin("success")
	log.Info().Str("user_id", user.ID).Msg("user logged in with Google")
	c.Redirect(http.StatusFound, h.dashboardPath)
}

func (h *AuthHandler) respondOAuthError(c *gin.Context, err error) {
	logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("google oauth callback failed")
	switch {
	case errors.Is(err, services.ErrOAuthNotConfigured):
		h.notConfigured(c)
	case errors.Is(err, services.ErrMissingEmail):
		metrics.RecordLogin("missing_email")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Google account does not have an email address"})
	case errors.Is(err, services.ErrMissingAccessToken):
		metrics.RecordLogin("provider_error")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Missing access token from Google"})
	case errors.Is(err, services.ErrUserinfo):
		metrics.RecordLogin("provider_error")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch user info from Google"})
	default:
		metrics.RecordLogin("provider_error")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to exchange authorization code"})
	}
}

// MeHandler はセッションのログイン情報を返します。
func (h *AuthHandler) MeHandler(c *gin.Context) {
	id, err := h.sessions.Identity(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": id})
}

// TokenHandler はセッションをAPI用のアクセストークンに交換します。
func (h *AuthHandler) TokenHandler(c *gin.Context) {
	id, err := h.sessions.Identity(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	user, err := h.userService.FindByID(c.Request.Context(), id.UserID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		h.sessions.ClearIdentity(c.Writer)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.jwtService.GenerateToken(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.jwtService.TTL().Seconds()),
		User:        user,
	})
}

// LogoutHandler はセッションを破棄します。
func (h *AuthHandler) LogoutHandler(c *gin.Context) {
	h.sessions.ClearIdentity(c.Writer)
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}
