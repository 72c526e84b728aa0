package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"time-nest/backend/internal/logging"
)

// Pinger はデータベースの疎通確認を行います。
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler はヘルスチェックを提供します。
type HealthHandler struct {
	db      Pinger
	timeout time.Duration
}

// NewHealthHandler は新しいHealthHandlerを作成します。
func NewHealthHandler(db Pinger, timeout time.Duration) *HealthHandler {
	return &HealthHandler{db: db, timeout: timeout}
}

// HealthHandler はプロセスの生存を返します。
func (h *HealthHandler) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "Time Nest API"})
}

// DBCheckHandler はデータベースへのpingを行います。
func (h *HealthHandler) DBCheckHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("database ping failed")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
