// Package handlers はHTTPハンドラーを提供します。
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"time-nest/backend/internal/logging"
	"time-nest/backend/internal/models"
	"time-nest/backend/internal/repositories"
	"time-nest/backend/internal/validation"
)

// ContextUserIDKey は認証済みユーザーIDを格納するgin.Contextのキーです。
const ContextUserIDKey = "user_id"

// currentUserID は認証ミドルウェアが設定したユーザーIDを返します。
func currentUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ContextUserIDKey)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// respondError はエラーをHTTPステータスとJSONに変換します。
// 想定外のエラーはログに記録し、詳細はクライアントに返しません。
func respondError(c *gin.Context, err error) {
	var inputErr *models.InputError
	var validationErr *validation.RequestValidationError
	switch {
	case errors.As(err, &inputErr):
		body := gin.H{"error": inputErr.Message}
		if len(inputErr.Fields) > 0 {
			body["fields"] = inputErr.Fields
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error(), "fields": validationErr.Fields()})
	case errors.Is(err, repositories.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
	default:
		logging.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	}
}

func invalidPayload(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
}
