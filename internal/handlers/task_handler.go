package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"time-nest/backend/internal/models"
	"time-nest/backend/internal/services"
)

// TaskHandler はタスク関連のハンドラーを管理します。
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler は新しいTaskHandlerを作成します。
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// PingHandler は認証不要の疎通確認です。
func (h *TaskHandler) PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "tasks ok"})
}

// ListTasksHandler はユーザーのタスク一覧を返します。
func (h *TaskHandler) ListTasksHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return
	}

	tasks, err := h.taskService.ListTasks(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": tasks})
}

// CreateTaskHandler は新しいタスクを作成します。
func (h *TaskHandler) CreateTaskHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return
	}

	var req models.TaskCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c)
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), req, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"item": task})
}

// UpdateTaskHandler はリクエストに含まれるフィールドだけを更新します。
func (h *TaskHandler) UpdateTaskHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return
	}

	var req models.TaskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c)
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), c.Param("id"), req, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": task})
}

// DeleteTaskHandler はタスクを削除します。
func (h *TaskHandler) DeleteTaskHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return
	}

	id := c.Param("id")
	if err := h.taskService.DeleteTask(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "id": id})
}
