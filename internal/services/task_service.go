package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"time-nest/backend/internal/models"
	"time-nest/backend/internal/repositories"
	"time-nest/backend/internal/validation"
)

const priorityRule = "oneof=low medium high"

// TaskService はタスク関連のビジネスロジックを扱います。
// すべての操作は呼び出し元ユーザーのタスクに限定されます。
type TaskService struct {
	taskRepo repositories.TaskRepository
	now      func() time.Time
}

// NewTaskService は新しいTaskServiceを作成します。
func NewTaskService(taskRepo repositories.TaskRepository) *TaskService {
	return &TaskService{taskRepo: taskRepo, now: time.Now}
}

// ListTasks はユーザーのタスクを新しい順に返します。
func (s *TaskService) ListTasks(ctx context.Context, userID string) ([]models.Task, error) {
	tasks, err := s.taskRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// CreateTask は新しいタスクを作成します。completed は常にfalseで作成されます。
func (s *TaskService) CreateTask(ctx context.Context, req models.TaskCreateRequest, userID string) (*models.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, &models.InputError{Message: "Title is required", Fields: []string{"title"}}
	}

	if req.Priority != nil && *req.Priority == "" {
		req.Priority = nil
	}
	if err := validation.ValidateStruct(&req); err != nil {
		return nil, err
	}

	now := s.timestamp()
	task := &models.Task{
		Title:       title,
		Description: req.Description,
		Priority:    req.Priority,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if req.DueDate != nil && *req.DueDate != "" {
		var (
			due time.Time
			err error
		)
		if req.DueTime != nil && *req.DueTime != "" {
			due, err = models.CombineDue(*req.DueDate, *req.DueTime)
		} else {
			due, err = models.ParseDueDate(*req.DueDate)
		}
		if err != nil {
			return nil, err
		}
		task.DueDate = &due
	}
	task.DueTime = req.DueTime

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// timestamp は保存時刻を返します。MongoDBの精度に合わせてミリ秒に切り捨てます。
func (s *TaskService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// UpdateTask はリクエストに含まれるフィールドだけを更新します。
func (s *TaskService) UpdateTask(ctx context.Context, id string, req models.TaskUpdateRequest, userID string) (*models.Task, error) {
	changes, err := req.Changes(s.timestamp())
	if err != nil {
		return nil, err
	}
	if changes.Priority != nil {
		if err := validation.ValidateVar("priority", *changes.Priority, priorityRule); err != nil {
			return nil, err
		}
	}

	task, err := s.taskRepo.Update(ctx, id, userID, changes)
	if err != nil {
		return nil, fmt.Errorf("failed to update task %s: %w", id, err)
	}
	return task, nil
}

// DeleteTask はユーザーのタスクを削除します。
func (s *TaskService) DeleteTask(ctx context.Context, id, userID string) error {
	if err := s.taskRepo.Delete(ctx, id, userID); err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	return nil
}
