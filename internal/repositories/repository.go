// Package repositories はデータベース操作を行うリポジトリを提供します。
//
// MongoDB・MySQL・メモリの3種類の実装があり、いずれも同じインターフェースを満たします。
// タスクの取得・更新・削除は常にIDと所有ユーザーIDの両方で絞り込みます。
package repositories

import (
	"context"
	"errors"
	"time"

	"time-nest/backend/internal/models"
)

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("duplicate email")
)

// TaskRepository はタスクの永続化を行います。
type TaskRepository interface {
	// ListByUser はユーザーのタスクを作成日時の降順で返します。
	ListByUser(ctx context.Context, userID string) ([]models.Task, error)
	// Create はタスクを保存し、task.ID に採番されたIDを設定します。
	Create(ctx context.Context, task *models.Task) error
	// Update は変更を適用し、更新後のタスクを返します。
	Update(ctx context.Context, id, userID string, changes models.TaskChanges) (*models.Task, error)
	Delete(ctx context.Context, id, userID string) error
}

// UserRepository はユーザーの永続化を行います。
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	// Create はユーザーを保存します。emailが重複する場合は ErrDuplicateEmail です。
	Create(ctx context.Context, user *models.User) error
	// UpdateLogin はログイン時に名前・認証プロバイダ・更新日時を書き換えます。
	UpdateLogin(ctx context.Context, id, name, provider string, at time.Time) (*models.User, error)
}
