package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"time-nest/backend/internal/models"
)

// MySQLTaskRepository はMySQLのtasksテーブルを操作します。
type MySQLTaskRepository struct {
	DB *sql.DB
}

// NewMySQLTaskRepository は新しいMySQLTaskRepositoryインスタンスを作成します。
func NewMySQLTaskRepository(db *sql.DB) *MySQLTaskRepository {
	return &MySQLTaskRepository{DB: db}
}

const taskColumns = "id, title, description, priority, due_date, due_time, completed, user_id, created_at, updated_at"

func scanTask(row interface{ Scan(...any) error }) (models.Task, error) {
	var (
		t           models.Task
		id          int64
		description sql.NullString
		priority    sql.NullString
		dueDate     sql.NullTime
		dueTime     sql.NullString
	)
	err := row.Scan(&id, &t.Title, &description, &priority, &dueDate, &dueTime,
		&t.Completed, &t.UserID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return models.Task{}, err
	}
	t.ID = strconv.FormatInt(id, 10)
	t.Description = nullString(description)
	t.Priority = nullString(priority)
	t.DueTime = nullString(dueTime)
	if dueDate.Valid {
		d := dueDate.Time.UTC()
		t.DueDate = &d
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// ListByUser はユーザーのタスクを作成日時の降順で取得します。
func (r *MySQLTaskRepository) ListByUser(ctx context.Context, userID string) ([]models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE user_id = ? ORDER BY created_at DESC, id DESC"
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("could not query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// Create は新しいタスクを挿入します。
func (r *MySQLTaskRepository) Create(ctx context.Context, t *models.Task) error {
	query := `INSERT INTO tasks (title, description, priority, due_date, due_time, completed, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.DB.ExecContext(ctx, query,
		t.Title, t.Description, t.Priority, t.DueDate, t.DueTime, t.Completed, t.UserID, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("could not insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("could not get last insert ID: %w", err)
	}
	t.ID = strconv.FormatInt(id, 10)
	return nil
}

// Update は変更されたカラムだけを更新し、更新後の行を返します。
func (r *MySQLTaskRepository) Update(ctx context.Context, id, userID string, ch models.TaskChanges) (*models.Task, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, ErrTaskNotFound
	}

	set := []string{"updated_at = ?"}
	args := []any{ch.UpdatedAt}
	add := func(column string, value any) {
		set = append(set, column+" = ?")
		args = append(args, value)
	}
	if ch.Title != nil {
		add("title", *ch.Title)
	}
	if ch.ClearDescription {
		add("description", nil)
	} else if ch.Description != nil {
		add("description", *ch.Description)
	}
	if ch.ClearPriority {
		add("priority", nil)
	} else if ch.Priority != nil {
		add("priority", *ch.Priority)
	}
	if ch.Completed != nil {
		add("completed", *ch.Completed)
	}
	if ch.ClearDueDate {
		add("due_date", nil)
	} else if ch.DueDate != nil {
		add("due_date", *ch.DueDate)
	}
	if ch.ClearDueTime {
		add("due_time", nil)
	} else if ch.DueTime != nil {
		add("due_time", *ch.DueTime)
	}
	args = append(args, n, userID)

	query := "UPDATE tasks SET " + strings.Join(set, ", ") + " WHERE id = ? AND user_id = ?"
	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("could not update task: %w", err)
	}

	// 値が変わらない場合 RowsAffected は0になるため、再取得で存在を判定する
	row := r.DB.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ? AND user_id = ?", n, userID)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not reload task: %w", err)
	}
	return &t, nil
}

// Delete は所有者のタスクを削除します。
func (r *MySQLTaskRepository) Delete(ctx context.Context, id, userID string) error {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return ErrTaskNotFound
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM tasks WHERE id = ? AND user_id = ?", n, userID)
	if err != nil {
		return fmt.Errorf("could not delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrTaskNotFound
	}
	return nil
}
