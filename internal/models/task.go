// Package models はTime Nestのデータ構造を定義します。
package models

import (
	"time"
)

// 優先度の値
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task はタスクを表します。IDは常に文字列として公開され、
// ストレージ固有の識別子 (_id など) はクライアントに出しません。
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Priority    *string    `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	DueTime     *string    `json:"due_time"` // HH:MM (24h) 想定の自由文字列
	Completed   bool       `json:"completed"`
	UserID      string     `json:"user_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TaskCreateRequest はタスク作成リクエストです。
// due_date は日付 (YYYY-MM-DD) と due_time の組み合わせ、
// もしくは従来形式のISOタイムスタンプ単体を受け付けます。
type TaskCreateRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     *string `json:"due_date"`
	DueTime     *string `json:"due_time"`
}

// TaskChanges は更新で適用する変更の集合です。nilのフィールドは変更しません。
// Clear系のフラグは値をnullにすることを意味します。
type TaskChanges struct {
	Title            *string
	Description      *string
	ClearDescription bool
	Priority         *string
	ClearPriority    bool
	Completed        *bool
	DueDate          *time.Time
	ClearDueDate     bool
	DueTime          *string
	ClearDueTime     bool
	UpdatedAt        time.Time
}

// Apply は変更をタスクに適用します。
func (ch TaskChanges) Apply(t *Task) {
	if ch.Title != nil {
		t.Title = *ch.Title
	}
	switch {
	case ch.ClearDescription:
		t.Description = nil
	case ch.Description != nil:
		t.Description = ch.Description
	}
	switch {
	case ch.ClearPriority:
		t.Priority = nil
	case ch.Priority != nil:
		t.Priority = ch.Priority
	}
	if ch.Completed != nil {
		t.Completed = *ch.Completed
	}
	switch {
	case ch.ClearDueDate:
		t.DueDate = nil
	case ch.DueDate != nil:
		t.DueDate = ch.DueDate
	}
	switch {
	case ch.ClearDueTime:
		t.DueTime = nil
	case ch.DueTime != nil:
		t.DueTime = ch.DueTime
	}
	t.UpdatedAt = ch.UpdatedAt
}
