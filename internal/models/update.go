package models

import (
	"strings"
	"time"
)

// TaskUpdateRequest はタスク更新リクエストです。
// 各フィールドは「未指定」「null」「値あり」を区別します。
type TaskUpdateRequest struct {
	Title       Optional[string] `json:"title"`
	Description Optional[string] `json:"description"`
	Priority    Optional[string] `json:"priority"`
	Completed   Optional[bool]   `json:"completed"`
	DueDate     Optional[string] `json:"due_date"`
	DueTime     Optional[string] `json:"due_time"`
}

// Changes はリクエストを適用すべき変更に変換します。
//
// 期限は due_date か due_time のどちらかが指定された場合のみ変更されます。
// due_date が無く due_time だけがある場合、既存の due_date はそのまま残ります。
func (r TaskUpdateRequest) Changes(now time.Time) (TaskChanges, error) {
	var ch TaskChanges
	changed := false

	if r.Title.Set {
		title := strings.TrimSpace(r.Title.Value)
		if r.Title.Null || title == "" {
			return TaskChanges{}, &InputError{Message: "Title cannot be empty", Fields: []string{"title"}}
		}
		ch.Title = &title
		changed = true
	}

	if r.Description.Set {
		if r.Description.Null {
			ch.ClearDescription = true
		} else {
			ch.Description = r.Description.Ptr()
		}
		changed = true
	}

	if r.Priority.Set {
		if r.Priority.Null || r.Priority.Value == "" {
			ch.ClearPriority = true
		} else {
			ch.Priority = r.Priority.Ptr()
		}
		changed = true
	}

	if r.Completed.Set {
		if r.Completed.Null {
			return TaskChanges{}, &InputError{Message: "completed must be a boolean", Fields: []string{"completed"}}
		}
		ch.Completed = r.Completed.Ptr()
		changed = true
	}

	if r.DueDate.Set || r.DueTime.Set {
		dueChanged, err := mergeDue(&ch, r.DueDate.Ptr(), r.DueTime.Ptr())
		if err != nil {
			return TaskChanges{}, err
		}
		changed = changed || dueChanged
	}

	if !changed {
		return TaskChanges{}, ErrNoValidFields
	}
	ch.UpdatedAt = now
	return ch, nil
}

func mergeDue(ch *TaskChanges, date, clock *string) (bool, error) {
	hasTime := clock != nil && *clock != ""
	switch {
	case date == nil && clock == nil:
		ch.ClearDueDate = true
		ch.ClearDueTime = true
		return true, nil
	case date != nil && hasTime:
		t, err := CombineDue(*date, *clock)
		if err != nil {
			return false, err
		}
		ch.DueDate = &t
		ch.DueTime = clock
		return true, nil
	case date != nil:
		t, err := ParseDueDate(*date)
		if err != nil {
			return false, err
		}
		ch.DueDate = &t
		ch.ClearDueTime = true
		return true, nil
	case hasTime:
		ch.DueTime = clock
		return true, nil
	}
	return false, nil
}
