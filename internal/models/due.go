package models

import (
	"errors"
	"strings"
	"time"
)

// InputError はクライアント入力の誤りです。ハンドラーは400に変換します。
type InputError struct {
	Message string
	Fields  []string
}

func (e *InputError) Error() string {
	return e.Message
}

// ErrNoValidFields は更新リクエストに有効なフィールドが無い場合のエラーです。
var ErrNoValidFields = &InputError{Message: "No valid fields to update"}

var errInvalidDue = errors.New("invalid due date")

// dueLayouts は受け付ける日付・日時の形式です。
// 秒の小数部はtime.Parseがレイアウトに関係なく受け付けます。
var dueLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05Z07:00",
}

// ParseDue は日付またはISO形式の日時を解析します。
// タイムゾーンの無い値はUTCとして扱います。
func ParseDue(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > 10 && s[10] == ' ' {
		s = s[:10] + "T" + s[11:]
	}
	// レイアウトの15は1桁の時も受け付けるため、時は2桁に限定する
	if len(s) > 10 && (len(s) < 14 || s[13] != ':') {
		return time.Time{}, errInvalidDue
	}
	for _, layout := range dueLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errInvalidDue
}

// CombineDue は日付と時刻の文字列を結合して解析します。
func CombineDue(date, clock string) (time.Time, error) {
	t, err := ParseDue(date + "T" + clock)
	if err != nil {
		return time.Time{}, &InputError{
			Message: "Invalid due_date or due_time format",
			Fields:  []string{"due_date", "due_time"},
		}
	}
	return t, nil
}

// ParseDueDate は due_date 単体を解析します。
func ParseDueDate(date string) (time.Time, error) {
	t, err := ParseDue(date)
	if err != nil {
		return time.Time{}, &InputError{
			Message: "Invalid due_date format",
			Fields:  []string{"due_date"},
		}
	}
	return t, nil
}
