package models

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Optional はJSONフィールドの「未指定」「null」「値あり」を区別します。
type Optional[T any] struct {
	Set   bool // JSONにキーが存在した
	Null  bool // 値がnullだった
	Value T
}

// UnmarshalJSON はキーが存在する場合のみ呼び出されます。
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// Ptr は値がある場合にそのポインタを返します。未指定・nullの場合はnilです。
func (o Optional[T]) Ptr() *T {
	if !o.Set || o.Null {
		return nil
	}
	v := o.Value
	return &v
}

// Some は値ありのOptionalを作ります。
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null はnull指定のOptionalを作ります。
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}
