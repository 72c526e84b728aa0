// Package validation はgo-playground/validatorによるリクエスト検証を提供します。
//
// バリデーターはシングルトンで、構造体情報はキャッシュされます。
// フィールド名はjsonタグの名前で報告されます。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError は1つのフィールドの検証エラーです。
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Message string
}

// RequestValidationError は検証エラーの集合です。
type RequestValidationError struct {
	errors []FieldError
}

// Errors は個々のフィールドエラーを返します。
func (ve *RequestValidationError) Errors() []FieldError {
	return ve.errors
}

// Fields はエラーになったフィールド名を返します。
func (ve *RequestValidationError) Fields() []string {
	fields := make([]string, 0, len(ve.errors))
	for _, e := range ve.errors {
		fields = append(fields, e.Field)
	}
	return fields
}

func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, 0, len(ve.errors))
	for _, e := range ve.errors {
		messages = append(messages, e.Message)
	}
	return strings.Join(messages, "; ")
}

// GetValidator はシングルトンのバリデーターを返します。
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// ValidateStruct は構造体を検証します。
// 失敗した場合は *RequestValidationError を返します。
func ValidateStruct(s any) error {
	return convert(GetValidator().Struct(s), "")
}

// ValidateVar は単一の値をタグで検証します。name はエラーメッセージに使われます。
func ValidateVar(name string, value any, tag string) error {
	return convert(GetValidator().Var(value, tag), name)
}

func convert(err error, name string) error {
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("validation: %w", err)
	}
	fieldErrors := make([]FieldError, len(validationErrs))
	for i, fe := range validationErrs {
		field := fe.Field()
		if field == "" {
			field = name
		}
		fieldErrors[i] = FieldError{
			Field:   field,
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: translate(field, fe.Tag(), fe.Param()),
		}
	}
	return &RequestValidationError{errors: fieldErrors}
}

var messageTemplates = map[string]string{
	"required": "%s is required",
	"email":    "%s must be a valid email address",
}

var messageWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"max":   "%s must be at most %s characters",
	"min":   "%s must be at least %s characters",
}

func translate(field, tag, param string) string {
	if tmpl, ok := messageTemplates[tag]; ok {
		return fmt.Sprintf(tmpl, field)
	}
	if tmpl, ok := messageWithParam[tag]; ok {
		return fmt.Sprintf(tmpl, field, param)
	}
	return fmt.Sprintf("%s failed %s validation", field, tag)
}
