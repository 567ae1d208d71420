// Package validation wraps go-playground/validator so DTO checks report every
// violated rule as a human-readable message rather than stopping at the first.
package validation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MessageFunc renders a failed field check.
type MessageFunc func(field, param string) string

// Validator validates structs tagged with `validate:"..."`.
type Validator struct {
	validate *validator.Validate
	messages map[string]MessageFunc
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{validate: v, messages: defaultMessages()}
}

// Register adds a context-aware rule under tag with its violation message.
func (v *Validator) Register(tag string, fn validator.FuncCtx, msg MessageFunc) error {
	if err := v.validate.RegisterValidationCtx(tag, fn); err != nil {
		return fmt.Errorf("register validation %q: %w", tag, err)
	}
	if msg != nil {
		v.messages[tag] = msg
	}
	return nil
}

// MustRegister is Register for package initialisation.
func (v *Validator) MustRegister(tag string, fn validator.FuncCtx, msg MessageFunc) *Validator {
	if err := v.Register(tag, fn, msg); err != nil {
		panic(err)
	}
	return v
}

// Struct returns one message per violated rule, in field order. A nil slice
// means s is valid.
func (v *Validator) Struct(ctx context.Context, s any) []string {
	err := v.validate.StructCtx(ctx, s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, v.message(fe))
	}
	return out
}

func (v *Validator) message(fe validator.FieldError) string {
	if fn, ok := v.messages[fe.Tag()]; ok {
		return fn(fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}

func defaultMessages() map[string]MessageFunc {
	return map[string]MessageFunc{
		"required": func(f, _ string) string { return f + " is required" },
		"min": func(f, p string) string {
			return fmt.Sprintf("%s must be at least %s characters", f, p)
		},
		"max": func(f, p string) string {
			return fmt.Sprintf("%s must be at most %s characters", f, p)
		},
		"len": func(f, p string) string {
			return fmt.Sprintf("%s must be exactly %s characters", f, p)
		},
		"oneof": func(f, p string) string {
			return fmt.Sprintf("%s must be one of [%s]", f, strings.ReplaceAll(p, " ", ", "))
		},
		"numeric": func(f, _ string) string { return f + " must contain only digits" },
		"datetime": func(f, p string) string {
			return fmt.Sprintf("%s must be a date in %s format", f, p)
		},
	}
}
