package validation

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name   string `json:"name" validate:"required,min=2"`
	Gender string `json:"gender" validate:"oneof=male female other"`
	Code   string `json:"code" validate:"even_len"`
}

func TestStruct(t *testing.T) {
	v := New().MustRegister("even_len", func(_ context.Context, fl validator.FieldLevel) bool {
		return len(fl.Field().String())%2 == 0
	}, func(f, _ string) string { return f + " must have even length" })

	t.Run("valid", func(t *testing.T) {
		assert.Nil(t, v.Struct(context.Background(), sample{Name: "Ada", Gender: "female", Code: "ab"}))
	})

	t.Run("reports every violation using json names", func(t *testing.T) {
		got := v.Struct(context.Background(), sample{Name: "A", Gender: "x", Code: "abc"})
		require.Len(t, got, 3)
		assert.Equal(t, "name must be at least 2 characters", got[0])
		assert.Equal(t, "gender must be one of [male, female, other]", got[1])
		assert.Equal(t, "code must have even length", got[2])
	})
}
