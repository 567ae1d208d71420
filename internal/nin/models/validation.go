package models

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"vouch/pkg/platform/validation"
	"vouch/pkg/requestcontext"
)

const (
	MinAge = 16
	MaxAge = 120

	dateLayout = "2006-01-02"
)

var ninPattern = regexp.MustCompile(`^\d{11}$`)

// NewClaimValidator returns a validator with the NIN claim rules registered.
// Age is measured against requestcontext.Now.
func NewClaimValidator() *validation.Validator {
	return validation.New().
		MustRegister("nin", func(_ context.Context, fl validator.FieldLevel) bool {
			return ninPattern.MatchString(fl.Field().String())
		}, func(f, _ string) string { return f + " must be exactly 11 digits" }).
		MustRegister("ng_state", func(_ context.Context, fl validator.FieldLevel) bool {
			return IsState(fl.Field().String())
		}, func(f, _ string) string { return f + " must be a Nigerian state or FCT" }).
		MustRegister("age_range", func(ctx context.Context, fl validator.FieldLevel) bool {
			dob, err := time.Parse(dateLayout, fl.Field().String())
			if err != nil {
				return false
			}
			age := AgeAt(dob, requestcontext.Now(ctx))
			return age >= MinAge && age <= MaxAge
		}, func(_, _ string) string {
			return fmt.Sprintf("age must be between %d and %d years", MinAge, MaxAge)
		})
}

// AgeAt returns completed years between dob and now.
func AgeAt(dob, now time.Time) int {
	now = now.UTC()
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}

// ParseDateOfBirth parses a validated claim date.
func ParseDateOfBirth(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}
