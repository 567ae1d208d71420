package models

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"vouch/pkg/platform/validation"
)

// NewUploadValidator returns a validator with the upload rules registered.
func NewUploadValidator() *validation.Validator {
	return validation.New().
		MustRegister("doc_type", func(_ context.Context, fl validator.FieldLevel) bool {
			return Type(fl.Field().String()).IsValid()
		}, func(f, _ string) string {
			names := make([]string, len(Types))
			for i, t := range Types {
				names[i] = string(t)
			}
			return fmt.Sprintf("%s must be one of [%s]", f, strings.Join(names, ", "))
		}).
		MustRegister("mime_type", func(_ context.Context, fl validator.FieldLevel) bool {
			return IsAllowedMimeType(fl.Field().String())
		}, func(f, _ string) string {
			return fmt.Sprintf("%s must be one of [%s]", f, strings.Join(AllowedMimeTypes, ", "))
		}).
		MustRegister("content_matches", func(_ context.Context, fl validator.FieldLevel) bool {
			return ContentMatches(fl.Field().Bytes(), fl.Parent().FieldByName("MimeType").String())
		}, func(string, string) string {
			return "file content does not match mimeType"
		}).
		MustRegister("file_size", func(_ context.Context, fl validator.FieldLevel) bool {
			size := fl.Field().Int()
			return size > 0 && size <= MaxFileSize
		}, func(f, _ string) string {
			return fmt.Sprintf("%s must be between 1 and %d bytes", f, MaxFileSize)
		})
}

// ContentMatches reports whether the leading bytes of data sniff as mimeType.
// Types outside AllowedMimeTypes are left to the mime_type rule.
func ContentMatches(data []byte, mimeType string) bool {
	if !IsAllowedMimeType(mimeType) {
		return true
	}
	return http.DetectContentType(data) == mimeType
}
