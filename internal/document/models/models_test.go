package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUploadValidation(t *testing.T) {
	v := NewUploadValidator()
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		req := UploadRequest{Type: TypePassport, File: File{Size: MaxFileSize, MimeType: "application/pdf"}}
		assert.Empty(t, v.Struct(ctx, req))
	})

	t.Run("all violations reported", func(t *testing.T) {
		req := UploadRequest{Type: "library_card", File: File{Size: MaxFileSize + 1, MimeType: "image/gif"}}
		got := v.Struct(ctx, req)
		assert.Len(t, got, 3)
		assert.Contains(t, got, "size must be between 1 and 10485760 bytes")
		assert.Contains(t, got, "mimeType must be one of [image/jpeg, image/png, application/pdf]")
	})
}

func TestContentSniffing(t *testing.T) {
	v := NewUploadValidator()
	ctx := context.Background()
	pdf := []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj")
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	tests := []struct {
		name string
		data []byte
		mime string
		want []string
	}{
		{name: "pdf declared as pdf", data: pdf, mime: "application/pdf"},
		{name: "png declared as png", data: png, mime: "image/png"},
		{name: "jpeg declared as jpeg", data: []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}, mime: "image/jpeg"},
		{name: "png declared as pdf", data: png, mime: "application/pdf", want: []string{"file content does not match mimeType"}},
		{name: "text declared as jpeg", data: []byte("hello"), mime: "image/jpeg", want: []string{"file content does not match mimeType"}},
		{name: "unsupported type is left to the mime rule", data: []byte("GIF89a"), mime: "image/gif",
			want: []string{"mimeType must be one of [image/jpeg, image/png, application/pdf]"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := UploadRequest{Type: TypePassport, File: File{Data: tt.data, Size: int64(len(tt.data)), MimeType: tt.mime}}
			assert.Equal(t, tt.want, v.Struct(ctx, req))
		})
	}
}

func TestComputeStats(t *testing.T) {
	docs := []*Document{
		{Type: TypePassport, IsVerified: true},
		{Type: TypePassport, RejectionReason: "blurry"},
		{Type: TypeUtilityBill},
		{Type: TypeUtilityBill},
	}
	st := ComputeStats(docs)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 1, st.Verified)
	assert.Equal(t, 1, st.Rejected)
	assert.Equal(t, 2, st.Pending)
	assert.Equal(t, map[Type]int{TypePassport: 2, TypeUtilityBill: 2}, st.ByType)

	empty := ComputeStats(nil)
	assert.Zero(t, empty.Total)
	assert.NotNil(t, empty.ByType)
}
