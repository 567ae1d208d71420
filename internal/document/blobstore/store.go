// Package blobstore uploads and deletes identity-document blobs. Uploads are
// at-least-once (a retry produces a new object under a new key); deletes are
// best-effort from the caller's point of view.
package blobstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	id "vouch/pkg/domain"
)

// Object identifies an uploaded blob. Key is what Delete takes; URL is the
// stable address recorded on the document.
type Object struct {
	Key string
	URL string
}

// Store is the document blob backend.
type Store interface {
	Upload(ctx context.Context, data []byte, ownerID id.UserID, isPublic bool, contentType string) (Object, error)
	Delete(ctx context.Context, key string) error
}

var extensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// newKey builds an owner-scoped key. A fresh UUID per upload keeps retries
// from overwriting each other.
func newKey(prefix string, ownerID id.UserID, contentType string) string {
	return fmt.Sprintf("%sdocuments/%s/%s%s", prefix, ownerID, uuid.NewString(), extensions[contentType])
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
