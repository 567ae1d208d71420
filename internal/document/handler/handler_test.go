package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vouch/internal/document/blobstore"
	"vouch/internal/document/service"
	"vouch/internal/document/store"
	"vouch/pkg/testutil"
)

type fixture struct {
	router http.Handler
	blobs  *blobstore.MemoryStore
}

func newFixture() *fixture {
	blobs := blobstore.NewMemoryStore("https://blobs.test")
	svc := service.New(store.NewInMemoryStore(), blobs)
	h := New(svc, zap.NewNop(), "reviewer", "admin")
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterReview(r)
	return &fixture{router: r, blobs: blobs}
}

var magic = map[string]string{
	"application/pdf": "%PDF-1.7\n",
	"image/png":       "\x89PNG\r\n\x1a\n",
	"image/jpeg":      "\xff\xd8\xff\xe0",
}

// fileOf returns size bytes that sniff as mime.
func fileOf(mime string, size int) []byte {
	b := bytes.Repeat([]byte{'a'}, size)
	copy(b, magic[mime])
	return b
}

func multipartBody(t *testing.T, docType, mime string, size int) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("type", docType))
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="id.pdf"`)
	hdr.Set("Content-Type", mime)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(fileOf(mime, size))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (f *fixture) upload(t *testing.T, userID, docType, mime string, size int) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, docType, mime, size)
	req := httptest.NewRequest(http.MethodPost, "/verification/documents", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, testutil.WithUserID(req, userID))
	return rec
}

func TestUpload(t *testing.T) {
	f := newFixture()
	userID := uuid.NewString()

	t.Run("twelve megabyte file is rejected without storing a blob", func(t *testing.T) {
		rec := f.upload(t, userID, "international_passport", "application/pdf", 12*1024*1024)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "size must be between 1 and 10485760 bytes")
		assert.Zero(t, f.blobs.Len())
	})

	t.Run("unsupported mime type", func(t *testing.T) {
		rec := f.upload(t, userID, "international_passport", "image/gif", 10)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, f.blobs.Len())
	})

	t.Run("accepted upload is pending and hides the blob key", func(t *testing.T) {
		rec := f.upload(t, userID, "international_passport", "application/pdf", 2048)
		require.Equal(t, http.StatusCreated, rec.Code)
		var doc map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&doc))
		assert.Equal(t, false, doc["isVerified"])
		assert.NotContains(t, doc, "blobKey")
		assert.Equal(t, 1, f.blobs.Len())
	})
}

func TestReviewAndOwnership(t *testing.T) {
	f := newFixture()
	owner := uuid.NewString()
	rec := f.upload(t, owner, "drivers_license", "image/png", 100)
	require.Equal(t, http.StatusCreated, rec.Code)
	var doc struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&doc))

	t.Run("other users cannot see it", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/verification/documents/"+doc.ID, nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, testutil.WithAuth(req, uuid.NewString(), "user"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("reviewers can", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/verification/documents/"+doc.ID, nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, testutil.WithAuth(req, uuid.NewString(), "reviewer"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("review requires isVerified", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin/documents/"+doc.ID+"/review", bytes.NewReader([]byte(`{}`)))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, testutil.WithAuth(req, uuid.NewString(), "reviewer"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("approve", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin/documents/"+doc.ID+"/review", bytes.NewReader([]byte(`{"isVerified":true}`)))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, testutil.WithAuth(req, uuid.NewString(), "reviewer"))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"isVerified":true`)
	})

	t.Run("stats reflect the approval", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/verification/documents/stats", nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, testutil.WithUserID(req, owner))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"verifiedDocuments":1`)
	})

	t.Run("non-owner delete is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/verification/documents/"+doc.ID, nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, testutil.WithUserID(req, uuid.NewString()))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("owner delete removes the blob", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/verification/documents/"+doc.ID, nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, testutil.WithUserID(req, owner))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Zero(t, f.blobs.Len())
	})

	t.Run("malformed id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/verification/documents/%s", "nope"), nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, testutil.WithUserID(req, owner))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
