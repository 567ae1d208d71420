package blobstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vouch/internal/platform/config"
	id "vouch/pkg/domain"
	"vouch/pkg/platform/sentinel"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	owner := id.UserID(uuid.New())
	store := NewMemoryStore("http://blobs.local")

	t.Run("upload scopes key to owner and returns url", func(t *testing.T) {
		obj, err := store.Upload(ctx, []byte("img"), owner, false, "image/png")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(obj.Key, "documents/"+owner.String()+"/"))
		assert.True(t, strings.HasSuffix(obj.Key, ".png"))
		assert.Equal(t, "http://blobs.local/"+obj.Key, obj.URL)
		assert.True(t, store.Exists(obj.Key))
	})

	t.Run("repeat uploads get distinct keys", func(t *testing.T) {
		a, err := store.Upload(ctx, []byte("x"), owner, false, "application/pdf")
		require.NoError(t, err)
		b, err := store.Upload(ctx, []byte("x"), owner, false, "application/pdf")
		require.NoError(t, err)
		assert.NotEqual(t, a.Key, b.Key)
	})

	t.Run("delete missing key is not found", func(t *testing.T) {
		err := store.Delete(ctx, "documents/nope")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("delete removes blob", func(t *testing.T) {
		obj, err := store.Upload(ctx, []byte("y"), owner, true, "image/jpeg")
		require.NoError(t, err)
		require.NoError(t, store.Delete(ctx, obj.Key))
		assert.False(t, store.Exists(obj.Key))
	})
}

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	deletes []*s3.DeleteObjectInput
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, in)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, in)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	owner := id.UserID(uuid.New())

	t.Run("private upload", func(t *testing.T) {
		client := &fakeS3{}
		store := newS3Store(client, S3Config{Bucket: "docs", Region: "eu-west-1", Prefix: "vouch/"})

		obj, err := store.Upload(ctx, []byte("pdf"), owner, false, "application/pdf")
		require.NoError(t, err)
		require.Len(t, client.puts, 1)
		put := client.puts[0]
		assert.Equal(t, "docs", aws.ToString(put.Bucket))
		assert.Equal(t, obj.Key, aws.ToString(put.Key))
		assert.Equal(t, "application/pdf", aws.ToString(put.ContentType))
		assert.Equal(t, types.ObjectCannedACLPrivate, put.ACL)
		assert.True(t, strings.HasPrefix(obj.Key, "vouch/documents/"+owner.String()))
		assert.Equal(t, "https://docs.s3.eu-west-1.amazonaws.com/"+obj.Key, obj.URL)
	})

	t.Run("public upload against custom endpoint", func(t *testing.T) {
		client := &fakeS3{}
		store := newS3Store(client, S3Config{Bucket: "docs", Endpoint: "http://minio:9000/"})

		obj, err := store.Upload(ctx, []byte("img"), owner, true, "image/png")
		require.NoError(t, err)
		assert.Equal(t, types.ObjectCannedACLPublicRead, client.puts[0].ACL)
		assert.Equal(t, "http://minio:9000/docs/"+obj.Key, obj.URL)
	})

	t.Run("put failure surfaces", func(t *testing.T) {
		store := newS3Store(&fakeS3{err: errors.New("boom")}, S3Config{Bucket: "docs"})
		_, err := store.Upload(ctx, []byte("x"), owner, false, "image/png")
		assert.ErrorContains(t, err, "s3 put failed")
	})

	t.Run("delete", func(t *testing.T) {
		client := &fakeS3{}
		store := newS3Store(client, S3Config{Bucket: "docs"})
		require.NoError(t, store.Delete(ctx, "k"))
		assert.Equal(t, "k", aws.ToString(client.deletes[0].Key))
	})
}

type fakeAzure struct {
	uploads map[string][]byte
	opts    *azblob.UploadBufferOptions
	err     error
}

func (f *fakeAzure) UploadBuffer(_ context.Context, container, name string, buf []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error) {
	if f.err != nil {
		return azblob.UploadBufferResponse{}, f.err
	}
	f.uploads[container+"/"+name] = buf
	f.opts = o
	return azblob.UploadBufferResponse{}, nil
}

func (f *fakeAzure) DeleteBlob(_ context.Context, container, name string, _ *azblob.DeleteBlobOptions) (azblob.DeleteBlobResponse, error) {
	if f.err != nil {
		return azblob.DeleteBlobResponse{}, f.err
	}
	delete(f.uploads, container+"/"+name)
	return azblob.DeleteBlobResponse{}, nil
}

func TestAzureStore(t *testing.T) {
	ctx := context.Background()
	owner := id.UserID(uuid.New())
	client := &fakeAzure{uploads: map[string][]byte{}}
	store := newAzureStore(client, AzureConfig{AccountName: "acct", ContainerName: "ids"})

	obj, err := store.Upload(ctx, []byte("jpg"), owner, false, "image/jpeg")
	require.NoError(t, err)
	assert.Contains(t, client.uploads, "ids/"+obj.Key)
	assert.Equal(t, "image/jpeg", *client.opts.HTTPHeaders.BlobContentType)
	assert.Equal(t, "private", *client.opts.Metadata["visibility"])
	assert.Equal(t, "https://acct.blob.core.windows.net/ids/"+obj.Key, obj.URL)

	require.NoError(t, store.Delete(ctx, obj.Key))
	assert.Empty(t, client.uploads)

	failing := newAzureStore(&fakeAzure{err: errors.New("down")}, AzureConfig{ContainerName: "ids"})
	err = failing.Delete(ctx, "k")
	assert.ErrorContains(t, err, "azure delete failed")
}

func TestFromConfig(t *testing.T) {
	store, err := FromConfig(context.Background(), config.BlobConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	_, err = FromConfig(context.Background(), config.BlobConfig{Backend: "ftp"})
	assert.ErrorContains(t, err, "unsupported blob backend")
}
