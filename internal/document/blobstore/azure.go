package blobstore

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	id "vouch/pkg/domain"
	"vouch/pkg/platform/sentinel"
)

type azureAPI interface {
	UploadBuffer(ctx context.Context, containerName, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
	DeleteBlob(ctx context.Context, containerName, blobName string, o *azblob.DeleteBlobOptions) (azblob.DeleteBlobResponse, error)
}

// AzureConfig holds configuration for AzureStore.
type AzureConfig struct {
	AccountName   string
	AccountKey    string
	ContainerName string
}

// AzureStore stores document blobs in an Azure Storage container. Public
// visibility is a container-level setting in Azure, so isPublic is recorded
// as blob metadata only.
type AzureStore struct {
	client    azureAPI
	account   string
	container string
}

func NewAzureStore(cfg AzureConfig) (*AzureStore, error) {
	cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("azure shared key credential: %w", err)
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("azure blob client: %w", err)
	}
	return newAzureStore(client, cfg), nil
}

func newAzureStore(client azureAPI, cfg AzureConfig) *AzureStore {
	return &AzureStore{client: client, account: cfg.AccountName, container: cfg.ContainerName}
}

func (a *AzureStore) Upload(ctx context.Context, data []byte, ownerID id.UserID, isPublic bool, contentType string) (Object, error) {
	key := newKey("", ownerID, contentType)
	owner := ownerID.String()
	visibility := "private"
	if isPublic {
		visibility = "public"
	}
	_, err := a.client.UploadBuffer(ctx, a.container, key, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
		Metadata:    map[string]*string{"owner_id": &owner, "visibility": &visibility},
	})
	if err != nil {
		return Object{}, fmt.Errorf("azure upload failed: %w", err)
	}
	url := fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s", a.account, a.container, key)
	return Object{Key: key, URL: url}, nil
}

func (a *AzureStore) Delete(ctx context.Context, key string) error {
	_, err := a.client.DeleteBlob(ctx, a.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return fmt.Errorf("azure blob %s: %w", key, sentinel.ErrNotFound)
		}
		return fmt.Errorf("azure delete failed for %s: %w", key, err)
	}
	return nil
}
