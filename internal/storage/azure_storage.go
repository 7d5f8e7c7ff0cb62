package storage

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureImageStore reads images from Azure Blob Storage with a shared key.
type AzureImageStore struct {
	client   *azblob.Client
	account  string
	maxBytes int64
}

// NewAzureStorage creates a blob-backed fetcher for one storage account.
func NewAzureStorage(accountName, accountKey string, maxBytes int64) (*AzureImageStore, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(AccountURL(accountName), credential, nil)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}

	return &AzureImageStore{client: client, account: accountName, maxBytes: maxBytes}, nil
}

// AccountURL returns the blob endpoint of an account.
func AccountURL(accountName string) string {
	return fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
}

// IsBlobURL reports whether source is an https URL on an Azure blob endpoint.
func IsBlobURL(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, "https") && strings.HasSuffix(strings.ToLower(u.Hostname()), ".blob.core.windows.net")
}

// ParseBlobSource splits azure://container/blob or a blob endpoint URL into
// container and blob names.
func ParseBlobSource(source string) (container, blob string, err error) {
	u, err := url.Parse(source)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob URL: %w", err)
	}
	if strings.EqualFold(u.Scheme, "azure") {
		container, blob = u.Host, strings.TrimPrefix(u.Path, "/")
	} else {
		parts, perr := azblob.ParseURL(source)
		if perr != nil {
			return "", "", fmt.Errorf("invalid blob URL: %w", perr)
		}
		container, blob = parts.ContainerName, parts.BlobName
	}
	if container == "" || blob == "" {
		return "", "", fmt.Errorf("blob URL %q must name a container and a blob", source)
	}
	return container, blob, nil
}

func (s *AzureImageStore) FetchImage(ctx context.Context, source string) (image.Image, error) {
	container, blob, err := ParseBlobSource(source)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		return nil, fmt.Errorf("download %s/%s failed: %w", container, blob, err)
	}
	body := resp.Body
	defer body.Close()

	img, _, err := DecodeImage(body, s.maxBytes)
	return img, err
}
