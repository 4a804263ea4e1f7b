package supabase

import (
	"context"
	"io"

	storage_go "github.com/supabase-community/storage-go"

	pkgerrors "memorymap/pkg/errors"
)

const mediaBucket = "memory-media"

// MediaStore implements ports.MediaStorage against the memory-media bucket
type MediaStore struct {
	client *Client
}

// NewMediaStore creates the media storage adapter
func NewMediaStore(client *Client) *MediaStore {
	return &MediaStore{client: client}
}

// Upload stores one blob and returns its public URL. Uploads are not
// breaker-guarded: a large media upload is slow by nature and must not trip
// the breaker for the record stores.
func (s *MediaStore) Upload(ctx context.Context, path, contentType string, data io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", pkgerrors.NewUploadError(path, err)
	}

	_, err := s.client.sdk.Storage.UploadFile(mediaBucket, path, data, storage_go.FileOptions{
		ContentType: &contentType,
	})
	if err != nil {
		return "", pkgerrors.NewUploadError(path, err)
	}

	resp := s.client.sdk.Storage.GetPublicUrl(mediaBucket, path)
	return resp.SignedURL, nil
}
