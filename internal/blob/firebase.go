package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"studyzone/internal/qerrors"
)

const downloadTokenKey = "firebaseStorageDownloadTokens"

// FirebaseStore writes to a Firebase Storage bucket and hands out token-bearing download URLs, the same
// URLs the Firebase client SDKs produce.
type FirebaseStore struct {
	bucket     *storage.BucketHandle
	bucketName string
}

var _ Store = (*FirebaseStore)(nil)

func NewFirebaseStore(bucket *storage.BucketHandle, bucketName string) *FirebaseStore {
	return &FirebaseStore{bucket: bucket, bucketName: bucketName}
}

func (s *FirebaseStore) Put(ctx context.Context, p string, r io.Reader, contentType string) (string, error) {
	token := uuid.NewString()

	w := s.bucket.Object(p).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{downloadTokenKey: token}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("error writing object %s: %w", p, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("error writing object %s: %w", p, err)
	}

	return s.downloadURL(p, token), nil
}

func (s *FirebaseStore) Delete(ctx context.Context, p string) error {
	err := s.bucket.Object(p).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return qerrors.BlobNotFoundError
	}
	if err != nil {
		return fmt.Errorf("error deleting object %s: %w", p, err)
	}
	return nil
}

func (s *FirebaseStore) URL(ctx context.Context, p string) (string, error) {
	obj := s.bucket.Object(p)
	attrs, err := obj.Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return "", qerrors.BlobNotFoundError
	}
	if err != nil {
		return "", fmt.Errorf("error reading object %s: %w", p, err)
	}

	if token, ok := attrs.Metadata[downloadTokenKey]; ok && token != "" {
		return s.downloadURL(p, token), nil
	}

	// Objects uploaded outside the app have no token yet.
	token := uuid.NewString()
	metadata := map[string]string{downloadTokenKey: token}
	for k, v := range attrs.Metadata {
		if k != downloadTokenKey {
			metadata[k] = v
		}
	}
	if _, err := obj.Update(ctx, storage.ObjectAttrsToUpdate{Metadata: metadata}); err != nil {
		return "", fmt.Errorf("error issuing download token for %s: %w", p, err)
	}
	return s.downloadURL(p, token), nil
}

func (s *FirebaseStore) downloadURL(p, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		s.bucketName, url.PathEscape(p), token)
}
