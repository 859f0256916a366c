package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/kurin/blazer/b2"

	"studyzone/internal/qerrors"
)

// B2Store writes to a public Backblaze B2 bucket.
type B2Store struct {
	Client *b2.Client
	Bucket *b2.Bucket
}

var _ Store = (*B2Store)(nil)

// NewB2Store authorizes against B2 and opens bucketName.
func NewB2Store(ctx context.Context, accountID, appKey, bucketName string) (*B2Store, error) {
	client, err := b2.NewClient(ctx, accountID, appKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create b2 client: %w", err)
	}

	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &B2Store{Client: client, Bucket: bucket}, nil
}

func (s *B2Store) Put(ctx context.Context, p string, r io.Reader, contentType string) (string, error) {
	obj := s.Bucket.Object(p)
	w := obj.NewWriter(ctx).WithAttrs(&b2.Attrs{ContentType: contentType})

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}

	return obj.URL(), nil
}

func (s *B2Store) Delete(ctx context.Context, p string) error {
	err := s.Bucket.Object(p).Delete(ctx)
	if b2.IsNotExist(err) {
		return qerrors.BlobNotFoundError
	}
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (s *B2Store) URL(ctx context.Context, p string) (string, error) {
	obj := s.Bucket.Object(p)
	if _, err := obj.Attrs(ctx); err != nil {
		if b2.IsNotExist(err) {
			return "", qerrors.BlobNotFoundError
		}
		return "", fmt.Errorf("failed to stat object: %w", err)
	}
	return obj.URL(), nil
}
