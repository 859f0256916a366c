package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	firebaseSDK "firebase.google.com/go"
	"google.golang.org/api/option"

	"studyzone/internal/config"
)

// App bundles the Firebase clients the backend talks to.
type App struct {
	sdk       *firebaseSDK.App
	Firestore *firestore.Client
	Bucket    *storage.BucketHandle
	// BucketName is the storage bucket objects are written to, used to build download URLs.
	BucketName string
}

// NewApp initializes the Firebase app from the configured service account file.
func NewApp(ctx context.Context, cfg config.FirebaseConfig) (*App, error) {
	opt := option.WithCredentialsFile(cfg.CredentialsFile)
	sdk, err := firebaseSDK.NewApp(ctx, &firebaseSDK.Config{
		ProjectID:     cfg.ProjectID,
		StorageBucket: cfg.StorageBucket,
	}, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	fs, err := sdk.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating firestore client: %w", err)
	}

	return &App{sdk: sdk, Firestore: fs}, nil
}

// OpenBucket attaches the configured storage bucket. Only needed when resource files are kept in Firebase Storage.
func (a *App) OpenBucket(ctx context.Context, name string) error {
	client, err := a.sdk.Storage(ctx)
	if err != nil {
		return fmt.Errorf("error creating storage client: %w", err)
	}

	var bucket *storage.BucketHandle
	if name == "" {
		bucket, err = client.DefaultBucket()
	} else {
		bucket, err = client.Bucket(name)
	}
	if err != nil {
		return fmt.Errorf("error opening storage bucket: %w", err)
	}

	if name == "" {
		attrs, err := bucket.Attrs(ctx)
		if err != nil {
			return fmt.Errorf("error reading storage bucket: %w", err)
		}
		name = attrs.Name
	}

	a.Bucket = bucket
	a.BucketName = name
	return nil
}

func (a *App) Close() error {
	return a.Firestore.Close()
}
