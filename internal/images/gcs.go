package images

import (
	"context"
	"fmt"
	"io"
	"os"

	"google.golang.org/api/option"
	storagev1 "google.golang.org/api/storage/v1"
)

// GCS uploads photos to a Google Cloud Storage bucket using the same service
// account as the sheets client.
type GCS struct {
	srv    *storagev1.Service
	bucket string
}

func NewGCS(serviceAccountJSONPath, bucket string) (*GCS, error) {
	if _, err := os.Stat(serviceAccountJSONPath); err != nil {
		return nil, fmt.Errorf("service account json: %w", err)
	}
	ctx := context.Background()
	srv, err := storagev1.NewService(ctx,
		option.WithCredentialsFile(serviceAccountJSONPath),
		option.WithScopes(storagev1.DevstorageReadWriteScope),
	)
	if err != nil {
		return nil, err
	}
	return &GCS{srv: srv, bucket: bucket}, nil
}

func (g *GCS) Upload(ctx context.Context, name, contentType string, data io.Reader) (string, error) {
	obj := &storagev1.Object{Name: name, ContentType: contentType}
	if _, err := g.srv.Objects.Insert(g.bucket, obj).Media(data).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, name), nil
}
