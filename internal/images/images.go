// Package images is the photo-upload boundary. Uploads happen before the
// registration record is written; an upload failure aborts the submission.
package images

import (
	"context"
	"io"
)

type Uploader interface {
	// Upload stores the object and returns its public URL. The URL is
	// immutable once stored on a registration.
	Upload(ctx context.Context, name, contentType string, data io.Reader) (string, error)
}
