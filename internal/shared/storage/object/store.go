package object

import (
	"context"
	"io"
)

// ObjectStore holds the raw uploaded documents and the derived extracted-text
// objects. Save returns the storage key along with the detected size and MIME
// type; Open streams an object back by key.
type ObjectStore interface {
	Save(ctx context.Context, userId string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}
