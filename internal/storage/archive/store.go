// Package archive abstracts cold storage for study artifacts: equity
// curves, trade ledgers, and report summaries land here once a run
// completes. Backends cover the local filesystem for development and
// any S3-compatible object store for durable archival.
package archive

import (
	"context"
	"fmt"
)

// Store is the artifact storage backend.
type Store interface {
	// Put stores data at the given key, overwriting any prior object.
	Put(ctx context.Context, key string, data []byte) error

	// Get retrieves the object at the key.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns all keys under the prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists reports whether an object is stored at the key.
	Exists(ctx context.Context, key string) (bool, error)
}

// RunKey builds the canonical key for one artifact of a run:
// runs/<run-id>/<artifact>.
func RunKey(runID, artifact string) string {
	return fmt.Sprintf("runs/%s/%s", runID, artifact)
}
