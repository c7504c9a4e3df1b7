package storageprovider

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"cloud.google.com/go/storage"
	"github.com/dgraph-io/badger/v4"
	"gocloud.dev/blob"

	// blob drivers
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"

	"github.com/libut/utview/internal/storageutil"
)

const (
	// badger://memory keeps objects in memory, badger:///path on disk.
	BadgerScheme = "badger"
	// gcs://bucket talks to Cloud Storage through its own client, which
	// honors STORAGE_EMULATOR_HOST.
	GcsScheme = "gcs"
)

// Open returns the handler for a storage URL and the closer releasing it.
// URLs other than badger:// and gcs:// are opened as portable buckets
// (file://, mem://, gs://).
func Open(ctx context.Context, rawURL string) (storageutil.ObjectHandler, io.Closer, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse storage url: %w", err)
	}
	switch u.Scheme {
	case BadgerScheme:
		opts := badger.DefaultOptions(u.Path).WithLogger(nil)
		if u.Host == "memory" {
			opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
		}
		db, err := badger.Open(opts)
		if err != nil {
			return nil, nil, fmt.Errorf("open badger: %w", err)
		}
		return &Badger{DB: db}, db, nil
	case GcsScheme:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("create storage client: %w", err)
		}
		return &Gcs{BucketHandle: client.Bucket(u.Host)}, client, nil
	default:
		b, err := blob.OpenBucket(ctx, rawURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open bucket: %w", err)
		}
		return &Blob{Bucket: b}, b, nil
	}
}
