package storageprovider

import (
	"context"
	"io"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/libut/utview/internal/storageutil"
)

// Blob implements storageutil.ObjectHandler on a portable bucket.
type Blob struct {
	Bucket *blob.Bucket
}

func (b *Blob) Put(ctx context.Context, name string) (io.WriteCloser, error) {
	return b.Bucket.NewWriter(ctx, name, &blob.WriterOptions{
		ContentType: "application/octet-stream",
	})
}

func (b *Blob) Get(ctx context.Context, name string) (storageutil.ReadSizeCloser, error) {
	r, err := b.Bucket.NewReader(ctx, name, nil)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, storageutil.ErrObjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}
