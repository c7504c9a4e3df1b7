package storageprovider

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/dgraph-io/badger/v4"

	"github.com/libut/utview/internal/storageutil"
)

// Badger implements storageutil.ObjectHandler on an embedded key-value
// store.
type Badger struct {
	DB *badger.DB
}

// Put buffers the object and stores it on Close.
func (b *Badger) Put(_ context.Context, name string) (io.WriteCloser, error) {
	return &badgerWriter{
		db:   b.DB,
		name: name,
	}, nil
}

// Get reads a file from the storage provider with name being the path.
// If a key was not found, it will return ErrObjectNotFound.
func (b *Badger) Get(_ context.Context, name string) (storageutil.ReadSizeCloser, error) {
	var value []byte
	err := b.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(name))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storageutil.ErrObjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &badgerReader{Reader: bytes.NewReader(value)}, nil
}

type badgerWriter struct {
	bytes.Buffer
	db   *badger.DB
	name string
}

func (bw *badgerWriter) Close() error {
	return bw.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(bw.name), bw.Bytes())
	})
}

type badgerReader struct {
	*bytes.Reader
}

func (badgerReader) Close() error {
	return nil
}
