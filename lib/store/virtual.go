package store

import (
	"os"

	"github.com/omnikv/omnistore/lib/backend"
	"github.com/omnikv/omnistore/lib/backend/engines/fs"
	"github.com/spf13/afero"
)

// NewVirtualStore creates a scratch store on a fresh temporary
// directory of the local filesystem. Closing the store removes the
// directory and everything in it, which makes it suitable for staging
// remote blobs locally for the duration of one job.
func NewVirtualStore(prefix string) (IStore, error) {
	if prefix == "" {
		prefix = "omnistore-"
	}
	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		return nil, backend.WrapError(backend.CodeBackend, "creating scratch dir", err)
	}
	adapter := fs.New(afero.NewOsFs(), dir)
	return &virtualStore{
		IStore: NewWithAdapter(DefaultConfig("file://"+dir), adapter),
		dir:    dir,
	}, nil
}

// virtualStore removes its scratch directory on Close.
type virtualStore struct {
	IStore
	dir string
}

func (v *virtualStore) Close() error {
	err := v.IStore.Close()
	if rmErr := os.RemoveAll(v.dir); err == nil {
		err = rmErr
	}
	return err
}
