package memorystorage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/bkmrk/internal/db/storage"
	"github.com/patric-chuzhbe/bkmrk/internal/db/storagetest"
)

func TestStorage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		theStorage, err := New()
		require.NoError(t, err)
		t.Cleanup(func() {
			require.NoError(t, theStorage.Close())
		})
		return theStorage
	})
}
