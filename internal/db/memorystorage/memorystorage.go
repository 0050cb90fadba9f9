// Package memorystorage is the storage used when neither a database DSN nor a
// storage file is configured. Data is lost when the process stops.
package memorystorage

import (
	"github.com/patric-chuzhbe/bkmrk/internal/db/jsondb"
)

// MemoryStorage is a jsondb.JSONDB that never touches the file system.
type MemoryStorage struct {
	*jsondb.JSONDB
}

// New returns an empty in-memory storage.
func New() (*MemoryStorage, error) {
	db, err := jsondb.New("")
	if err != nil {
		return nil, err
	}

	return &MemoryStorage{JSONDB: db}, nil
}
