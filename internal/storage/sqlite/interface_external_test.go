package sqlitestorage_test

import (
	"github.com/cansim/cansim/internal/storage"
	sqlitestorage "github.com/cansim/cansim/internal/storage/sqlite"
)

// Compile-time interface check
var _ storage.Backend = (*sqlitestorage.Backend)(nil)
