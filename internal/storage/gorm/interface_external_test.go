package gormstorage_test

import (
	"github.com/cansim/cansim/internal/storage"
	gormstorage "github.com/cansim/cansim/internal/storage/gorm"
)

// Compile-time interface check
var _ storage.Backend = (*gormstorage.Backend)(nil)
