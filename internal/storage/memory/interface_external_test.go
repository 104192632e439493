package memory_test

import (
	"github.com/cansim/cansim/internal/storage"
	"github.com/cansim/cansim/internal/storage/memory"
)

var _ storage.Backend = (*memory.Backend)(nil)
var _ storage.Exportable = (*memory.Backend)(nil)
