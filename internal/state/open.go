package state

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open opens the store for the named backend.
//
// Open never returns a nil Store. When prior state cannot be loaded the
// returned store starts empty and err describes what was discarded; callers
// log it and carry on. For the sqlite backend an unopenable database falls
// back to a MemoryStore, so mirrors still happen but are not persisted.
func Open(ctx context.Context, backend, path string) (Store, error) {
	switch backend {
	case "", BackendJSON:
		return OpenJSONFile(path)
	case BackendSQLite:
		s, err := OpenSQLite(ctx, path)
		if err != nil {
			return NewMemoryStore(nil), err
		}
		return s, nil
	case BackendMemory:
		return NewMemoryStore(nil), nil
	default:
		return NewMemoryStore(nil), fmt.Errorf("unknown state backend %q (valid: json, sqlite, memory)", backend)
	}
}
