package cache

import "fmt"

const (
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// NewStorageFromConfig creates the Storage for the configured backend.
// An empty backend selects bolt.
func NewStorageFromConfig(backend, path string) (Storage, error) {
	switch backend {
	case BackendBolt, "":
		return NewBoltStorage(path)
	case BackendSQLite:
		return NewSQLiteStorage(path)
	case BackendMemory:
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s (supported: %s, %s, %s)", backend, BackendBolt, BackendSQLite, BackendMemory)
	}
}
