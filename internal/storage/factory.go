package storage

import "fmt"

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// NewStore selects the persistence backend. An empty backend defaults to
// the file store; postgres requires a DSN.
func NewStore(backend, dataDir, dsn string) (Store, error) {
	switch backend {
	case "", BackendFile:
		if dataDir == "" {
			dataDir = DefaultBaseDir()
		}
		return NewJSONFileStore(dataDir)
	case BackendPostgres:
		return NewPostgresStore(dsn)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", backend)
	}
}
