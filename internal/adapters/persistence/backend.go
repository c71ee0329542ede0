// Package persistence stores rating snapshots in a JSON document or a
// relational table.
package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/ratebook/internal/adapters/codec"
	"github.com/okian/ratebook/internal/domain/model"
)

// Backend names accepted by Open.
const (
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Backend loads and saves complete rating snapshots.
type Backend interface {
	// Name returns the backend name.
	Name() string
	// Location returns the file path or a redacted connection string.
	Location() string
	// Load returns every persisted rating. An absent store yields no ratings.
	Load(ctx context.Context) ([]model.Rating, error)
	// Save replaces the persisted ratings with ratings.
	Save(ctx context.Context, ratings []model.Rating) error
	// Close releases held resources.
	Close() error
}

// Backends lists the supported backend names.
func Backends() []string {
	return []string{BackendJSON, BackendPostgres, BackendSQLite}
}

// Open returns the backend named by kind. JSON uses path; SQL backends use dsn.
func Open(ctx context.Context, kind, path, dsn string, c *codec.Codec) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case BackendJSON:
		return NewJSONFile(path, c), nil
	case BackendSQLite:
		return OpenSQLTable(ctx, SQLite, dsn)
	case BackendPostgres:
		return OpenSQLTable(ctx, Postgres, dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
}
