package registry

import (
	"context"
	"fmt"
	"time"
)

// Store persists subscription mirrors keyed by endpoint, plus the
// append-only close-tracking log.
type Store interface {
	// Upsert stores a mirror. Re-subscribing with a known endpoint
	// refreshes its keys and liveness instead of duplicating it.
	Upsert(ctx context.Context, m *Mirror) error

	// Get returns the mirror for endpoint, or nil when unknown.
	Get(ctx context.Context, endpoint string) (*Mirror, error)

	// List returns mirrors, optionally only active ones.
	List(ctx context.Context, activeOnly bool) ([]*Mirror, error)

	// MarkInactive flags an endpoint the push service reported gone.
	MarkInactive(ctx context.Context, endpoint string) error

	// Delete removes the mirror for endpoint. Unknown endpoints are a
	// no-op: the device already committed its local removal.
	Delete(ctx context.Context, endpoint string) error

	// DeleteInactive removes all inactive mirrors and reports how many.
	DeleteInactive(ctx context.Context) (int, error)

	// RecordClose appends one close-tracking entry.
	RecordClose(ctx context.Context, notificationID string, ts time.Time) error

	// Close releases storage resources.
	Close() error
}

// StorageConfig selects and parameterizes a storage backend.
type StorageConfig struct {
	Type string `json:"type" toml:"type"` // "memory", "sqlite", "s3"

	// SQLite config
	Path string `json:"path,omitempty" toml:"path"`

	// S3 config
	Bucket    string `json:"bucket,omitempty" toml:"bucket"`
	Region    string `json:"region,omitempty" toml:"region"`
	Prefix    string `json:"prefix,omitempty" toml:"prefix"`
	Endpoint  string `json:"endpoint,omitempty" toml:"endpoint"`
	AccessKey string `json:"access_key,omitempty" toml:"access_key"`
	SecretKey string `json:"secret_key,omitempty" toml:"secret_key"`
}

// NewStore creates a storage backend from the configuration.
func NewStore(cfg StorageConfig) (Store, error) {
	switch cfg.Type {
	case "memory", "":
		return NewMemoryStore(), nil

	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = "./registry.db"
		}
		return NewSQLiteStore(path)

	case "s3":
		return NewS3Store(cfg)

	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
