// Package storage provides persistence for the data-explorer control
// plane: the curated catalogue tables that internal/bootstrap seeds and
// internal/metadata serves read access to.
package storage

import (
	"context"

	"github.com/nexushealth/data-explorer/internal/metadata"
)

// MetadataRepository defines the interface for curated catalogue
// persistence used by the bootstrap tool's config-apply path. It is a
// superset of bootstrap.Repository: every implementation here also
// satisfies that interface, plus a startup connectivity check.
//
// All implementations must be thread-safe, context-aware, and explicit
// about errors.
type MetadataRepository interface {
	// Create registers a new catalogue table.
	Create(ctx context.Context, table *metadata.TableMetadata) error

	// Get retrieves a catalogue table by id ("schema.table").
	Get(ctx context.Context, id string) (*metadata.TableMetadata, error)

	// Update modifies an existing catalogue table.
	Update(ctx context.Context, table *metadata.TableMetadata) error

	// Delete removes a catalogue table by id.
	Delete(ctx context.Context, id string) error

	// List returns all catalogued tables. Returns an empty slice, not
	// nil, when none exist.
	List(ctx context.Context) ([]*metadata.TableMetadata, error)

	// Exists checks if a table with the given id exists.
	Exists(ctx context.Context, id string) (bool, error)

	// CheckConnectivity verifies database connectivity at startup.
	CheckConnectivity(ctx context.Context) error
}
