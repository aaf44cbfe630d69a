// Package discovery implements schema discovery: syncing external
// catalog metadata (AWS Glue, Hive Metastore, Unity Catalog) into the
// curated catalogue the Table Allow-List Cache and the Schema Metadata
// Service read from. Discovery is read-only with respect to the
// analytics database — per spec.md §4.6's invariant, metadata edits
// never mutate the analytics database, they only populate this
// package's own catalogue rows via metadata.Service.UpsertTable.
//
// Gated by the data-explorer:discovery:run:all permission token, which
// the distilled spec names but never wires to an operation — this
// package is that wiring.
package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/nexushealth/data-explorer/internal/authz"
	"github.com/nexushealth/data-explorer/internal/caller"
	"github.com/nexushealth/data-explorer/internal/errors"
	"github.com/nexushealth/data-explorer/internal/metadata"
	"github.com/nexushealth/data-explorer/internal/retry"
)

// TableInfo is a lightweight table reference returned while listing.
type TableInfo struct {
	Database string
	Name     string
}

// ColumnInfo describes one column as the external catalog reports it.
type ColumnInfo struct {
	Name     string
	Type     string
	Nullable bool
	Comment  string
}

// TableDetail is the full metadata an external catalog returns for one
// table.
type TableDetail struct {
	Database string
	Name     string
	Columns  []ColumnInfo
}

// Catalog is the interface every external metadata source implements,
// grounded on the teacher's internal/catalog.Catalog interface.
type Catalog interface {
	Name() string
	ListDatabases(ctx context.Context) ([]string, error)
	ListTables(ctx context.Context, database string) ([]TableInfo, error)
	GetTable(ctx context.Context, database, table string) (*TableDetail, error)
	CheckConnectivity(ctx context.Context) error
	Close() error
}

// Syncer runs a discovery pass over one or more Catalogs, writing
// results into a metadata.Service. Retries transient catalog read
// failures with the shared backoff helper; never retries a
// classification/permission failure.
type Syncer struct {
	catalogs []Catalog
	metadata *metadata.Service
	authz    *authz.Evaluator
	retryCfg retry.Config
}

// NewSyncer creates a Syncer over the given catalogs.
func NewSyncer(catalogs []Catalog, metadataService *metadata.Service, evaluator *authz.Evaluator) *Syncer {
	return &Syncer{
		catalogs: catalogs,
		metadata: metadataService,
		authz:    evaluator,
		retryCfg: retry.DefaultConfig(),
	}
}

// Result summarizes one sync pass.
type Result struct {
	CatalogName    string
	DatabasesSeen  int
	TablesSynced   int
	TablesFailed   int
	Errors         []string
}

// SyncAll runs discovery against every configured catalog, requiring
// data-explorer:discovery:run:all.
func (s *Syncer) SyncAll(ctx context.Context, c *caller.Context) ([]Result, error) {
	if err := s.authz.RequirePermission(ctx, c, authz.ResourceDiscovery, "run"); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(s.catalogs))
	for _, cat := range s.catalogs {
		results = append(results, s.syncOne(ctx, cat))
	}
	return results, nil
}

func (s *Syncer) syncOne(ctx context.Context, cat Catalog) Result {
	result := Result{CatalogName: cat.Name()}

	var databases []string
	retryResult := retry.Do(ctx, s.retryCfg, isTransientCatalogError, func() error {
		dbs, err := cat.ListDatabases(ctx)
		if err != nil {
			return err
		}
		databases = dbs
		return nil
	})
	if !retryResult.Success {
		result.Errors = append(result.Errors, fmt.Sprintf("list databases: %v", retryResult.LastError))
		return result
	}
	result.DatabasesSeen = len(databases)

	for _, db := range databases {
		var tables []TableInfo
		tablesResult := retry.Do(ctx, s.retryCfg, isTransientCatalogError, func() error {
			ts, err := cat.ListTables(ctx, db)
			if err != nil {
				return err
			}
			tables = ts
			return nil
		})
		if !tablesResult.Success {
			result.Errors = append(result.Errors, fmt.Sprintf("list tables in %s: %v", db, tablesResult.LastError))
			continue
		}

		for _, t := range tables {
			var detail *TableDetail
			detailResult := retry.Do(ctx, s.retryCfg, isTransientCatalogError, func() error {
				d, err := cat.GetTable(ctx, db, t.Name)
				if err != nil {
					return err
				}
				detail = d
				return nil
			})
			if !detailResult.Success {
				result.TablesFailed++
				result.Errors = append(result.Errors, fmt.Sprintf("get table %s.%s: %v", db, t.Name, detailResult.LastError))
				continue
			}

			if err := s.upsert(ctx, detail); err != nil {
				result.TablesFailed++
				result.Errors = append(result.Errors, fmt.Sprintf("upsert %s.%s: %v", db, t.Name, err))
				continue
			}
			result.TablesSynced++
		}
	}

	return result
}

func (s *Syncer) upsert(ctx context.Context, detail *TableDetail) error {
	internalCaller, err := caller.New("discovery-syncer", true, "", nil, nil, nil)
	if err != nil {
		return errors.NewInternalInvariantViolation("discovery caller construction failed", err.Error())
	}
	return s.metadata.UpsertTable(ctx, internalCaller, metadata.TableMetadata{
		Schema:    detail.Database,
		Table:     detail.Name,
		IsActive:  true,
		UpdatedAt: time.Now(),
	})
}

// isTransientCatalogError treats everything as retryable except
// permission/validation errors surfaced as typed pipeline errors; a
// raw network/timeout error from a catalog client is always transient.
func isTransientCatalogError(err error) bool {
	return errors.KindOf(err) == ""
}
