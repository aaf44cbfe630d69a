package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"
)

// GlueConfig configures the AWS Glue catalog source. Unlike the
// teacher's glue client, this one actually talks to AWS: the teacher
// left ListDatabases/ListTables/GetTable as explicit "AWS SDK not
// implemented" stubs, which this discovery package now fills in since
// SPEC_FULL.md wires schema discovery to a real operation.
type GlueConfig struct {
	Region           string
	CatalogID        string
	RequestTimeout   time.Duration
	IncludeDatabases []string
	ExcludeDatabases []string
}

// GlueCatalog implements Catalog against the AWS Glue Data Catalog.
type GlueCatalog struct {
	config GlueConfig
	client *glue.Client
}

// NewGlueCatalog creates a GlueCatalog, loading AWS credentials from the
// default provider chain (environment, shared config, instance role).
func NewGlueCatalog(ctx context.Context, config GlueConfig) (*GlueCatalog, error) {
	if config.Region == "" {
		return nil, fmt.Errorf("glue: region is required")
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(config.Region))
	if err != nil {
		return nil, fmt.Errorf("glue: failed to load AWS config: %w", err)
	}

	return &GlueCatalog{
		config: config,
		client: glue.NewFromConfig(awsCfg),
	}, nil
}

// Name returns the catalog identifier.
func (g *GlueCatalog) Name() string { return "glue" }

// CheckConnectivity verifies AWS Glue is reachable by listing one
// database.
func (g *GlueCatalog) CheckConnectivity(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx, g.config.RequestTimeout)
	defer cancel()
	_, err := g.client.GetDatabases(reqCtx, g.databasesInput(nil))
	if err != nil {
		return fmt.Errorf("glue: connectivity check failed: %w", err)
	}
	return nil
}

// ListDatabases returns all databases visible to the configured
// catalog, paginating through GetDatabases and applying the
// include/exclude filters.
func (g *GlueCatalog) ListDatabases(ctx context.Context) ([]string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, g.config.RequestTimeout)
	defer cancel()

	var names []string
	var nextToken *string
	for {
		input := g.databasesInput(nextToken)
		out, err := g.client.GetDatabases(reqCtx, input)
		if err != nil {
			return nil, fmt.Errorf("glue: GetDatabases failed: %w", err)
		}
		for _, db := range out.DatabaseList {
			if db.Name == nil {
				continue
			}
			if g.shouldInclude(*db.Name) {
				names = append(names, *db.Name)
			}
		}
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return names, nil
}

// ListTables returns every table registered under database.
func (g *GlueCatalog) ListTables(ctx context.Context, database string) ([]TableInfo, error) {
	reqCtx, cancel := context.WithTimeout(ctx, g.config.RequestTimeout)
	defer cancel()

	var out []TableInfo
	var nextToken *string
	for {
		resp, err := g.client.GetTables(reqCtx, &glue.GetTablesInput{
			DatabaseName: &database,
			CatalogId:    g.catalogID(),
			NextToken:    nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("glue: GetTables failed for %s: %w", database, err)
		}
		for _, t := range resp.TableList {
			if t.Name == nil {
				continue
			}
			out = append(out, TableInfo{Database: database, Name: *t.Name})
		}
		if resp.NextToken == nil {
			break
		}
		nextToken = resp.NextToken
	}
	return out, nil
}

// GetTable returns column-level detail for one table.
func (g *GlueCatalog) GetTable(ctx context.Context, database, table string) (*TableDetail, error) {
	reqCtx, cancel := context.WithTimeout(ctx, g.config.RequestTimeout)
	defer cancel()

	resp, err := g.client.GetTable(reqCtx, &glue.GetTableInput{
		DatabaseName: &database,
		Name:         &table,
		CatalogId:    g.catalogID(),
	})
	if err != nil {
		return nil, fmt.Errorf("glue: GetTable failed for %s.%s: %w", database, table, err)
	}
	if resp.Table == nil {
		return nil, fmt.Errorf("glue: table %s.%s not found", database, table)
	}

	detail := &TableDetail{Database: database, Name: table}
	if resp.Table.StorageDescriptor != nil {
		for _, col := range resp.Table.StorageDescriptor.Columns {
			detail.Columns = append(detail.Columns, columnFromGlue(col))
		}
	}
	for _, col := range resp.Table.PartitionKeys {
		detail.Columns = append(detail.Columns, columnFromGlue(col))
	}
	return detail, nil
}

// Close releases resources. The Glue SDK client holds no persistent
// connection, so this is a no-op kept for interface symmetry with the
// other catalog sources.
func (g *GlueCatalog) Close() error { return nil }

func columnFromGlue(col types.Column) ColumnInfo {
	c := ColumnInfo{Nullable: true}
	if col.Name != nil {
		c.Name = *col.Name
	}
	if col.Type != nil {
		c.Type = *col.Type
	}
	if col.Comment != nil {
		c.Comment = *col.Comment
	}
	return c
}

func (g *GlueCatalog) databasesInput(nextToken *string) *glue.GetDatabasesInput {
	return &glue.GetDatabasesInput{CatalogId: g.catalogID(), NextToken: nextToken}
}

func (g *GlueCatalog) catalogID() *string {
	if g.config.CatalogID == "" {
		return nil
	}
	return &g.config.CatalogID
}

func (g *GlueCatalog) shouldInclude(database string) bool {
	for _, excluded := range g.config.ExcludeDatabases {
		if strings.EqualFold(excluded, database) {
			return false
		}
	}
	if len(g.config.IncludeDatabases) == 0 {
		return true
	}
	for _, included := range g.config.IncludeDatabases {
		if strings.EqualFold(included, database) {
			return true
		}
	}
	return false
}

var _ Catalog = (*GlueCatalog)(nil)
