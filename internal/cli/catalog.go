// Package cli provides catalog discovery commands.
package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

// newCatalogCmd creates the catalog command group.
func (c *CLI) newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Catalog discovery commands",
		Long: `Discover tables from external catalogs (currently AWS Glue) and sync
them into the curated metadata catalogue.

Discovery is configured at the gateway, not the CLI: see the discovery
section of the gateway's configuration file.`,
	}

	cmd.AddCommand(c.newCatalogSyncCmd())

	return cmd
}

// newCatalogSyncCmd creates the catalog sync command.
func (c *CLI) newCatalogSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Synchronize tables from configured external catalogs",
		Long: `Trigger the gateway's Discovery Syncer to list databases and tables
from every configured catalog, and upsert them into the curated metadata
catalogue.

Requires the data-explorer:discovery:run permission and at least one
catalog configured at the gateway.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCatalogSync(cmd.Context())
		},
	}
}

func (c *CLI) runCatalogSync(ctx context.Context) error {
	client := c.newGatewayClient()

	reqCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	results, err := client.SyncDiscovery(reqCtx)
	if err != nil {
		c.errorf("Discovery sync failed: %v\n", err)
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"results": results,
		})
	}

	if len(results) == 0 {
		c.println("No catalogs configured")
		return nil
	}

	for _, res := range results {
		c.printf("Catalog: %s\n", res.CatalogName)
		c.printf("  Databases seen:  %d\n", res.DatabasesSeen)
		c.printf("  Tables synced:   %d\n", res.TablesSynced)
		c.printf("  Tables failed:   %d\n", res.TablesFailed)
		for _, e := range res.Errors {
			c.printf("  Error: %s\n", e)
		}
	}

	return nil
}
