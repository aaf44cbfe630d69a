package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func (c *CLI) newTableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Curated metadata catalogue browsing",
		Long: `Browse the curated metadata catalogue served by the Schema Metadata
Service. Tables enter the catalogue through bootstrap configuration
(explorerctl bootstrap apply) or catalog discovery sync
(explorerctl catalog sync); this command only reads.`,
	}

	cmd.AddCommand(c.newTableListCmd())
	cmd.AddCommand(c.newTableDescribeCmd())

	return cmd
}

func (c *CLI) newTableListCmd() *cobra.Command {
	var (
		schema     string
		nameFilter string
		activeOnly bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List curated catalogue tables",
		Long:  `List tables visible to the caller in the curated metadata catalogue.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTableList(schema, nameFilter, activeOnly)
		},
	}

	cmd.Flags().StringVar(&schema, "schema", "", "filter by schema")
	cmd.Flags().StringVar(&nameFilter, "q", "", "filter by table name substring")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "show only active tables")

	return cmd
}

func (c *CLI) runTableList(schema, nameFilter string, activeOnly bool) error {
	client := c.newGatewayClient()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tables, err := client.ListTables(ctx, schema, nameFilter, activeOnly)
	if err != nil {
		c.errorf("Failed to list tables: %v\n", err)
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"tables": tables,
		})
	}

	if len(tables) == 0 {
		c.println("No tables visible")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tACTIVE\tCOLUMNS\tCOMPLETENESS")
	for _, t := range tables {
		fmt.Fprintf(w, "%s\t%t\t%d\t%.0f%%\n", t.ID, t.Active, len(t.Columns), t.Completeness*100)
	}
	w.Flush()

	return nil
}

func (c *CLI) newTableDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <schema.table>",
		Short: "Describe a curated catalogue table",
		Long: `Display detailed information about one curated catalogue table:
its columns, types, semantic tags, and completeness score.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTableDescribe(args[0])
		},
	}
}

func (c *CLI) runTableDescribe(tableID string) error {
	client := c.newGatewayClient()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tables, err := client.ListTables(ctx, "", "", false)
	if err != nil {
		c.errorf("Failed to describe table: %v\n", err)
		return err
	}

	for _, t := range tables {
		if t.ID != tableID {
			continue
		}

		if c.jsonOutput {
			return c.outputJSON(t)
		}

		c.println("Table:", t.ID)
		if t.Description != "" {
			c.printf("  Description: %s\n", t.Description)
		}
		c.printf("  Active: %t\n", t.Active)
		c.printf("  Completeness: %.0f%%\n", t.Completeness*100)
		c.println("  Columns:")
		for _, col := range t.Columns {
			tag := ""
			if col.SemanticTag != "" {
				tag = " [" + col.SemanticTag + "]"
			}
			c.printf("    - %s %s%s\n", col.Name, col.Type, tag)
		}
		return nil
	}

	c.errorf("Table not found: %s\n", tableID)
	c.errorf("Use 'explorerctl table list' to see visible tables\n")
	return fmt.Errorf("table not found: %s", tableID)
}
