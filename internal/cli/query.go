package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func (c *CLI) newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query execution commands",
		Long:  `Execute, explain, validate, and generate SQL queries through the data-explorer gateway.`,
	}

	cmd.AddCommand(c.newQueryExecCmd())
	cmd.AddCommand(c.newQueryExplainCmd())
	cmd.AddCommand(c.newQueryValidateCmd())
	cmd.AddCommand(c.newQueryGenerateCmd())
	cmd.AddCommand(c.newQueryChartCmd())

	return cmd
}

func (c *CLI) newQueryExecCmd() *cobra.Command {
	var (
		engine string
		rowCap int
	)

	cmd := &cobra.Command{
		Use:   "exec <SQL>",
		Short: "Execute a SQL query",
		Long: `Execute a SQL query through the data-explorer gateway.

The query runs through the full Query Safety & Execution Pipeline: authorized,
parsed, allow-list checked, tenant-filtered, then routed to an engine.

Example:
  explorerctl query exec "SELECT * FROM analytics.encounters LIMIT 10"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQueryExec(args[0], engine, rowCap)
		},
	}

	cmd.Flags().StringVar(&engine, "engine", "", "engine to run the query on (default: gateway default)")
	cmd.Flags().IntVar(&rowCap, "row-cap", 0, "maximum rows to return (0 = pipeline default)")

	return cmd
}

func (c *CLI) runQueryExec(sqlQuery, engine string, rowCap int) error {
	client := c.newGatewayClient()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := client.ExecuteQuery(ctx, sqlQuery, engine, rowCap)
	if err != nil {
		if c.jsonOutput {
			return c.outputJSON(map[string]interface{}{
				"success": false,
				"error":   err.Error(),
			})
		}
		c.errorf("Query failed: %v\n", err)
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(result)
	}

	c.printf("Engine: %s\n", result.Engine)
	c.printf("Duration: %s\n", result.Duration)
	c.printf("Rows: %d\n", result.RowCount)
	if result.Truncated {
		c.println("(truncated)")
	}

	if len(result.Columns) > 0 && len(result.Rows) > 0 {
		c.println("")
		c.println(strings.Join(result.Columns, "\t"))
		for _, row := range result.Rows {
			var values []string
			for _, col := range result.Columns {
				values = append(values, formatValue(row[col]))
			}
			c.println(strings.Join(values, "\t"))
		}
	}

	return nil
}

// formatValue formats a value for display
func formatValue(v interface{}) string {
	if v == nil {
		return "NULL"
	}
	return strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(
		strings.ReplaceAll(fmt.Sprintf("%v", v), "\n", " "), "\t", " "), "  ", " "))
}

func (c *CLI) newQueryExplainCmd() *cobra.Command {
	var engine string

	cmd := &cobra.Command{
		Use:   "explain <SQL>",
		Short: "Explain how a query will be rewritten and executed",
		Long: `Show the SQL the pipeline would actually run, without running it:
the tenant filter applied, the accessible-practice scope size, and the
effective row cap.

Example:
  explorerctl query explain "SELECT * FROM analytics.encounters WHERE date > '2024-01-01'"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQueryExplain(args[0], engine)
		},
	}

	cmd.Flags().StringVar(&engine, "engine", "", "engine to explain for (default: gateway default)")

	return cmd
}

func (c *CLI) runQueryExplain(sqlQuery, engine string) error {
	client := c.newGatewayClient()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := client.ExplainQuery(ctx, sqlQuery, engine, 0)
	if err != nil {
		if c.jsonOutput {
			return c.outputJSON(map[string]interface{}{
				"valid": false,
				"error": err.Error(),
				"query": sqlQuery,
			})
		}
		c.errorf("Explain failed: %v\n", err)
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(result)
	}

	c.println("Query Explanation")
	c.println("=================")
	c.println("")
	c.println("Rewritten SQL:")
	c.printf("  %s\n", result.SQL)
	c.println("")
	if len(result.TablesReferenced) > 0 {
		c.printf("Tables referenced: %s\n", strings.Join(result.TablesReferenced, ", "))
	}
	c.printf("Tenant filter applied: %t\n", result.FilterApplied)
	c.printf("Accessible practices in scope: %d\n", result.PracticeIDsScopeSize)
	c.printf("Row cap: %d\n", result.RowCap)

	return nil
}

func (c *CLI) newQueryValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <SQL>",
		Short: "Validate a query without execution",
		Long: `Parse and validate a SQL query against the Parsed SQL Validator's
rules (SELECT-only, no unions, no subqueries, no destructive keywords)
without executing it or checking table allow-listing.

Exit code 0 means valid, non-zero means invalid.

Example:
  explorerctl query validate "SELECT * FROM analytics.encounters"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQueryValidate(args[0])
		},
	}
}

func (c *CLI) runQueryValidate(sqlQuery string) error {
	client := c.newGatewayClient()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := client.ValidateQuery(ctx, sqlQuery)
	if err != nil {
		if c.jsonOutput {
			return c.outputJSON(map[string]interface{}{
				"valid":  false,
				"query":  sqlQuery,
				"errors": []string{err.Error()},
			})
		}
		c.errorf("✗ Validation failed: %v\n", err)
		return err
	}

	if !result.Valid {
		if c.jsonOutput {
			return c.outputJSON(result)
		}
		c.errorf("✗ Invalid:\n")
		for _, e := range result.Errors {
			c.errorf("  - %s\n", e)
		}
		return fmt.Errorf("validation failed")
	}

	if c.jsonOutput {
		return c.outputJSON(result)
	}

	c.println("✓ Valid")
	return nil
}

func (c *CLI) newQueryGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate <question>",
		Short: "Generate SQL from a natural-language question",
		Long: `Ask the NL-to-SQL Generator to turn a question into candidate SQL
scoped to the caller's visible tables. The returned SQL still passes
through the same pipeline as hand-written SQL on execution.

Example:
  explorerctl query generate "how many encounters happened last month?"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQueryGenerate(args[0])
		},
	}
}

func (c *CLI) runQueryGenerate(question string) error {
	client := c.newGatewayClient()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result, err := client.GenerateQuery(ctx, question)
	if err != nil {
		c.errorf("Generation failed: %v\n", err)
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(result)
	}

	c.println("Generated SQL:")
	c.printf("  %s\n", result.SQL)
	c.println("")
	c.printf("Tables used: %s\n", strings.Join(result.TablesUsed, ", "))
	c.printf("Estimated complexity: %s\n", result.EstimatedComplexity)
	c.printf("Model: %s (%d prompt / %d completion tokens)\n", result.ModelUsed, result.PromptTokens, result.CompletionTokens)
	if result.Explanation != "" {
		c.println("")
		c.println(result.Explanation)
	}

	return nil
}

func (c *CLI) newQueryChartCmd() *cobra.Command {
	var (
		from   string
		to     string
		engine string
	)

	cmd := &cobra.Command{
		Use:   "chart <data_source_id>",
		Short: "Fetch aggregated chart data for a catalogue table",
		Long: `Fetch time-bucketed aggregated measure values for a curated catalogue
table's ColumnMapping, over [--from, --to). Runs through the same
pipeline as any other query.

Example:
  explorerctl query chart analytics.encounters --from 2024-01-01 --to 2024-02-01`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQueryChart(args[0], from, to, engine)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "start date (YYYY-MM-DD), inclusive")
	cmd.Flags().StringVar(&to, "to", "", "end date (YYYY-MM-DD), exclusive")
	cmd.Flags().StringVar(&engine, "engine", "", "engine to run on (default: gateway default)")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	return cmd
}

func (c *CLI) runQueryChart(dataSourceID, from, to, engine string) error {
	client := c.newGatewayClient()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	points, err := client.ChartData(ctx, dataSourceID, from, to, engine)
	if err != nil {
		c.errorf("Chart query failed: %v\n", err)
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(points)
	}

	if len(points) == 0 {
		c.println("No data points")
		return nil
	}

	c.println("PERIOD\tMEASURE\tTYPE")
	for _, p := range points {
		c.printf("%s\t%.2f\t%s\n", p.TimePeriod, p.Measure, p.Type)
	}

	return nil
}
