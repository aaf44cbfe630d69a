// Package cli provides bootstrap and status commands.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	_ "github.com/lib/pq"

	"github.com/nexushealth/data-explorer/internal/bootstrap"
	"github.com/nexushealth/data-explorer/internal/storage"
)

func (c *CLI) newBootstrapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Bootstrap and configuration management",
		Long: `Manage data-explorer configuration and system initialization.

Commands:
  init     - Generate example configuration
  validate - Validate configuration against schema
  apply    - Seed the curated metadata catalogue from configuration`,
	}

	cmd.AddCommand(c.newBootstrapInitCmd())
	cmd.AddCommand(c.newBootstrapValidateCmd())
	cmd.AddCommand(c.newBootstrapApplyCmd())

	return cmd
}

func (c *CLI) newBootstrapInitCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate example configuration",
		Long: `Generate an example configuration file for data-explorer.

This command does NOT modify system state - it only creates a template file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBootstrapInit(outputDir)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "output directory for configuration file")

	return cmd
}

func (c *CLI) runBootstrapInit(outputDir string) error {
	bootstrapper := bootstrap.NewBootstrapper(nil)

	configPath, err := bootstrapper.Init(outputDir)
	if err != nil {
		c.errorf("Error: %v\n", err)
		return err
	}

	absPath, _ := filepath.Abs(configPath)
	c.printf("✓ Configuration file created: %s\n", absPath)
	c.println("\nNext steps:")
	c.println("  1. Edit the configuration file to match your environment")
	c.println("  2. Run 'explorerctl bootstrap validate' to check configuration")
	c.println("  3. Run 'explorerctl bootstrap apply' to seed the catalogue")

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"status": "created",
			"path":   absPath,
		})
	}

	return nil
}

func (c *CLI) newBootstrapValidateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		Long: `Validate configuration file against schema and perform dry-run checks.

This command:
  - Validates configuration syntax
  - Checks all required sections are present
  - Validates role and table definitions
  - Fails on ambiguity

No system state is modified.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBootstrapValidate(configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "data-explorer.yaml", "configuration file path")

	return cmd
}

func (c *CLI) runBootstrapValidate(configPath string) error {
	c.debugf("Validating configuration: %s\n", configPath)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		c.errorf("Error: configuration file not found: %s\n", configPath)
		c.errorf("Suggestion: run 'explorerctl bootstrap init' to create one\n")
		return err
	}

	cfg, err := bootstrap.LoadConfig(configPath)
	if err != nil {
		c.errorf("Error: %v\n", err)
		return err
	}

	c.debugf("Configuration loaded successfully\n")

	if err := cfg.Validate(); err != nil {
		c.errorf("Validation failed: %v\n", err)
		return err
	}

	c.printf("✓ Configuration is valid: %s\n", configPath)

	c.println("\nConfiguration summary:")
	c.printf("  Gateway:    %s\n", cfg.Gateway.Listen)
	c.printf("  Repository: PostgreSQL\n")
	c.printf("  Engines:    %d configured\n", len(cfg.Engines))
	c.printf("  Tables:     %d defined\n", len(cfg.Tables))
	c.printf("  Roles:      %d defined\n", len(cfg.Roles))

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"status":       "valid",
			"path":         configPath,
			"engine_count": len(cfg.Engines),
			"table_count":  len(cfg.Tables),
			"role_count":   len(cfg.Roles),
		})
	}

	return nil
}

func (c *CLI) newBootstrapApplyCmd() *cobra.Command {
	var (
		configPath string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Seed the curated metadata catalogue from configuration",
		Long: `Apply configuration to the data-explorer curated metadata catalogue.

Apply is idempotent: existing tables are updated rather than duplicated.
It never touches the analytics engines themselves, only the catalogue.

Requirements:
  - Configuration must be valid
  - PostgreSQL (repository.postgres.dsn) must be accessible`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBootstrapApply(configPath, dryRun)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "data-explorer.yaml", "configuration file path")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be changed without applying")

	return cmd
}

func (c *CLI) runBootstrapApply(configPath string, dryRun bool) error {
	c.debugf("Applying configuration: %s\n", configPath)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		c.errorf("Error: configuration file not found: %s\n", configPath)
		return err
	}

	cfg, err := bootstrap.LoadConfig(configPath)
	if err != nil {
		c.errorf("Error loading configuration: %v\n", err)
		return err
	}

	if err := cfg.Validate(); err != nil {
		c.errorf("Validation failed: %v\n", err)
		c.errorf("Run 'explorerctl bootstrap validate' for details\n")
		return err
	}

	c.printf("✓ Configuration validated\n")

	if dryRun {
		c.println("\nDry-run mode: showing what would be applied")
		c.println("\nTables to create/update:")
		for tableName := range cfg.Tables {
			c.printf("  - %s\n", tableName)
		}
		c.println("\nNo changes were made.")
		return nil
	}

	if cfg.Repository.Postgres.DSN == "" {
		c.errorf("Error: repository.postgres.dsn not set in configuration\n")
		return fmt.Errorf("repository DSN required to apply configuration")
	}

	c.println("\nConnecting to database...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("postgres", cfg.Repository.Postgres.DSN)
	if err != nil {
		c.errorf("Error: %v\n", err)
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer db.Close()

	repo := storage.NewPostgresRepository(db)
	if err := repo.CheckConnectivity(ctx); err != nil {
		c.errorf("Error: %v\n", err)
		return fmt.Errorf("repository connectivity check failed: %w", err)
	}

	if err := cfg.ApplyToRepository(ctx, repo); err != nil {
		c.errorf("Apply failed: %v\n", err)
		return err
	}

	c.printf("✓ Applied %d table(s) to the catalogue\n", len(cfg.Tables))

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"status":      "applied",
			"table_count": len(cfg.Tables),
		})
	}

	return nil
}

// newStatusCmd creates the status command.
func (c *CLI) newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show system status",
		Long: `Display system status including component health:
  - Gateway readiness
  - Repository health
  - Engine availability`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStatus()
		},
	}

	return cmd
}

func (c *CLI) runStatus() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := c.newGatewayClient()

	ready, err := client.GetReadiness(ctx)
	if err != nil {
		c.errorf("✗ Gateway: unreachable (%s)\n", c.cfg.Endpoint)
		c.errorf("  Error: %v\n", err)
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(ready)
	}

	if ready.Ready {
		c.printf("✓ Gateway: ready (%s)\n", c.cfg.Endpoint)
	} else {
		c.errorf("✗ Gateway: not ready (%s)\n", c.cfg.Endpoint)
	}
	for name, ok := range ready.Components {
		status := "✓"
		if !ok {
			status = "✗"
		}
		c.printf("  %s %s\n", status, name)
	}

	return nil
}

// newAuditCmd creates the audit command.
func (c *CLI) newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit and reporting commands",
		Long:  `Commands for audit logs and operational reports.`,
	}

	cmd.AddCommand(c.newAuditSummaryCmd())

	return cmd
}

func (c *CLI) newAuditSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show audit summary",
		Long: `Display aggregated audit statistics:
  - Accepted vs rejected query counts
  - Top rejection reasons
  - Top queried tables

No raw query text is ever exposed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAuditSummary()
		},
	}

	return cmd
}

func (c *CLI) runAuditSummary() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := c.newGatewayClient()

	summary, err := client.GetAuditSummary(ctx)
	if err != nil {
		c.errorf("Error: %v\n", err)
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(summary)
	}

	c.println("Query Summary:")
	c.printf("  Accepted: %d\n", summary.AcceptedCount)
	c.printf("  Rejected: %d\n", summary.RejectedCount)

	if len(summary.TopRejectionReasons) > 0 {
		c.println("\nTop Rejection Reasons:")
		for _, r := range summary.TopRejectionReasons {
			c.printf("  - %s: %d\n", r.Reason, r.Count)
		}
	}

	if len(summary.TopQueriedTables) > 0 {
		c.println("\nTop Queried Tables:")
		for _, t := range summary.TopQueriedTables {
			c.printf("  - %s: %d\n", t.Table, t.Count)
		}
	}

	return nil
}
