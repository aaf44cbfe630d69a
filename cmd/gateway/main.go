// Package main is the entrypoint for the data-explorer gateway server.
// It authenticates requests, runs candidate SQL through the Query
// Safety & Execution Pipeline, and serves schema metadata, chart data,
// NL-to-SQL generation, and catalog discovery over HTTP.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nexushealth/data-explorer/internal/auth"
	"github.com/nexushealth/data-explorer/internal/authz"
	"github.com/nexushealth/data-explorer/internal/chartdata"
	"github.com/nexushealth/data-explorer/internal/config"
	bigqueryadapter "github.com/nexushealth/data-explorer/internal/executor/bigquery"
	duckdbadapter "github.com/nexushealth/data-explorer/internal/executor/duckdb"
	redshiftadapter "github.com/nexushealth/data-explorer/internal/executor/redshift"
	snowflakeadapter "github.com/nexushealth/data-explorer/internal/executor/snowflake"
	trinoadapter "github.com/nexushealth/data-explorer/internal/executor/trino"

	"github.com/nexushealth/data-explorer/internal/allowlist"
	"github.com/nexushealth/data-explorer/internal/executor"
	"github.com/nexushealth/data-explorer/internal/gateway"
	"github.com/nexushealth/data-explorer/internal/metadata"
	"github.com/nexushealth/data-explorer/internal/metadata/discovery"
	"github.com/nexushealth/data-explorer/internal/nlsql"
	"github.com/nexushealth/data-explorer/internal/observability"
	"github.com/nexushealth/data-explorer/internal/pipeline"
	"github.com/nexushealth/data-explorer/internal/sqlsafety"
	"github.com/nexushealth/data-explorer/internal/storage"

	_ "github.com/lib/pq" // PostgreSQL driver
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		addr       = flag.String("addr", ":8080", "HTTP listen address")
		token      = flag.String("token", "", "Static auth token (required)")
		configPath = flag.String("config", "", "Path to data-explorer.yaml")
		devMode    = flag.Bool("dev", false, "Development mode (allows in-memory repository)")
		showHelp   = flag.Bool("help", false, "Show help message")
		showVer    = flag.Bool("version", false, "Show version")
	)
	flag.Parse()

	if *showHelp {
		flag.Usage()
		return nil
	}
	if *showVer {
		fmt.Printf("data-explorer-gateway %s (commit: %s, built: %s)\n", version, commit, date)
		return nil
	}

	if *token == "" {
		*token = os.Getenv("DATA_EXPLORER_TOKEN")
		if *token == "" && !*devMode {
			return fmt.Errorf("auth token required: use -token flag or DATA_EXPLORER_TOKEN env var (use -dev for development mode)")
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var db *sql.DB
	var repo storage.MetadataRepository
	if !*devMode {
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User,
			cfg.Database.Password, cfg.Database.Name, cfg.Database.SSLMode)
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("PostgreSQL connectivity check failed: %w", err)
		}

		log.Println("running database migrations...")
		if err := storage.NewMigrationRunner(db).Run(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Println("database migrations completed")

		repo = storage.NewPostgresRepository(db)
	} else {
		log.Println("WARNING: development mode - using in-memory repository (not for production)")
		repo = storage.NewMockRepository()
	}
	if err := repo.CheckConnectivity(ctx); err != nil {
		return fmt.Errorf("repository connectivity check failed: %w", err)
	}

	evaluator := authz.NewEvaluator()
	metadataService := metadata.NewService(db, evaluator)

	engineRegistry := executor.NewRegistry()
	registerEngines(ctx, engineRegistry, cfg)
	queryExecutor := executor.NewExecutor(engineRegistry)

	allowListCache := allowlist.New(metadataService, cfg.AllowList.TTL)

	var auditLogger observability.AuditLogger
	if db != nil {
		persistent, err := observability.NewPersistentLogger(db)
		if err != nil {
			return fmt.Errorf("failed to create audit logger: %w", err)
		}
		auditLogger = persistent
	} else {
		auditLogger = observability.NewNoopLogger()
	}

	pl := pipeline.New(pipeline.Config{
		Authz:         evaluator,
		Parser:        sqlsafety.NewParser(),
		AllowList:     allowListCache,
		Executor:      queryExecutor,
		Logger:        auditLogger,
		DefaultRowCap: cfg.Pipeline.DefaultRowCap,
		MaxRowCap:     cfg.Pipeline.MaxRowCap,
	})

	chartService := chartdata.NewService(metadataService, pl)

	var generator *nlsql.Generator
	if cfg.NLSQL.Enabled {
		provider, err := nlsql.NewProvider(nlsqlProviderConfig(cfg))
		if err != nil {
			return fmt.Errorf("failed to create NL-to-SQL provider: %w", err)
		}
		generator = nlsql.New(nlsql.Config{
			Provider:            provider,
			Metadata:            metadataService,
			Authz:               evaluator,
			Parser:              sqlsafety.NewParser(),
			PromptMetadataLimit: cfg.NLSQL.PromptMetadataLimit,
		})
	}

	var discoverer *discovery.Syncer
	if cfg.Discovery.Glue.Enabled {
		glueCatalog, err := discovery.NewGlueCatalog(ctx, discovery.GlueConfig{
			Region:           cfg.Discovery.Glue.Region,
			CatalogID:        cfg.Discovery.Glue.CatalogID,
			RequestTimeout:   cfg.Discovery.Glue.RequestTimeout,
			IncludeDatabases: cfg.Discovery.Glue.IncludeDatabases,
			ExcludeDatabases: cfg.Discovery.Glue.ExcludeDatabases,
		})
		if err != nil {
			return fmt.Errorf("failed to create Glue catalog: %w", err)
		}
		discoverer = discovery.NewSyncer([]discovery.Catalog{glueCatalog}, metadataService, evaluator)
	}

	authenticator := auth.NewStaticTokenAuthenticator()
	authenticator.RegisterToken(*token, &auth.Principal{
		ID:             "default-user",
		IsSuperAdmin:   true,
		OrganizationID: "default-org",
	})

	gw := gateway.New(
		gateway.Config{
			Version:        version,
			ProductionMode: !*devMode,
			DefaultEngine:  defaultEngineName(cfg),
			RequestTimeout: cfg.Pipeline.DefaultTimeout,
		},
		authenticator,
		evaluator,
		pl,
		metadataService,
		generator,
		chartService,
		discoverer,
		engineRegistry,
		auditLogger,
	)

	server := &http.Server{
		Addr:         *addr,
		Handler:      gw,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("shutting down gateway...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
		if err := engineRegistry.CloseAll(); err != nil {
			log.Printf("engine shutdown error: %v", err)
		}
		close(done)
	}()

	log.Printf("data-explorer gateway starting on %s", *addr)
	log.Printf("version: %s, commit: %s", version, commit)
	log.Printf("health check: http://localhost%s/health", *addr)
	log.Printf("readiness: http://localhost%s/ready", *addr)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	log.Println("gateway stopped")
	return nil
}

// registerEngines registers a Query Executor adapter for every engine
// enabled in cfg. DuckDB is registered unconditionally as the
// always-available fallback, mirroring the teacher's "DuckDB adapter
// registered always" startup invariant.
func registerEngines(ctx context.Context, registry *executor.Registry, cfg *config.Config) {
	registry.Register(duckdbadapter.NewAdapter(duckdbadapter.Config{
		DatabasePath: cfg.Engines.DuckDB.Database,
	}))
	log.Println("registered duckdb engine")

	if cfg.Engines.Trino.Enabled {
		registry.Register(trinoadapter.NewAdapter(trinoadapter.Config{
			Host:    cfg.Engines.Trino.Host,
			Port:    cfg.Engines.Trino.Port,
			Catalog: cfg.Engines.Trino.Catalog,
			User:    cfg.Engines.Trino.User,
		}))
		log.Printf("registered trino engine at %s:%d", cfg.Engines.Trino.Host, cfg.Engines.Trino.Port)
	}

	if cfg.Engines.Snowflake.Enabled {
		adapter, err := snowflakeadapter.NewAdapter(ctx, snowflakeadapter.Config{
			Account:   cfg.Engines.Snowflake.Account,
			User:      cfg.Engines.Snowflake.User,
			Password:  cfg.Engines.Snowflake.Password,
			Database:  cfg.Engines.Snowflake.Database,
			Schema:    cfg.Engines.Snowflake.Schema,
			Warehouse: cfg.Engines.Snowflake.Warehouse,
		})
		if err != nil {
			log.Printf("failed to register snowflake engine: %v", err)
		} else {
			registry.Register(adapter)
			log.Println("registered snowflake engine")
		}
	}

	if cfg.Engines.BigQuery.Enabled {
		adapter, err := bigqueryadapter.NewAdapter(ctx, bigqueryadapter.Config{
			ProjectID: cfg.Engines.BigQuery.ProjectID,
		})
		if err != nil {
			log.Printf("failed to register bigquery engine: %v", err)
		} else {
			registry.Register(adapter)
			log.Println("registered bigquery engine")
		}
	}

	if cfg.Engines.Redshift.Enabled {
		adapter, err := redshiftadapter.NewAdapter(ctx, redshiftadapter.Config{
			Host:     cfg.Engines.Redshift.Host,
			Port:     cfg.Engines.Redshift.Port,
			Database: cfg.Engines.Redshift.Database,
			User:     cfg.Engines.Redshift.User,
			Password: cfg.Engines.Redshift.Password,
		})
		if err != nil {
			log.Printf("failed to register redshift engine: %v", err)
		} else {
			registry.Register(adapter)
			log.Println("registered redshift engine")
		}
	}
}

func defaultEngineName(cfg *config.Config) string {
	if cfg.Engines.DuckDB.Enabled {
		return "duckdb"
	}
	return ""
}

func nlsqlProviderConfig(cfg *config.Config) nlsql.ProviderConfig {
	return nlsql.ProviderConfig{
		Name:        "default",
		DisplayName: "Default NL-to-SQL Provider",
		Type:        nlsql.ProviderType(cfg.NLSQL.ProviderType),
		Model:       cfg.NLSQL.Model,
		Config: map[string]string{
			"api_key":          cfg.NLSQL.APIKey,
			"base_url":         cfg.NLSQL.BaseURL,
			"azure_endpoint":   cfg.NLSQL.AzureEndpoint,
			"deployment_name":  cfg.NLSQL.AzureDeploymentName,
		},
	}
}
