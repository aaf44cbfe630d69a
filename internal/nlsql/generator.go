package nlsql

import (
	"context"
	"fmt"

	"github.com/nexushealth/data-explorer/internal/authz"
	"github.com/nexushealth/data-explorer/internal/caller"
	"github.com/nexushealth/data-explorer/internal/errors"
	"github.com/nexushealth/data-explorer/internal/metadata"
	"github.com/nexushealth/data-explorer/internal/sqlsafety"
)

// Generation is the full output contract of a successful Generate call,
// per spec §6.
type Generation struct {
	SQL                string
	TablesUsed         []string
	EstimatedComplexity Complexity
	ModelUsed          string
	PromptTokens       int
	CompletionTokens   int
	Explanation        string
}

// Generator implements the NL-to-SQL Generator (C7): it assembles a
// bounded schema-aware prompt, invokes a Provider, extracts a candidate
// SQL statement, and runs that statement through the same SQL AST
// Parser/Validator as any user-submitted query. No generated SQL is
// ever trusted or exempted from validation.
type Generator struct {
	provider      Provider
	metadata      *metadata.Service
	authz         *authz.Evaluator
	parser        *sqlsafety.Parser
	promptLimit   int
}

// Config configures a Generator.
type Config struct {
	Provider        Provider
	Metadata        *metadata.Service
	Authz           *authz.Evaluator
	Parser          *sqlsafety.Parser
	PromptMetadataLimit int
}

// New creates a Generator.
func New(cfg Config) *Generator {
	limit := cfg.PromptMetadataLimit
	if limit <= 0 {
		limit = DefaultPromptMetadataLimit
	}
	parser := cfg.Parser
	if parser == nil {
		parser = sqlsafety.NewParser()
	}
	return &Generator{
		provider:    cfg.Provider,
		metadata:    cfg.Metadata,
		authz:       cfg.Authz,
		parser:      parser,
		promptLimit: limit,
	}
}

// Generate turns a natural-language question into a validated SQL
// statement plus metadata about how it was produced. Gated by
// data-explorer:query (spec §6), the same token that gates end-to-end
// pipeline invocation, since NL generation is one entry point into it.
func (g *Generator) Generate(ctx context.Context, c *caller.Context, question string) (*Generation, error) {
	if err := g.authz.RequirePermission(ctx, c, authz.ResourceQuery, "query"); err != nil {
		return nil, err
	}
	if question == "" {
		return nil, errors.NewNLGenerationFailed("empty_question", "question must not be empty")
	}

	tables, err := g.metadata.ListTables(ctx, c, metadata.Filter{ActiveOnly: true})
	if err != nil {
		return nil, errors.NewNLGenerationFailed("metadata_unavailable", err.Error())
	}
	if len(tables) == 0 {
		return nil, errors.NewNLGenerationFailed("no_accessible_tables", "caller has no accessible tables to generate against")
	}

	systemPrompt := BuildSystemPrompt(tables, g.promptLimit)

	completion, err := g.provider.Complete(ctx, systemPrompt, question)
	if err != nil {
		return nil, errors.NewNLGenerationFailed("provider_error", err.Error())
	}

	sql, ok := ExtractSQL(completion.Text)
	if !ok {
		return nil, errors.NewNLGenerationFailed("no_sql_found", "model response contained no extractable SQL statement")
	}

	parsed, err := g.parser.Parse(sql)
	if err != nil {
		return nil, errors.NewNLGenerationFailed("generated_sql_rejected", err.Error())
	}
	if !parsed.Valid {
		return nil, errors.NewNLGenerationFailed("generated_sql_rejected", fmt.Sprintf("generated SQL failed validation: %v", parsed.Errors))
	}

	tablesUsed := make([]string, 0, len(parsed.Tables))
	for _, t := range parsed.Tables {
		tablesUsed = append(tablesUsed, t.Identity().String())
	}

	return &Generation{
		SQL:                 sql,
		TablesUsed:          tablesUsed,
		EstimatedComplexity: ClassifyComplexity(sql, parsed),
		ModelUsed:           g.provider.Name(),
		PromptTokens:        completion.PromptTokens,
		CompletionTokens:    completion.CompletionTokens,
	}, nil
}
