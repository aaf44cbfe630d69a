package nlsql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexushealth/data-explorer/internal/authz"
	"github.com/nexushealth/data-explorer/internal/caller"
	pipelineerrors "github.com/nexushealth/data-explorer/internal/errors"
)

type fakeProvider struct {
	name       string
	completion *Completion
	err        error
}

func (f *fakeProvider) Name() string             { return f.name }
func (f *fakeProvider) Type() ProviderType       { return ProviderTypeOpenAI }
func (f *fakeProvider) ValidateConfig() error    { return nil }
func (f *fakeProvider) Close() error             { return nil }
func (f *fakeProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.completion, nil
}

func TestGenerate_DeniesWithoutQueryPermission(t *testing.T) {
	g := New(Config{Provider: &fakeProvider{name: "test"}, Authz: authz.NewEvaluator()})
	c, err := caller.New("c1", false, "org-1", nil, nil, nil)
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), c, "how many encounters last month?")
	require.Error(t, err)

	var denied *pipelineerrors.ErrPermissionDenied
	require.ErrorAs(t, err, &denied)
}

func TestGenerate_RejectsEmptyQuestion(t *testing.T) {
	g := New(Config{Provider: &fakeProvider{name: "test"}, Authz: authz.NewEvaluator()})
	c, err := caller.New("c1", true, "org-1", nil, nil, nil)
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), c, "")
	require.Error(t, err)

	var nlErr *pipelineerrors.ErrNLGenerationFailed
	require.ErrorAs(t, err, &nlErr)
}

func TestNew_DefaultsPromptLimitAndParser(t *testing.T) {
	g := New(Config{Provider: &fakeProvider{name: "test"}, Authz: authz.NewEvaluator()})
	assert.Equal(t, DefaultPromptMetadataLimit, g.promptLimit)
	assert.NotNil(t, g.parser)
}
