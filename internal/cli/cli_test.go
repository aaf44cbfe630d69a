package cli

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatValue_NilIsNULL(t *testing.T) {
	assert.Equal(t, "NULL", formatValue(nil))
}

func TestFormatValue_CollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", formatValue("a\nb\tc"))
	assert.Equal(t, "1", formatValue(1))
}

func TestInitConfig_LoadsFileAndAppliesFlagOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint: https://from-file.example.com\n"), 0644))

	c := &CLI{configPath: path, endpoint: "https://from-flag.example.com", token: "flag-token"}
	require.NoError(t, c.initConfig())

	assert.Equal(t, "https://from-flag.example.com", c.cfg.Endpoint)
	assert.Equal(t, "flag-token", c.cfg.Auth.Token)
}

func TestInitConfig_KeepsFileValuesWhenFlagsUnset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint: https://from-file.example.com\nauth:\n  token: file-token\n"), 0644))

	c := &CLI{configPath: path}
	require.NoError(t, c.initConfig())

	assert.Equal(t, "https://from-file.example.com", c.cfg.Endpoint)
	assert.Equal(t, "file-token", c.cfg.Auth.Token)
}

func TestNewGatewayClient_UsesConfiguredEndpointAndToken(t *testing.T) {
	c := &CLI{}
	require.NoError(t, c.initConfig())
	c.cfg.Endpoint = "https://gateway.example.com"
	c.cfg.Auth.Token = "tok-1"

	client := c.newGatewayClient()
	assert.Equal(t, "https://gateway.example.com", client.Endpoint())
	assert.Equal(t, "tok-1", client.Token())
}

func TestExecute_ReturnsExitInternalOnCommandError(t *testing.T) {
	c := New()
	c.rootCmd.SetArgs([]string{"table", "describe"})
	c.rootCmd.SetOut(io.Discard)
	c.rootCmd.SetErr(io.Discard)
	code := c.Execute()
	assert.Equal(t, ExitInternal, code)
}
