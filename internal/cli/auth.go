package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

func (c *CLI) newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication commands",
		Long:  `Manage authentication with the data-explorer gateway.`,
	}

	cmd.AddCommand(c.newAuthLoginCmd())
	cmd.AddCommand(c.newAuthStatusCmd())
	cmd.AddCommand(c.newAuthLogoutCmd())

	return cmd
}

func (c *CLI) newAuthLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Store a gateway authentication token locally",
		Long: `Store a static authentication token for the data-explorer gateway.

The gateway authenticates callers by static token (MVP); this command
does not itself issue or exchange credentials.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAuthLogin()
		},
	}
}

func (c *CLI) runAuthLogin() error {
	var token string
	if c.token != "" {
		token = c.token
	} else {
		c.printf("Enter authentication token: ")
		_, err := fmt.Scanln(&token)
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
	}

	if token == "" {
		c.errorf("Error: token required\n")
		c.errorf("Suggestion: provide token via --token flag or enter when prompted\n")
		return fmt.Errorf("token required")
	}

	configDir, err := c.getConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tokenFile := filepath.Join(configDir, "token")
	if err := os.WriteFile(tokenFile, []byte(token), 0600); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	c.println("✓ Authentication successful")
	c.printf("  Token saved to: %s\n", tokenFile)

	return nil
}

func (c *CLI) newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Display authentication status",
		Long:  `Query the gateway for the caller identity, organization, and permissions the current token resolves to.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAuthStatus()
		},
	}
}

func (c *CLI) runAuthStatus() error {
	token := c.getToken()

	if token == "" {
		if c.jsonOutput {
			return c.outputJSON(map[string]interface{}{
				"authenticated": false,
				"error":         "no token found",
			})
		}
		c.errorf("Not authenticated\n")
		c.errorf("Suggestion: run 'explorerctl auth login' to authenticate\n")
		return fmt.Errorf("not authenticated")
	}

	client := c.newGatewayClient()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status, err := client.GetAuthStatus(ctx)
	if err != nil {
		if c.jsonOutput {
			return c.outputJSON(map[string]interface{}{
				"authenticated": false,
				"error":         err.Error(),
			})
		}
		c.errorf("✗ Authentication check failed: %v\n", err)
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(status)
	}

	c.println("Authentication Status:")
	c.printf("  Authenticated: %t\n", status.Authenticated)
	c.printf("  Caller ID: %s\n", status.CallerID)
	c.printf("  Organization: %s\n", status.OrganizationID)
	if len(status.Permissions) > 0 {
		c.println("  Permissions:")
		for _, p := range status.Permissions {
			c.printf("    - %s\n", p)
		}
	}
	c.printf("  Token source: %s\n", c.getTokenSource())

	return nil
}

func (c *CLI) newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear stored authentication",
		Long:  `Remove stored authentication token.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAuthLogout()
		},
	}
}

func (c *CLI) runAuthLogout() error {
	configDir, err := c.getConfigDir()
	if err != nil {
		return err
	}

	tokenFile := filepath.Join(configDir, "token")
	if err := os.Remove(tokenFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token: %w", err)
	}

	c.println("✓ Logged out successfully")
	return nil
}

// Helper functions

func (c *CLI) getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".data-explorer"), nil
}

func (c *CLI) getToken() string {
	// Priority: flag > config > file
	if c.token != "" {
		return c.token
	}
	if c.cfg != nil && c.cfg.Auth.Token != "" {
		return c.cfg.Auth.Token
	}

	configDir, err := c.getConfigDir()
	if err != nil {
		return ""
	}
	tokenFile := filepath.Join(configDir, "token")
	data, err := os.ReadFile(tokenFile)
	if err != nil {
		return ""
	}
	return string(data)
}

func (c *CLI) getTokenSource() string {
	if c.token != "" {
		return "command-line flag"
	}
	if c.cfg != nil && c.cfg.Auth.Token != "" {
		return "config file"
	}
	return "token file (~/.data-explorer/token)"
}

func (c *CLI) outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
