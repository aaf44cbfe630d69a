package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func (c *CLI) newEngineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engine",
		Short: "Engine inspection commands",
		Long:  `Inspect the query engines registered with the gateway.`,
	}

	cmd.AddCommand(c.newEngineListCmd())

	return cmd
}

func (c *CLI) newEngineListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available engines",
		Long:  `List all query engines registered with the gateway and their availability.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEngineList()
		},
	}
}

func (c *CLI) runEngineList() error {
	client := c.newGatewayClient()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	engines, err := client.ListEngines(ctx)
	if err != nil {
		c.errorf("Failed to list engines: %v\n", err)
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"engines": engines,
		})
	}

	if len(engines) == 0 {
		c.println("No engines registered")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tAVAILABLE")
	for _, e := range engines {
		fmt.Fprintf(w, "%s\t%t\n", e.Name, e.Available)
	}
	w.Flush()

	return nil
}
