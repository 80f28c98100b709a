package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/arena2036-x/emc/internal/config"
	"github.com/arena2036-x/emc/internal/edc"
	"github.com/arena2036-x/emc/internal/http/viewmodels"
)

var connectorsJSON bool

var connectorsCmd = &cobra.Command{
	Use:   "connectors",
	Short: "List the connectors known to the management backend.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, client *edc.Client) error {
			connectors, err := client.ListConnectors(ctx)
			if err != nil {
				return err
			}
			if connectorsJSON {
				return printJSON(connectors)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tURL\tVERSION\tSTATUS")
			for _, c := range connectors {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					c.ID, c.Name, c.URL, c.EffectiveVersion(), viewmodels.StatusLabel(c.Status))
			}
			return w.Flush()
		})
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the management backend and the EDC control plane.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, client *edc.Client) error {
			backend, err := client.Health(ctx)
			if err != nil {
				return err
			}
			edcStatus, edcErr := client.EDCHealth(ctx)

			fmt.Printf("backend: %s\n", healthWord(backend))
			if edcErr != nil {
				fmt.Printf("edc: unreachable (%v)\n", edcErr)
				return &exitError{code: 2, silent: true}
			}
			fmt.Printf("edc: %s\n", healthWord(edcStatus))
			if !backend.Healthy || !edcStatus.Healthy {
				return &exitError{code: 2, silent: true}
			}
			return nil
		})
	},
}

var dataspaceCmd = &cobra.Command{
	Use:   "dataspace",
	Short: "Print the dataspace settings the backend operates in.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, client *edc.Client) error {
			settings, err := client.GetDataspace(ctx)
			if err != nil {
				return err
			}
			return printJSON(settings)
		})
	},
}

var backendConfigCmd = &cobra.Command{
	Use:   "backend-config",
	Short: "Print the backend's raw configuration document.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, client *edc.Client) error {
			raw, err := client.GetConfig(ctx)
			if err != nil {
				return err
			}
			return printJSON(raw)
		})
	},
}

func init() {
	connectorsCmd.Flags().BoolVar(&connectorsJSON, "json", false, "print raw JSON instead of a table")
}

func withClient(fn func(context.Context, *edc.Client) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := buildClient(ctx, cfg)
	if err != nil {
		return err
	}
	return fn(ctx, client)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func healthWord(status edc.HealthStatus) string {
	if status.Healthy {
		return "healthy"
	}
	if status.Message != "" {
		return "unhealthy (" + status.Message + ")"
	}
	return "unhealthy"
}
