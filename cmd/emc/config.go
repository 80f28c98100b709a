package main

import (
	"github.com/spf13/cobra"

	"github.com/arena2036-x/emc/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration with secrets masked.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadOptionalBackend()
		if err != nil {
			return err
		}
		return printJSON(maskConfig(cfg))
	},
}

func maskConfig(cfg config.Config) config.Config {
	if cfg.APIKey != "" {
		cfg.APIKey = "******"
	}
	if cfg.KeycloakClientSecret != "" {
		cfg.KeycloakClientSecret = "******"
	}
	return cfg
}
