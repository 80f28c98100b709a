package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:           "emc",
	Short:         "EMC is the management console for EDC connectors.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd, connectorsCmd, healthCmd, dataspaceCmd, backendConfigCmd, configCmd)
}
