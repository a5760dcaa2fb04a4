package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shpitdev/researcher-enrichment/internal/config"
	"github.com/shpitdev/researcher-enrichment/internal/version"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration with credentials masked",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, err := config.Dump(*cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Current)
	},
}

func init() {
	rootCmd.AddCommand(configCmd, versionCmd)
}
