package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shpitdev/researcher-enrichment/internal/pipeline"
)

var statusCmd = &cobra.Command{
	Use:   "status [file]",
	Short: "Show progress of a checkpoint or results file",
	Long: "Reads a checkpoint or results file without taking its lock. With no argument the primary " +
		"checkpoint is shown when a run is in progress, otherwise the primary results.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := statusPath(args)
		if err != nil {
			return err
		}
		st, err := readState(path)
		if err != nil {
			return err
		}
		rows := append([][]string{
			{"File", path},
			{"Processed count", fmt.Sprintf("%d", st.ProcessedCount)},
		}, statsRows(pipeline.Summarize(st.Results))...)
		fmt.Fprintln(cmd.OutOrStdout(), renderKV(rows))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	ok, err := openStore(cfg.Run.Checkpoint).Exists()
	if err != nil {
		return "", err
	}
	if ok {
		return cfg.Run.Checkpoint, nil
	}
	return cfg.Run.Output, nil
}
