package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shpitdev/researcher-enrichment/internal/checkpoint"
)

// openStore returns a writable store for a checkpoint or output file.
func openStore(path string) *checkpoint.Store {
	return checkpoint.New(path, checkpoint.Options{
		Logger:         zap.L(),
		StrictRecovery: cfg.Checkpoint.StrictRecovery,
	})
}

// readState loads a checkpoint-shaped file for reading only. A corrupt file is
// an error here, never renamed aside.
func readState(path string) (checkpoint.State, error) {
	st := checkpoint.New(path, checkpoint.Options{Logger: zap.L(), StrictRecovery: true})
	ok, err := st.Exists()
	if err != nil {
		return checkpoint.State{}, err
	}
	if !ok {
		return checkpoint.State{}, eris.Errorf("%s does not exist", path)
	}
	return st.Load()
}

// lockAll takes every store's lock or none of them.
func lockAll(stores ...*checkpoint.Store) (func(), error) {
	held := make([]*checkpoint.Store, 0, len(stores))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			_ = held[i].Unlock()
		}
	}
	for _, s := range stores {
		if err := s.Lock(); err != nil {
			release()
			return nil, err
		}
		held = append(held, s)
	}
	return release, nil
}

// stringFlag returns the flag value when it was set, otherwise fallback.
func stringFlag(cmd *cobra.Command, name, fallback string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return fallback
}

func durationFlag(cmd *cobra.Command, name string, fallback time.Duration) time.Duration {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetDuration(name)
		return v
	}
	return fallback
}
