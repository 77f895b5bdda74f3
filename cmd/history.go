package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luki/tempwatch/internal/config"
	"github.com/luki/tempwatch/internal/logger"
	"github.com/luki/tempwatch/internal/store"
	"github.com/luki/tempwatch/internal/viewer"
)

var historyBackend string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse logged readings",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyBackend, "backend", "", "Reading log backend to read (csv or sqlite)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initLogging(cfg)
	defer logger.Close()

	backend := cfg.StoreBackend
	if historyBackend != "" {
		backend = historyBackend
	}
	if backend == config.StoreNone {
		return fmt.Errorf("reading log is disabled (store_backend is %q)", config.StoreNone)
	}

	set, _, err := loadPrefs(cfg)
	if err != nil {
		return fmt.Errorf("error loading preferences: %w", err)
	}

	st, err := store.Open(backend, cfg.DataDir())
	if err != nil {
		return fmt.Errorf("error opening reading log: %w", err)
	}
	defer st.Close()

	return viewer.Run(st, set)
}
