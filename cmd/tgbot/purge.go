package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Alias1177/TokenPredictor/internal/session"
)

var purgeOlderThan time.Duration

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete abandoned conversations once",
	Long: `Removes conversation records untouched for longer than --older-than
(default STATE_TTL). Only the postgres backend needs this; redis records expire
on their own.`,
	Args: cobra.NoArgs,
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().DurationVar(&purgeOlderThan, "older-than", 0, "age after which a conversation is abandoned (default STATE_TTL)")
}

func runPurge(cmd *cobra.Command, args []string) error {
	olderThan := purgeOlderThan
	if olderThan <= 0 {
		olderThan = cfg.StateTTL
	}

	store, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s conversation store: %w", cfg.StateBackend, err)
	}
	defer store.Close()

	purger, ok := store.(session.Purger)
	if !ok {
		log.Info().Str("backend", cfg.StateBackend).Msg("Backend expires conversations itself, nothing to purge")
		return nil
	}

	n, err := purger.PurgeStale(cmd.Context(), olderThan)
	if err != nil {
		return fmt.Errorf("failed to purge conversations: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Purged %d conversations idle for more than %s\n", n, olderThan)
	return nil
}
