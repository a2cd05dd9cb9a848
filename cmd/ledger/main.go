package main

import (
	"log"
	"os"

	"photocurator/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	cfg := config.Load()
	var dbPath string

	rootCmd := &cobra.Command{
		Use:   "ledger",
		Short: "inspect and edit the photo suggestion ledger",
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "dbPath", cfg.DBPath, "sqlite3 ledger database")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "show ledger counters",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if err := withLedger(dbPath, func(l *ledger) error { return l.stats(os.Stdout) }); err != nil {
				log.Fatal(err)
			}
		},
	}
	rootCmd.AddCommand(statsCmd)

	approveCmd := &cobra.Command{
		Use:   "approve file1 [file2...]",
		Short: "mark suggested photos as approved (files are not moved)",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := withLedger(dbPath, func(l *ledger) error { return l.decide(os.Stdout, args, true) }); err != nil {
				log.Fatal(err)
			}
		},
	}
	rootCmd.AddCommand(approveCmd)

	skipCmd := &cobra.Command{
		Use:   "skip file1 [file2...]",
		Short: "mark suggested photos as skipped",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := withLedger(dbPath, func(l *ledger) error { return l.decide(os.Stdout, args, false) }); err != nil {
				log.Fatal(err)
			}
		},
	}
	rootCmd.AddCommand(skipCmd)

	backfillCmd := &cobra.Command{
		Use:   "backfill dir1 [dir2...]",
		Short: "mark every photo already in a directory as approved",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 0 {
				args = append(args, cfg.PostedFolder)
			}

			err := withLedger(dbPath, func(l *ledger) error {
				for _, dir := range args {
					if err := l.backfill(os.Stdout, dir); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				log.Fatal(err)
			}
		},
	}
	rootCmd.AddCommand(backfillCmd)

	var limit int
	unprocessedCmd := &cobra.Command{
		Use:   "unprocessed [dir]",
		Short: "list photos that are neither approved nor skipped",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			dir := cfg.PhotosFolder
			if len(args) == 1 {
				dir = args[0]
			}

			if err := withLedger(dbPath, func(l *ledger) error { return l.unprocessed(os.Stdout, dir, limit) }); err != nil {
				log.Fatal(err)
			}
		},
	}
	unprocessedCmd.Flags().IntVarP(&limit, "limit", "n", 0, "max photos to list (0 = all)")
	rootCmd.AddCommand(unprocessedCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
