package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ar3ac/jobhunter/internal/review"
)

var reviewLimit int

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Browse stored postings interactively (TUI)",
	Long: "Shows a source picker, then a split-pane view of recent postings " +
		"and of soft-key groups that may be the same job listed more than once.",
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().IntVar(&reviewLimit, "limit", 200, "maximum postings and groups to load")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(profilePath)
	if err != nil {
		fatal(logger, "failed to load profile", err)
	}

	// Any log output while the TUI is up corrupts the display.
	silentLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := openRecordStore(context.Background(), cfg, "", silentLogger)
	if err != nil {
		fatal(logger, "failed to open store", err)
	}
	defer st.Close()

	snap, err := review.RunLoader(cfg.Store.Driver+" store", func(ctx context.Context) (review.Snapshot, error) {
		return review.Load(ctx, st, reviewLimit)
	})
	if err != nil {
		fmt.Printf("Error loading postings: %v\n", err)
		return nil
	}
	if len(snap.Records) == 0 {
		fmt.Println("No stored postings yet. Run `jobhunter run` or `jobhunter batch` first.")
		return nil
	}

	for {
		src, ok, err := review.RunSourcePicker(snap)
		if err != nil {
			fmt.Printf("Picker error: %v\n", err)
			return nil
		}
		if !ok {
			return nil
		}

		wantQuit, err := review.RunReviewTUI(snap, src)
		if err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		if wantQuit {
			return nil
		}
		// else: back to the picker
	}
}
