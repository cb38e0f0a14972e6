package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gosuda/frontdesk/internal/changefeed"
	"github.com/gosuda/frontdesk/internal/config"
	"github.com/gosuda/frontdesk/internal/escalation"
)

// exitSweepFailed distinguishes a failed sweep from a usage error.
const exitSweepFailed = 2

var ( //nolint:gochecknoglobals // cobra flags
	sweepThresholdMinutes int
	sweepDryRun           bool
)

func init() { //nolint:gochecknoinits // cobra registration
	sweepCmd.Flags().IntVar(&sweepThresholdMinutes, "threshold", 0, "minutes a request may stay PENDING (default FRONTDESK_SWEEP_THRESHOLD)")
	sweepCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "report candidates without changing them")
	rootCmd.AddCommand(sweepCmd)
}

var sweepCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command
	Use:   "sweep",
	Short: "Mark PENDING requests older than the threshold as UNRESOLVED",
	RunE:  runSweep,
}

func runSweep(cmd *cobra.Command, _ []string) error {
	fail := func(err error) error { return &exitError{code: exitSweepFailed, err: err} }

	cfg, err := config.Load()
	if err != nil {
		return fail(err)
	}

	threshold := cfg.Sweep.Threshold
	if cmd.Flags().Changed("threshold") {
		if sweepThresholdMinutes <= 0 {
			return fail(fmt.Errorf("--threshold must be a positive number of minutes, got %d", sweepThresholdMinutes))
		}
		threshold = time.Duration(sweepThresholdMinutes) * time.Minute
	}

	ctx := cmd.Context()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	defer store.Close()

	transport, closeTransport, err := openTransport(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	defer closeTransport()

	res, err := newSweeper(cfg, store, changefeed.NewFeed(transport)).Sweep(ctx, threshold, sweepDryRun)
	if err != nil {
		return fail(err)
	}

	out := cmd.OutOrStdout()
	switch res.Outcome() {
	case escalation.OutcomeNoCandidates:
		fmt.Fprintf(out, "no pending requests older than %s\n", threshold)
	case escalation.OutcomeDryRun:
		fmt.Fprintf(out, "dry run: %d request(s) would be marked UNRESOLVED (%s)\n", len(res.Candidates), res.Reason)
		for _, req := range res.Candidates {
			fmt.Fprintf(out, "  %s  %s  %q\n", req.ID, req.CreatedAt.Format(time.RFC3339), req.QuestionText)
		}
	case escalation.OutcomeApplied:
		fmt.Fprintf(out, "marked %d of %d request(s) UNRESOLVED (%s)\n", len(res.Updated), len(res.Candidates), res.Reason)
	}
	return nil
}
