package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/pipeline"
	apperrors "github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/errors"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List pipeline runs recorded in the PostgreSQL ledger",
		Args:  cobra.NoArgs,
		RunE:  runRuns,
	}
	cmd.Flags().IntP("limit", "n", 20, "number of runs to list")
	cmd.Flags().Bool("latest", false, "show only the most recent run in full")
	cmd.Flags().Bool("json", false, "print runs as JSON")
	return cmd
}

func runRuns(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return apperrors.Newf(apperrors.ErrInvalidInput, 0, "--limit must be positive, got %d", limit)
	}

	var cl closers
	defer cl.Close()
	store, err := openLedger(ctx, &cl)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if latest, _ := cmd.Flags().GetBool("latest"); latest {
		run, err := store.LatestRun(ctx)
		if err != nil {
			return err
		}
		return printSummary(out, *run, true)
	}

	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if runs == nil {
			runs = []pipeline.Summary{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tFINISHED\tSTATUS\tVALID\tTOTAL\tDIMENSION\tSOURCE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.RunID, r.FinishedAt.Format("2006-01-02 15:04:05"), r.Status,
			r.Valid, r.Total, r.Dimension, r.Source)
	}
	return tw.Flush()
}
