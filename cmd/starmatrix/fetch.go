package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/catalog"
	apperrors "github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/errors"
)

func fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download nearby stars from the Gaia archive into a catalog file",
		Long: `Fetch runs the catalog query against the configured TAP endpoint and saves the
records as a JSON array that process --input accepts. Results go through the
configured record cache.`,
		Args: cobra.NoArgs,
		RunE: runFetch,
	}
	cmd.Flags().IntP("limit", "n", 0, "number of stars to request (default: archive.limit)")
	cmd.Flags().StringP("out", "o", "stars.json", "catalog file to write")
	cmd.Flags().Bool("print-query", false, "print the ADQL query and exit")
	cmd.Flags().Bool("refresh", false, "drop cached archive results before fetching")
	return cmd
}

func runFetch(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	out, _ := cmd.Flags().GetString("out")
	if limit < 0 {
		return apperrors.Newf(apperrors.ErrInvalidInput, 0, "--limit must not be negative, got %d", limit)
	}
	if only, _ := cmd.Flags().GetBool("print-query"); only {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), newArchiveClient(nil).Query(limit))
		return err
	}

	var cl closers
	defer cl.Close()

	refresh, _ := cmd.Flags().GetBool("refresh")
	src, err := openArchive(cmd.Context(), processMetrics(), refresh, &cl)
	if err != nil {
		return err
	}
	records, err := fetchRecords(cmd.Context(), src, limit)
	if err != nil {
		return err
	}
	if err := catalog.SaveFile(out, records); err != nil {
		return err
	}
	slog.Info("catalog saved", "path", out, "records", len(records))
	fmt.Fprintf(cmd.OutOrStdout(), "%d records written to %s\n", len(records), out)
	return nil
}
