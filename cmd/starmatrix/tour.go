package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/matrixio"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/tour"
	apperrors "github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/errors"
)

func tourCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tour FILE",
		Short: "Find a short closed tour through a distance matrix file",
		Long: `Tour decodes a TSPLIB, formatted grid or raw matrix file and finds a
short closed tour from star 1. The 2opt algorithm improves the catalog-order
ring; christofides builds an approximate tour and polishes it with 2-opt.
Stars are printed 1-based in visiting order, followed by the tour length.`,
		Args: cobra.ExactArgs(1),
		RunE: runTour,
	}
	cmd.Flags().String("algorithm", string(tour.TwoOpt), "tour algorithm: 2opt or christofides")
	cmd.Flags().Int("max-iters", 0, "maximum accepted 2-opt moves (0: until no move improves)")
	cmd.Flags().Float64("eps", 1e-9, "minimum improvement for a 2-opt move")
	cmd.Flags().Bool("json", false, "print the tour as JSON")
	return cmd
}

func runTour(cmd *cobra.Command, args []string) error {
	algo, _ := cmd.Flags().GetString("algorithm")
	maxIters, _ := cmd.Flags().GetInt("max-iters")
	eps, _ := cmd.Flags().GetFloat64("eps")
	asJSON, _ := cmd.Flags().GetBool("json")
	if maxIters < 0 {
		return apperrors.Newf(apperrors.ErrInvalidInput, 0, "--max-iters must not be negative, got %d", maxIters)
	}
	if eps < 0 {
		return apperrors.Newf(apperrors.ErrInvalidInput, 0, "--eps must not be negative, got %v", eps)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}
	defer f.Close()

	table, format, err := matrixio.ReadAny(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	res, err := tour.Solve(table, tour.Options{Algorithm: tour.Algorithm(algo), MaxIters: maxIters, Eps: eps})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, err, "%s", args[0])
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Format matrixio.Format `json:"format"`
			tour.Result
		}{format, res})
	}
	fmt.Fprintln(out, formatTour(res.Order))
	fmt.Fprintf(out, "length: %s (%s, catalog order %s)\n",
		strconv.FormatFloat(res.Length, 'f', 6, 64),
		res.Algorithm,
		strconv.FormatFloat(res.InitialLen, 'f', 6, 64),
	)
	return nil
}

// formatTour renders a 0-based tour as 1-based star numbers.
func formatTour(order []int) string {
	parts := make([]string, len(order))
	for i, v := range order {
		parts[i] = strconv.Itoa(v + 1)
	}
	return strings.Join(parts, " ")
}
