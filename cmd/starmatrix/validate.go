package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/matrixio"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/projection"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/errors"
)

const kindAuto = "auto"

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check catalog, processed-star and matrix files",
		Long: `Validate inspects each file and prints a report of errors and warnings.
JSON arrays are read as raw catalog records, or as processed stars when the
objects carry projected coordinates. Anything else is decoded as a TSPLIB,
formatted grid or raw matrix. The command fails if any file is invalid.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runValidate,
	}
	cmd.Flags().String("kind", kindAuto, "file kind: auto, records, stars or matrix")
	cmd.Flags().Bool("json", false, "print reports as JSON")
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	kind, _ := cmd.Flags().GetString("kind")
	asJSON, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	var errs []error
	for _, path := range args {
		report, err := validateFile(path, kind)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(struct {
				Path string `json:"path"`
				validator.Report
			}{path, report}); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(out, "== %s\n", path)
			if err := report.Write(out); err != nil {
				return err
			}
		}
		if !report.Valid {
			errs = append(errs, apperrors.Newf(apperrors.ErrInvalidInput, 0, "%s: %d validation errors", path, len(report.Errors)))
		}
	}
	return errors.Join(errs...)
}

// validateFile reads path as kind and validates it. kind "auto" picks the
// kind from the content.
func validateFile(path, kind string) (validator.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return validator.Report{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if kind == kindAuto {
		kind = detectKind(data)
	}

	switch kind {
	case validator.KindRecords:
		records, err := catalog.Decode(bytes.NewReader(data))
		if err != nil {
			return validator.Report{}, fmt.Errorf("%s: %w", path, err)
		}
		return validator.ValidateRecords(records), nil
	case validator.KindStars:
		var stars []projection.Star
		if err := json.Unmarshal(data, &stars); err != nil {
			return validator.Report{}, apperrors.Wrap(apperrors.ErrMalformedFile, err, "%s: decoding stars", path)
		}
		return validator.ValidateStars(stars), nil
	case validator.KindMatrix:
		table, format, err := matrixio.ReadAny(bytes.NewReader(data))
		if err != nil {
			return validator.Report{}, fmt.Errorf("%s: %w", path, err)
		}
		diagonal := float64(matrixio.TSPDiagonal)
		if format == matrixio.FormatGrid {
			diagonal = matrixio.GridDiagonal
		}
		return validator.ValidateMatrix(table, diagonal), nil
	default:
		return validator.Report{}, apperrors.Newf(apperrors.ErrInvalidInput, 0, "unknown kind %q", kind)
	}
}

// detectKind classifies file content. Processed stars are recognised by the
// projected coordinates on their first element.
func detectKind(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return validator.KindMatrix
	}
	var head []map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &head); err != nil || len(head) == 0 {
		return validator.KindRecords
	}
	_, hasX := head[0]["x"]
	_, hasDistance := head[0]["distance"]
	if hasX && hasDistance {
		return validator.KindStars
	}
	return validator.KindRecords
}
