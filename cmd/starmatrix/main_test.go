package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/errors"
)

const sampleCatalog = `[
	{"source_id": 1, "ra": 10, "dec": 20, "parallax": 100, "pmra": 3, "pmdec": 4},
	{"source_id": 2, "ra": 200, "dec": -45, "parallax": 50},
	{"source_id": 3, "ra": 300, "dec": 60, "parallax": 20, "pmra": "bad", "pmdec": 1}
]`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestProcessValidateTour(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "stars.json", sampleCatalog)
	out := filepath.Join(dir, "out")

	stdout, err := execute(t, "process", "--input", input, "--out", out, "--chunk-size", "2")
	require.NoError(t, err)
	assert.Contains(t, stdout, ": ok")
	assert.Contains(t, stdout, "3 valid of 3")

	for _, name := range []string{"best.txt", "stars_3_formatted.txt", "stars_3_raw.txt", "processed_stars.json", "distance_matrix.txt"} {
		assert.FileExists(t, filepath.Join(out, name))
	}

	_, err = execute(t, "validate",
		input,
		filepath.Join(out, "processed_stars.json"),
		filepath.Join(out, "best.txt"),
		filepath.Join(out, "stars_3_formatted.txt"),
		filepath.Join(out, "stars_3_raw.txt"),
	)
	require.NoError(t, err)

	stdout, err = execute(t, "tour", filepath.Join(out, "stars_3_raw.txt"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "length:")
	assert.Regexp(t, `^1 \d \d 1\n`, stdout)

	stdout, err = execute(t, "tour", "--algorithm", "christofides", filepath.Join(out, "stars_3_formatted.txt"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "(christofides, catalog order")

	_, err = execute(t, "tour", "--algorithm", "annealing", filepath.Join(out, "stars_3_raw.txt"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ExitInput, apperrors.ExitCode(err))
}

func TestProcess_SkipsOptionalArtifacts(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "stars.json", sampleCatalog)
	out := filepath.Join(dir, "out")

	_, err := execute(t, "process", "-i", input, "-o", out, "--no-processed", "--no-coordinates")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(out, "processed_stars.json"))
	assert.NoFileExists(t, filepath.Join(out, "distance_matrix.txt"))
	assert.FileExists(t, filepath.Join(out, "best.txt"))
}

func TestProcess_MalformedCatalog(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "stars.json", `{"source_id": 1}`)

	_, err := execute(t, "process", "-i", input, "-o", filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ExitInput, apperrors.ExitCode(err))
}

func TestValidate_InvalidRecords(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "bad.json", `[{"source_id": 1, "ra": 1, "dec": 1}]`)

	stdout, err := execute(t, "validate", input)
	require.Error(t, err)
	assert.Equal(t, apperrors.ExitInput, apperrors.ExitCode(err))
	assert.Contains(t, stdout, "status: INVALID")
	assert.Contains(t, stdout, "missing fields [parallax]")
}

func TestDetectKind(t *testing.T) {
	assert.Equal(t, validator.KindMatrix, detectKind([]byte("NAME: x\nTYPE: TSP\n")))
	assert.Equal(t, validator.KindRecords, detectKind([]byte(`[{"source_id": 1, "ra": 2}]`)))
	assert.Equal(t, validator.KindRecords, detectKind([]byte(`[5, {"x": 1}]`)))
	assert.Equal(t, validator.KindStars, detectKind([]byte(` [{"source_id": 1, "distance": 2, "x": 1}]`)))
}

func TestFormatTour(t *testing.T) {
	assert.Equal(t, "1 3 2 1", formatTour([]int{0, 2, 1, 0}))
}
