package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	apperrors "github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/errors"
)

// Source produces raw catalog records. limit <= 0 means no limit.
type Source interface {
	Fetch(ctx context.Context, limit int) ([]RawRecord, error)
}

// Decode reads a JSON array of records. A top-level value that is not an
// array is rejected with ErrMalformedFile.
func Decode(r io.Reader) ([]RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, apperrors.New(apperrors.ErrMalformedFile, 0, "catalog must be a JSON array of records")
	}
	var records []RawRecord
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrMalformedFile, err, "parsing catalog JSON")
	}
	return records, nil
}

// LoadFile reads a catalog JSON file.
func LoadFile(path string) ([]RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}
	defer f.Close()
	records, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return records, nil
}

// SaveFile writes records as an indented JSON array.
func SaveFile(path string, records []RawRecord) error {
	if records == nil {
		records = []RawRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling catalog: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("%w: writing catalog %s: %v", apperrors.ErrWriteFailed, path, err)
	}
	return nil
}

// FileSource serves records from a catalog JSON file.
type FileSource struct {
	Path string
}

// Fetch loads the file and truncates to limit when limit > 0.
func (s FileSource) Fetch(_ context.Context, limit int) ([]RawRecord, error) {
	records, err := LoadFile(s.Path)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
