package matrixio

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	apperrors "github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/errors"
)

// Format identifies one of the encoded matrix layouts.
type Format string

const (
	FormatTSP  Format = "tsp"
	FormatGrid Format = "grid"
	FormatRaw  Format = "raw"
)

const maxLineSize = 64 << 20

// Table is a decoded square matrix in row-major order. Diagonal cells hold
// whatever the file carried (0 for TSP and raw, -1 for the grid).
type Table struct {
	N     int
	Cells []float64
}

// Len returns the table dimension.
func (t *Table) Len() int {
	return t.N
}

// Value returns cell (i, j).
func (t *Table) Value(i, j int) float64 {
	return t.Cells[i*t.N+j]
}

func malformed(format Format, msg string, args ...any) error {
	return apperrors.Newf(apperrors.ErrMalformedFile, 0, "%s: %s", format, fmt.Sprintf(msg, args...))
}

// ReadTSP decodes a TSPLIB explicit full matrix.
func ReadTSP(r io.Reader) (*Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	n := -1
	inSection := false
	for !inSection && sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "EDGE_WEIGHT_SECTION" {
			inSection = true
			break
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, malformed(FormatTSP, "unexpected header line %q", line)
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		switch key {
		case "DIMENSION":
			d, err := strconv.Atoi(value)
			if err != nil || d < 0 {
				return nil, malformed(FormatTSP, "bad DIMENSION %q", value)
			}
			n = d
		case "EDGE_WEIGHT_TYPE":
			if value != "EXPLICIT" {
				return nil, malformed(FormatTSP, "unsupported EDGE_WEIGHT_TYPE %q", value)
			}
		case "EDGE_WEIGHT_FORMAT":
			if value != "FULL_MATRIX" {
				return nil, malformed(FormatTSP, "unsupported EDGE_WEIGHT_FORMAT %q", value)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading tsp: %w", err)
	}
	if !inSection {
		return nil, malformed(FormatTSP, "missing EDGE_WEIGHT_SECTION")
	}
	if n < 0 {
		return nil, malformed(FormatTSP, "missing DIMENSION")
	}

	t := &Table{N: n, Cells: make([]float64, 0, n*n)}
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "EOF" {
			if len(t.Cells) != n*n {
				return nil, malformed(FormatTSP, "got %d weights, want %d", len(t.Cells), n*n)
			}
			return t, nil
		}
		for _, field := range strings.Fields(line) {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, malformed(FormatTSP, "bad weight %q", field)
			}
			t.Cells = append(t.Cells, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading tsp: %w", err)
	}
	return nil, malformed(FormatTSP, "missing EOF")
}

// ReadGrid decodes the formatted integer grid. Values may be separated by
// commas, whitespace or both.
func ReadGrid(r io.Reader) (*Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	sc.Split(scanNumbers)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("reading grid: %w", err)
		}
		return nil, malformed(FormatGrid, "empty input")
	}
	n, err := strconv.Atoi(sc.Text())
	if err != nil || n < 0 {
		return nil, malformed(FormatGrid, "bad dimension %q", sc.Text())
	}

	t := &Table{N: n, Cells: make([]float64, 0, n*n)}
	for len(t.Cells) < n*n && sc.Scan() {
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, malformed(FormatGrid, "bad value %q", sc.Text())
		}
		t.Cells = append(t.Cells, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading grid: %w", err)
	}
	if len(t.Cells) != n*n {
		return nil, malformed(FormatGrid, "got %d values, want %d", len(t.Cells), n*n)
	}
	return t, nil
}

// scanNumbers is a bufio.SplitFunc yielding tokens separated by commas or
// whitespace.
func scanNumbers(data []byte, atEOF bool) (int, []byte, error) {
	isSep := func(b byte) bool {
		return b == ',' || unicode.IsSpace(rune(b))
	}
	start := 0
	for start < len(data) && isSep(data[start]) {
		start++
	}
	for i := start; i < len(data); i++ {
		if isSep(data[i]) {
			return i + 1, data[start:i], nil
		}
	}
	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

// ReadRaw decodes the annotated raw grid. The dimension is taken from the
// first data row and every row must match it.
func ReadRaw(r io.Reader) (*Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	t := &Table{}
	rows := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if rows == 0 {
			t.N = len(fields)
			t.Cells = make([]float64, 0, t.N*t.N)
		}
		if len(fields) != t.N {
			return nil, malformed(FormatRaw, "row %d has %d values, want %d", rows, len(fields), t.N)
		}
		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, malformed(FormatRaw, "bad value %q", field)
			}
			t.Cells = append(t.Cells, v)
		}
		rows++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading raw: %w", err)
	}
	if rows != t.N {
		return nil, malformed(FormatRaw, "got %d rows, want %d", rows, t.N)
	}
	return t, nil
}

// Detect guesses the format from the first non-blank line.
func Detect(head []byte) (Format, error) {
	for _, line := range bytes.Split(head, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		switch {
		case line[0] == '#':
			return FormatRaw, nil
		case bytes.Contains(line, []byte(":")):
			return FormatTSP, nil
		case line[0] >= '0' && line[0] <= '9':
			return FormatGrid, nil
		default:
			return "", malformed("unknown", "unrecognised first line %q", line)
		}
	}
	return "", malformed("unknown", "empty input")
}

// ReadAny detects the format and decodes accordingly.
func ReadAny(r io.Reader) (*Table, Format, error) {
	br := bufio.NewReaderSize(r, 4096)
	head, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, "", fmt.Errorf("reading header: %w", err)
	}
	format, err := Detect(head)
	if err != nil {
		return nil, "", err
	}
	var t *Table
	switch format {
	case FormatTSP:
		t, err = ReadTSP(br)
	case FormatGrid:
		t, err = ReadGrid(br)
	default:
		t, err = ReadRaw(br)
	}
	if err != nil {
		return nil, "", err
	}
	return t, format, nil
}
