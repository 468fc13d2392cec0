// Package catalog defines the raw astronomical catalog record as it arrives
// from a source (archive query, JSON file, Kafka batch) together with the
// loose numeric coercion rules applied to its fields. No validation happens
// here; records are accepted exactly as the source produced them.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Column names used by the Gaia archive and by catalog JSON files.
const (
	ColSourceID = "source_id"
	ColRA       = "ra"
	ColDec      = "dec"
	ColParallax = "parallax"
	ColPMRA     = "pmra"
	ColPMDec    = "pmdec"
)

// aliases maps alternative spellings onto canonical column names.
var aliases = map[string]string{
	"id":    ColSourceID,
	"pmRA":  ColPMRA,
	"pmDec": ColPMDec,
}

var (
	// ErrMissing is returned when a field was not supplied at all.
	ErrMissing = errors.New("field missing")
	// ErrNotNumeric is returned when a field cannot be coerced to a number.
	ErrNotNumeric = errors.New("field not numeric")
)

// Field is a single loosely typed catalog value. The zero Field is absent.
type Field struct {
	value   any
	present bool
}

// Value wraps v as a present field. v may be a json.Number, a string, any Go
// numeric type, or nil (present but null).
func Value(v any) Field {
	return Field{value: v, present: true}
}

// Present reports whether the source supplied the field, even as null.
func (f Field) Present() bool {
	return f.present
}

// Raw returns the value as supplied.
func (f Field) Raw() any {
	return f.value
}

// Float coerces the field to float64. Numeric strings are accepted after
// trimming surrounding whitespace; null, booleans and other types are not.
func (f Field) Float() (float64, error) {
	if !f.present {
		return 0, ErrMissing
	}
	switch v := f.value.(type) {
	case json.Number:
		return parseFloat(string(v))
	case string:
		return parseFloat(v)
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrNotNumeric, f.value)
	}
}

// Int coerces the field to int64 without going through float64, so 64-bit
// catalog identifiers keep their precision.
func (f Field) Int() (int64, error) {
	if !f.present {
		return 0, ErrMissing
	}
	switch v := f.value.(type) {
	case json.Number:
		return parseInt(string(v))
	case string:
		return parseInt(v)
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		if !integral(v) {
			return 0, fmt.Errorf("%w: %v is not an int64", ErrNotNumeric, v)
		}
		return int64(v), nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrNotNumeric, f.value)
	}
}

// String renders the raw value for diagnostics.
func (f Field) String() string {
	if !f.present {
		return "<missing>"
	}
	if f.value == nil {
		return "null"
	}
	return fmt.Sprint(f.value)
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotNumeric, s)
	}
	return v, nil
}

func parseInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !integral(f) {
		return 0, fmt.Errorf("%w: %q", ErrNotNumeric, s)
	}
	return int64(f), nil
}

// integral reports whether f is a whole number that int64 can hold. The
// upper bound is exclusive because 2^63 itself is representable as float64
// but not as int64.
func integral(f float64) bool {
	return f == math.Trunc(f) && f >= -(1<<63) && f < 1<<63
}

// RawRecord is one catalog row. Malformed is set when the source element was
// not an object at all.
type RawRecord struct {
	SourceID  Field
	RA        Field
	Dec       Field
	Parallax  Field
	PMRA      Field
	PMDec     Field
	Extra     map[string]any
	Malformed bool
}

// RecordFromMap builds a RawRecord from decoded key/value pairs. Unknown keys
// are kept in Extra. An alias shadowed by its canonical key is kept in Extra
// under the alias.
func RecordFromMap(m map[string]any) RawRecord {
	var rec RawRecord
	for key, v := range m {
		if canonical, ok := aliases[key]; ok {
			if _, shadowed := m[canonical]; !shadowed {
				key = canonical
			}
		}
		switch key {
		case ColSourceID:
			rec.SourceID = Value(v)
		case ColRA:
			rec.RA = Value(v)
		case ColDec:
			rec.Dec = Value(v)
		case ColParallax:
			rec.Parallax = Value(v)
		case ColPMRA:
			rec.PMRA = Value(v)
		case ColPMDec:
			rec.PMDec = Value(v)
		default:
			if rec.Extra == nil {
				rec.Extra = make(map[string]any)
			}
			rec.Extra[key] = v
		}
	}
	return rec
}

// Map flattens the record back into key/value pairs, omitting absent fields.
func (r RawRecord) Map() map[string]any {
	m := make(map[string]any, 6+len(r.Extra))
	for k, v := range r.Extra {
		m[k] = v
	}
	put := func(key string, f Field) {
		if f.present {
			m[key] = f.value
		}
	}
	put(ColSourceID, r.SourceID)
	put(ColRA, r.RA)
	put(ColDec, r.Dec)
	put(ColParallax, r.Parallax)
	put(ColPMRA, r.PMRA)
	put(ColPMDec, r.PMDec)
	return m
}

// UnmarshalJSON accepts any JSON value. Objects populate the fields; anything
// else yields a Malformed record instead of failing the whole batch.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		*r = RawRecord{Malformed: true}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return err
	}
	*r = RecordFromMap(m)
	return nil
}

// MarshalJSON writes the record as a flat object. Malformed records encode
// as null.
func (r RawRecord) MarshalJSON() ([]byte, error) {
	if r.Malformed {
		return []byte("null"), nil
	}
	return json.Marshal(r.Map())
}
