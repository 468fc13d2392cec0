package catalog

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestField_Float(t *testing.T) {
	tests := []struct {
		name    string
		field   Field
		want    float64
		wantErr error
	}{
		{"json number", Value(json.Number("12.5")), 12.5, nil},
		{"numeric string", Value(" 3.25 "), 3.25, nil},
		{"float64", Value(-4.0), -4, nil},
		{"int", Value(7), 7, nil},
		{"missing", Field{}, 0, ErrMissing},
		{"null", Value(nil), 0, ErrNotNumeric},
		{"bad string", Value("bad"), 0, ErrNotNumeric},
		{"bool", Value(true), 0, ErrNotNumeric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.field.Float()
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestField_IntKeepsPrecision(t *testing.T) {
	// Gaia DR3 identifiers exceed 2^53.
	got, err := Value(json.Number("4472832130942575872")).Int()
	require.NoError(t, err)
	assert.Equal(t, int64(4472832130942575872), got)

	got, err = Value("42").Int()
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)

	_, err = Value(1.5).Int()
	assert.ErrorIs(t, err, ErrNotNumeric)
}

func TestField_IntOutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		field Field
	}{
		{"huge float", Value(1e300)},
		{"huge negative float", Value(-1e300)},
		{"two to the 63", Value(float64(1 << 63))},
		{"huge float string", Value("1e300")},
		{"huge json number", Value(json.Number("1e300"))},
		{"int64 overflow string", Value("9223372036854775808")},
		{"nan", Value(math.NaN())},
		{"inf string", Value("Inf")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.field.Int()
			assert.ErrorIs(t, err, ErrNotNumeric)
		})
	}

	got, err := Value(float64(-1 << 63)).Int()
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), got)

	got, err = Value("1e3").Int()
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got)
}

func TestRawRecord_UnmarshalJSON(t *testing.T) {
	var rec RawRecord
	body := `{"source_id": 1, "ra": "10.5", "dec": -3, "parallax": 5, "pmra": "bad", "phot_g_mean_mag": 12.1}`
	require.NoError(t, json.Unmarshal([]byte(body), &rec))

	assert.False(t, rec.Malformed)
	id, err := rec.SourceID.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	ra, err := rec.RA.Float()
	require.NoError(t, err)
	assert.Equal(t, 10.5, ra)
	assert.True(t, rec.PMRA.Present())
	assert.False(t, rec.PMDec.Present())
	assert.Contains(t, rec.Extra, "phot_g_mean_mag")
}

func TestRawRecord_Aliases(t *testing.T) {
	var rec RawRecord
	require.NoError(t, json.Unmarshal([]byte(`{"id": 9, "pmRA": 1, "pmDec": 2}`), &rec))
	assert.True(t, rec.SourceID.Present())
	assert.True(t, rec.PMRA.Present())
	assert.True(t, rec.PMDec.Present())
}

func TestRecordFromMap_CanonicalKeyWins(t *testing.T) {
	// map iteration order is random, so repeat to hit both orders
	for range 50 {
		rec := RecordFromMap(map[string]any{
			"id":        json.Number("1"),
			"source_id": json.Number("2"),
			"pmRA":      json.Number("10"),
			"pmra":      json.Number("20"),
			"pmDec":     json.Number("30"),
		})
		id, err := rec.SourceID.Int()
		require.NoError(t, err)
		assert.Equal(t, int64(2), id)

		pmra, err := rec.PMRA.Float()
		require.NoError(t, err)
		assert.Equal(t, 20.0, pmra)

		pmdec, err := rec.PMDec.Float()
		require.NoError(t, err)
		assert.Equal(t, 30.0, pmdec, "unshadowed alias still maps")

		assert.Equal(t, json.Number("1"), rec.Extra["id"])
		assert.Equal(t, json.Number("10"), rec.Extra["pmRA"])
	}
}

func TestRawRecord_NonObjectIsMalformed(t *testing.T) {
	var records []RawRecord
	require.NoError(t, json.Unmarshal([]byte(`[5, "x", null, {"ra": 1}]`), &records))
	require.Len(t, records, 4)
	assert.True(t, records[0].Malformed)
	assert.True(t, records[1].Malformed)
	assert.True(t, records[2].Malformed)
	assert.False(t, records[3].Malformed)
}

func TestRawRecord_MarshalRoundTrip(t *testing.T) {
	var rec RawRecord
	require.NoError(t, json.Unmarshal([]byte(`{"source_id": 4472832130942575872, "ra": 1.25, "parallax": null}`), &rec))

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var back RawRecord
	require.NoError(t, json.Unmarshal(data, &back))
	id, err := back.SourceID.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(4472832130942575872), id)
	assert.True(t, back.Parallax.Present())
	assert.Nil(t, back.Parallax.Raw())
}

func TestDecode_RejectsNonArray(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"source_id": 1}`))
	assert.ErrorIs(t, err, apperrors.ErrMalformedFile)

	_, err = Decode(strings.NewReader(`[{"source_id": 1`))
	assert.ErrorIs(t, err, apperrors.ErrMalformedFile)
}

func TestFileSource_FetchWithLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stars.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"source_id":1},{"source_id":2},{"source_id":3}]`), 0o644))

	records, err := FileSource{Path: path}.Fetch(t.Context(), 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = FileSource{Path: path}.Fetch(t.Context(), 0)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestSaveFile_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	in := []RawRecord{RecordFromMap(map[string]any{"source_id": json.Number("7"), "ra": json.Number("1.5")})}
	require.NoError(t, SaveFile(path, in))

	out, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, out, 1)
	ra, err := out[0].RA.Float()
	require.NoError(t, err)
	assert.Equal(t, 1.5, ra)
}
