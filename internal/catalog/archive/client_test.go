package archive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/metrics"
)

const tapBody = `{
  "metadata": [
    {"name": "source_id"}, {"name": "ra"}, {"name": "dec"}, {"name": "parallax"},
    {"name": "pmra"}, {"name": "pmdec"}, {"name": "phot_g_mean_mag"}, {"name": "bp_rp"}
  ],
  "data": [
    [5853498713190525696, 217.39, -62.67, 768.07, -3781.3, 769.7, 8.98, 3.8],
    [4472832130942575872, 269.45, 4.74, 546.98, null, null, 8.19, 2.8]
  ]
}`

func testConfig(url string) config.ArchiveConfig {
	cfg := config.Default().Archive
	cfg.URL = url
	cfg.Timeout = 2 * time.Second
	return cfg
}

func TestQuery(t *testing.T) {
	c := New(testConfig("http://unused"), nil, nil)
	q := c.Query(100)
	assert.True(t, strings.HasPrefix(q, "SELECT TOP 100 source_id, ra, dec, parallax, pmra, pmdec, phot_g_mean_mag, bp_rp FROM gaiadr3.gaia_source"))
	assert.Contains(t, q, "WHERE parallax > 0")
	assert.Contains(t, q, "parallax_error/parallax < 0.3")
	assert.Contains(t, q, "phot_g_mean_mag < 20")
	assert.True(t, strings.HasSuffix(q, "ORDER BY parallax DESC"))

	assert.Contains(t, c.Query(0), "TOP 1000 ")
	assert.NotEqual(t, c.CacheKey(10), c.CacheKey(20))
	assert.Equal(t, c.CacheKey(10), c.CacheKey(10))
}

func TestFetch_DecodesRows(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotForm = map[string]string{
			"REQUEST": r.PostForm.Get("REQUEST"),
			"LANG":    r.PostForm.Get("LANG"),
			"FORMAT":  r.PostForm.Get("FORMAT"),
			"QUERY":   r.PostForm.Get("QUERY"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(tapBody))
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	c := New(testConfig(srv.URL), srv.Client(), m)

	records, err := c.Fetch(t.Context(), 2)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "doQuery", gotForm["REQUEST"])
	assert.Equal(t, "ADQL", gotForm["LANG"])
	assert.Equal(t, "json", gotForm["FORMAT"])
	assert.Contains(t, gotForm["QUERY"], "TOP 2 ")

	id, err := records[1].SourceID.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(4472832130942575872), id)
	parallax, err := records[0].Parallax.Float()
	require.NoError(t, err)
	assert.Equal(t, 768.07, parallax)
	assert.True(t, records[1].PMRA.Present())
	assert.Nil(t, records[1].PMRA.Raw())
	assert.Contains(t, records[0].Extra, "bp_rp")

	assert.Equal(t, 1, testutil.CollectAndCount(m.ArchiveFetchDuration))
}

func TestFetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(testConfig(srv.URL), srv.Client(), nil).Fetch(t.Context(), 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrArchiveUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.StatusOf(err))
}

func TestFetch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"metadata":[{"name":"ra"}],"data":[[1, 2]]}`))
	}))
	defer srv.Close()

	_, err := New(testConfig(srv.URL), srv.Client(), nil).Fetch(t.Context(), 5)
	assert.ErrorIs(t, err, apperrors.ErrMalformedFile)
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := testConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	_, err := New(cfg, srv.Client(), nil).Fetch(context.Background(), 5)
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		assert.Contains(t, r.PostForm.Get("QUERY"), "TOP 1 ")
		w.Write([]byte(`{"metadata":[{"name":"source_id"}],"data":[[1]]}`))
	}))
	defer srv.Close()
	assert.NoError(t, New(testConfig(srv.URL), srv.Client(), nil).Ping(t.Context()))

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"metadata":[{"name":"source_id"}],"data":[]}`))
	}))
	defer empty.Close()
	assert.ErrorIs(t, New(testConfig(empty.URL), empty.Client(), nil).Ping(t.Context()), apperrors.ErrArchiveUnavailable)
}
