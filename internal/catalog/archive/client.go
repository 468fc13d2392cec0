// Package archive queries the Gaia TAP service for nearby, well-measured
// stars. Each fetch is a single synchronous ADQL request bounded by the
// configured timeout; there is no retry or pagination.
package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/resilience"
)

// Columns selected by every catalog query.
var Columns = []string{
	catalog.ColSourceID,
	catalog.ColRA,
	catalog.ColDec,
	catalog.ColParallax,
	catalog.ColPMRA,
	catalog.ColPMDec,
	"phot_g_mean_mag",
	"bp_rp",
}

// Client talks to a TAP sync endpoint.
type Client struct {
	cfg     config.ArchiveConfig
	http    *http.Client
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Client. A nil httpClient uses http.DefaultClient; m may be
// nil.
func New(cfg config.ArchiveConfig, httpClient *http.Client, m *metrics.Metrics) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		cfg:     cfg,
		http:    httpClient,
		metrics: m,
		logger:  slog.Default().With("component", "archive"),
	}
}

func (c *Client) limit(limit int) int {
	if limit <= 0 {
		return c.cfg.Limit
	}
	return limit
}

// Query returns the ADQL statement for a fetch of limit stars, nearest
// first.
func (c *Client) Query(limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT TOP %d %s FROM %s", c.limit(limit), strings.Join(Columns, ", "), c.cfg.Table)
	b.WriteString(" WHERE parallax > 0")
	fmt.Fprintf(&b, " AND parallax_error/parallax < %s", strconv.FormatFloat(c.cfg.MaxRelError, 'g', -1, 64))
	b.WriteString(" AND phot_g_mean_mag IS NOT NULL")
	fmt.Fprintf(&b, " AND phot_g_mean_mag < %s", strconv.FormatFloat(c.cfg.MaxGMag, 'g', -1, 64))
	b.WriteString(" ORDER BY parallax DESC")
	return b.String()
}

// CacheKey identifies the record set a fetch of limit stars returns.
func (c *Client) CacheKey(limit int) string {
	hash := sha256.Sum256([]byte(c.cfg.URL + "\n" + c.Query(limit)))
	return fmt.Sprintf("%x", hash[:16])
}

// tapResult is the TAP JSON output: column metadata plus positional rows.
type tapResult struct {
	Metadata []struct {
		Name string `json:"name"`
	} `json:"metadata"`
	Data [][]any `json:"data"`
}

// Fetch runs the catalog query and converts each row into a RawRecord.
func (c *Client) Fetch(ctx context.Context, limit int) ([]catalog.RawRecord, error) {
	start := time.Now()
	records, err := resilience.Bound(ctx, c.cfg.Timeout, "archive fetch", func(ctx context.Context) ([]catalog.RawRecord, error) {
		return c.run(ctx, c.Query(limit))
	})
	status := "ok"
	switch {
	case resilience.IsTimeout(err):
		status = "timeout"
	case err != nil:
		status = "error"
	}
	if c.metrics != nil {
		c.metrics.ArchiveFetchDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, err
	}
	c.logger.Info("archive fetch complete",
		"records", len(records),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return records, nil
}

// Ping checks that the service answers a one-row query.
func (c *Client) Ping(ctx context.Context) error {
	query := fmt.Sprintf("SELECT TOP 1 %s FROM %s WHERE parallax > 0", catalog.ColSourceID, c.cfg.Table)
	return resilience.Do(ctx, c.cfg.Timeout, "archive ping", func(ctx context.Context) error {
		records, err := c.run(ctx, query)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return apperrors.New(apperrors.ErrArchiveUnavailable, 0, "ping returned no rows")
		}
		return nil
	})
}

func (c *Client) run(ctx context.Context, query string) ([]catalog.RawRecord, error) {
	form := url.Values{
		"REQUEST": {"doQuery"},
		"LANG":    {"ADQL"},
		"FORMAT":  {"json"},
		"QUERY":   {query},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building archive request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("archive query", "query", query)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrArchiveUnavailable, err, "requesting %s", c.cfg.URL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrArchiveUnavailable, resp.StatusCode, "reading response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.Newf(apperrors.ErrArchiveUnavailable, resp.StatusCode,
			"archive returned %d: %s", resp.StatusCode, snippet(body))
	}
	return decodeResult(body)
}

func decodeResult(body []byte) ([]catalog.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var result tapResult
	if err := dec.Decode(&result); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrMalformedFile, err, "decoding archive response")
	}

	records := make([]catalog.RawRecord, 0, len(result.Data))
	for i, row := range result.Data {
		if len(row) != len(result.Metadata) {
			return nil, apperrors.Newf(apperrors.ErrMalformedFile, 0,
				"row %d has %d values for %d columns", i, len(row), len(result.Metadata))
		}
		fields := make(map[string]any, len(row))
		for j, col := range result.Metadata {
			fields[col.Name] = row[j]
		}
		records = append(records, catalog.RecordFromMap(fields))
	}
	return records, nil
}

func snippet(body []byte) string {
	const maxSnippet = 200
	s := strings.TrimSpace(string(body))
	if len(s) > maxSnippet {
		return s[:maxSnippet] + "..."
	}
	return s
}
