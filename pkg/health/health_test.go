package health

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func up(context.Context) error   { return nil }
func fail(context.Context) error { return errors.New("connection refused") }

func TestChecker_Run(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{"no checks", nil, StatusUp},
		{"all up", map[string]Check{"a": FromPing(up, false), "b": FromPing(up, true)}, StatusUp},
		{"optional down", map[string]Check{"a": FromPing(up, false), "redis": FromPing(fail, true)}, StatusDegraded},
		{"required down", map[string]Check{"redis": FromPing(fail, true), "archive": FromPing(fail, false)}, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker(DefaultTimeout)
			for name, check := range tt.checks {
				c.Register(name, check)
			}
			report := c.Run(context.Background())
			assert.Equal(t, tt.want, report.Status)
			assert.Len(t, report.Components, len(tt.checks))
		})
	}
}

func TestChecker_TimeoutAndReplace(t *testing.T) {
	c := NewChecker(20 * time.Millisecond)
	c.Register("slow", FromPing(up, false))
	c.Register("slow", FromPing(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, false))

	report := c.Run(context.Background())
	require.Len(t, report.Components, 1)
	assert.Equal(t, StatusDown, report.Status)
	assert.Contains(t, report.Components["slow"].Message, "deadline exceeded")
}

func TestWritableDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	got := WritableDir(dir)(context.Background())
	assert.Equal(t, StatusUp, got.Status)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	got = WritableDir(filepath.Join(file, "sub"))(context.Background())
	assert.Equal(t, StatusDown, got.Status)
	assert.NotEmpty(t, got.Message)
}

func TestReport_Write(t *testing.T) {
	r := Report{
		Status: StatusDegraded,
		Components: map[string]ComponentHealth{
			"redis":  {Status: StatusDegraded, Message: "refused", Latency: "1ms"},
			"output": {Status: StatusUp, Latency: "0s"},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, r.Write(&buf))
	assert.Equal(t,
		"status: degraded\n"+
			"  output     up        0s\n"+
			"  redis      degraded  1ms  refused\n",
		buf.String())
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker(DefaultTimeout)
	c.Register("archive", FromPing(fail, false))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var report Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, StatusDown, report.Components["archive"].Status)

	rec = httptest.NewRecorder()
	c.LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
