package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/errors"
)

func TestBound_ReturnsValue(t *testing.T) {
	got, err := Bound(context.Background(), time.Second, "fast", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestBound_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Bound(context.Background(), time.Second, "fails", func(ctx context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsTimeout(err))
}

func TestBound_ReturnsAtDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	_, err := Bound(context.Background(), 10*time.Millisecond, "stuck", func(ctx context.Context) (string, error) {
		<-release
		return "late", nil
	})
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, IsTimeout(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "stuck")
}

func TestBound_DeadlineErrorFromCallee(t *testing.T) {
	_, err := Bound(context.Background(), 10*time.Millisecond, "http", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, fmt.Errorf("request: %w", ctx.Err())
	})
	assert.True(t, IsTimeout(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBound_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Bound(ctx, time.Second, "cancelled", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsTimeout(err))
}

func TestDo_Unbounded(t *testing.T) {
	hadDeadline := true
	err := Do(context.Background(), 0, "unbounded", func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		return nil
	})
	assert.NoError(t, err)
	assert.False(t, hadDeadline)
}

func TestIsTimeout_AppError(t *testing.T) {
	assert.True(t, IsTimeout(apperrors.New(apperrors.ErrTimeout, 0, "x")))
}
