package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_WrapsSentinel(t *testing.T) {
	err := Newf(ErrArchiveUnavailable, 503, "tap returned %d", 503)

	assert.True(t, errors.Is(err, ErrArchiveUnavailable))
	assert.Equal(t, "archive unavailable: tap returned 503", err.Error())

	var appErr *AppError
	assert.True(t, errors.As(fmt.Errorf("fetching: %w", err), &appErr))
	assert.Equal(t, 503, appErr.StatusCode)
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: %w", errors.ErrUnsupported)
	err := Wrap(ErrArchiveUnavailable, cause, "requesting %s", "tap")

	assert.ErrorIs(t, err, ErrArchiveUnavailable)
	assert.ErrorIs(t, err, errors.ErrUnsupported)
	assert.Equal(t, "archive unavailable: requesting tap: dial tcp: unsupported operation", err.Error())
	assert.Equal(t, ExitUnavailable, ExitCode(err))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, 502, StatusOf(fmt.Errorf("fetch: %w", New(ErrArchiveUnavailable, 502, "bad gateway"))))
	assert.Equal(t, 0, StatusOf(ErrTimeout))
	assert.Equal(t, "not found", New(ErrNotFound, 0, "").Error())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{fmt.Errorf("load: %w", ErrMalformedFile), ExitInput},
		{New(ErrDimensionMismatch, 0, "3 stars, 4 rows"), ExitInput},
		{fmt.Errorf("tsp: %w", ErrWriteFailed), ExitOutput},
		{ErrTimeout, ExitUnavailable},
		{errors.New("boom"), ExitFailure},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(tt.err), "%v", tt.err)
	}
}
