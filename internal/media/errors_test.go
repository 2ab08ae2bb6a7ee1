package media

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapCategory(t *testing.T) {
	base := errors.New("boom")
	wrapped := WrapCategory(CategoryNetwork, base)

	assert.Equal(t, CategoryNetwork, CategoryOf(wrapped))
	assert.True(t, errors.Is(wrapped, base))
	assert.Equal(t, "boom", wrapped.Error())
}

func TestWrapCategory_Nil(t *testing.T) {
	assert.NoError(t, WrapCategory(CategoryIO, nil))
}

func TestWrapCategory_KeepsOriginalCategory(t *testing.T) {
	inner := WrapCategory(CategoryMerge, errors.New("mux failed"))
	outer := WrapCategory(CategoryNetwork, fmt.Errorf("during finish: %w", inner))

	assert.Equal(t, CategoryMerge, CategoryOf(outer))
}

func TestCategoryOf_Inference(t *testing.T) {
	assert.Equal(t, CategoryCancelled, CategoryOf(context.Canceled))
	assert.Equal(t, CategoryUnknown, CategoryOf(errors.New("plain")))
	assert.Equal(t, CategoryUnknown, CategoryOf(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Errorf(CategoryNetwork, "timeout")))
	assert.False(t, IsRetryable(Errorf(CategoryMetadata, "gone")))
	assert.False(t, IsRetryable(Errorf(CategoryMerge, "mux")))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, ExitCode(Errorf(CategoryInvalidURL, "bad url")))
	assert.Equal(t, 3, ExitCode(Errorf(CategoryMetadata, "gone")))
	assert.Equal(t, 4, ExitCode(Errorf(CategoryNetwork, "reset")))
	assert.Equal(t, 5, ExitCode(Errorf(CategoryMerge, "mux")))
	assert.Equal(t, 6, ExitCode(Errorf(CategoryIO, "disk")))
	assert.Equal(t, 0, ExitCode(WrapCategory(CategoryCancelled, context.Canceled)))
	assert.Equal(t, 1, ExitCode(errors.New("other")))
}

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: 1, MaxDelay: 2}
	attempts := 0
	err := WithRetry(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return Errorf(CategoryNetwork, "flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetry_NonRetryableSurfacesImmediately(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: 1, MaxDelay: 2}
	attempts := 0
	err := WithRetry(context.Background(), cfg, func() error {
		attempts++
		return Errorf(CategoryMetadata, "video removed")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, CategoryMetadata, CategoryOf(err))
}

func TestWithRetry_Bounded(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 2, InitialDelay: 1, MaxDelay: 2}
	attempts := 0
	err := WithRetry(context.Background(), cfg, func() error {
		attempts++
		return Errorf(CategoryNetwork, "down")
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts) // initial try + 2 retries
	assert.Equal(t, CategoryNetwork, CategoryOf(err))
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := RetryConfig{MaxRetries: 5, InitialDelay: 1, MaxDelay: 2}
	err := WithRetry(ctx, cfg, func() error {
		return Errorf(CategoryNetwork, "down")
	})
	require.Error(t, err)
	assert.Equal(t, CategoryCancelled, CategoryOf(err))
}
