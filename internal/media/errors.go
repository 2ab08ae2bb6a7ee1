package media

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Category classifies an error for retry decisions and user messaging.
type Category string

const (
	CategoryInvalidURL Category = "invalid_url"
	CategoryMetadata   Category = "metadata" // video unavailable, removed, region-locked
	CategoryNetwork    Category = "network"  // transient, retryable
	CategoryMerge      Category = "merge"    // mux step failed, streams retained
	CategoryIO         Category = "io"       // disk full, permissions
	CategoryCancelled  Category = "cancelled"
	CategoryUnknown    Category = "unknown"
)

// Error wraps an underlying error with its category.
type Error struct {
	Category Category
	Err      error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WrapCategory attaches a category to err. A nil err stays nil; an already
// categorized error keeps its original category.
func WrapCategory(category Category, err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	return &Error{Category: category, Err: err}
}

// Errorf is WrapCategory over fmt.Errorf.
func Errorf(category Category, format string, args ...any) error {
	return WrapCategory(category, fmt.Errorf(format, args...))
}

// CategoryOf reports the category of err, inferring network and cancellation
// categories for common uncategorized errors.
func CategoryOf(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Category
	}
	if errors.Is(err, context.Canceled) {
		return CategoryCancelled
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryNetwork
	}
	return CategoryUnknown
}

// IsRetryable reports whether the error is transient and worth retrying.
func IsRetryable(err error) bool {
	return CategoryOf(err) == CategoryNetwork
}

// ExitCode maps an error category to a process exit code for the CLI.
func ExitCode(err error) int {
	switch CategoryOf(err) {
	case CategoryInvalidURL:
		return 2
	case CategoryMetadata:
		return 3
	case CategoryNetwork:
		return 4
	case CategoryMerge:
		return 5
	case CategoryIO:
		return 6
	case CategoryCancelled:
		return 0
	default:
		return 1
	}
}
