// Package errors maps failures from every layer onto a small closed set of
// categories, each with a stable process exit code.
package errors

import (
	"context"
	"errors"

	"github.com/vk/anda/internal/buildgraph"
	"github.com/vk/anda/internal/manifest"
	"github.com/vk/anda/internal/pkgbuild"
	"github.com/vk/anda/internal/rpc"
	"github.com/vk/anda/internal/scheduler"
)

// Category classifies an error for callers deciding how to exit.
type Category string

const (
	CategoryNone                Category = "none"
	CategoryUsage               Category = "usage"
	CategoryValidation          Category = "validation"
	CategoryPartialFailure      Category = "partial_failure"
	CategoryResolutionExhausted Category = "resolution_exhausted"
	CategoryCompileInput        Category = "compile_input"
	CategoryTransport           Category = "transport"
	CategoryCancelled           Category = "cancelled"
	CategoryInternal            Category = "internal"
)

// Exit codes, one per category.
const (
	ExitOK                  = 0
	ExitInternal            = 1
	ExitUsage               = 2
	ExitValidation          = 3
	ExitPartialFailure      = 4
	ExitResolutionExhausted = 5
	ExitCompileInput        = 6
	ExitTransport           = 7
	ExitCancelled           = 130
)

// UsageError marks a problem with how the program was invoked.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// Usage wraps err as a UsageError.
func Usage(err error) error {
	if err == nil {
		return nil
	}
	return &UsageError{Err: err}
}

// Classify returns the category of err. When err joins several failures the
// one that stops earliest in the pipeline wins: a manifest that does not
// validate outranks a failed stage elsewhere.
func Classify(err error) Category {
	if err == nil {
		return CategoryNone
	}
	var (
		usage     *UsageError
		invalid   *manifest.ValidationError
		exhausted *pkgbuild.DependencyResolutionExhaustedError
		transport *rpc.TransportError
		runErr    *scheduler.RunError
	)
	switch {
	case errors.As(err, &usage):
		return CategoryUsage
	case errors.As(err, &invalid):
		return CategoryValidation
	case errors.Is(err, buildgraph.ErrInvalidJobID),
		errors.Is(err, buildgraph.ErrInvalidBuilderImage),
		errors.Is(err, buildgraph.ErrSourceFetchSpecInvalid):
		return CategoryCompileInput
	case errors.As(err, &transport):
		return CategoryTransport
	case errors.As(err, &exhausted):
		return CategoryResolutionExhausted
	case errors.Is(err, context.Canceled):
		return CategoryCancelled
	case errors.As(err, &runErr):
		return CategoryPartialFailure
	default:
		return CategoryInternal
	}
}

// ExitCode returns the process exit status for err.
func ExitCode(err error) int {
	switch Classify(err) {
	case CategoryNone:
		return ExitOK
	case CategoryUsage:
		return ExitUsage
	case CategoryValidation:
		return ExitValidation
	case CategoryPartialFailure:
		return ExitPartialFailure
	case CategoryResolutionExhausted:
		return ExitResolutionExhausted
	case CategoryCompileInput:
		return ExitCompileInput
	case CategoryTransport:
		return ExitTransport
	case CategoryCancelled:
		return ExitCancelled
	default:
		return ExitInternal
	}
}
