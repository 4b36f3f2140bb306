package errors

import (
	"fmt"
	"log/slog"
)

// CLIErrorAdapter turns errors into a message and an exit code.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int { return ExitCode(err) }

// FormatError formats an error for display on stderr.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	switch c := Classify(err); c {
	case CategoryUsage, CategoryValidation:
		return fmt.Sprintf("Error: %v", err)
	case CategoryResolutionExhausted:
		if a.verbose {
			return fmt.Sprintf("Error: could not resolve build dependencies: %v", err)
		}
		return "Error: could not resolve build dependencies"
	default:
		return fmt.Sprintf("Error (%s): %v", c, err)
	}
}

// Report logs err when it is unexpected and returns the formatted message and
// exit code.
func (a *CLIErrorAdapter) Report(err error) (string, int) {
	if err == nil {
		return "", ExitOK
	}
	if a.verbose || Classify(err) == CategoryInternal {
		a.logger.Error("Command failed.", "error", err, "category", string(Classify(err)))
	}
	return a.FormatError(err), a.ExitCodeFor(err)
}
