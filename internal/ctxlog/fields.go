package ctxlog

import "log/slog"

// Canonical log field names.
const (
	KeyRunID    = "run_id"
	KeyProject  = "project"
	KeyStage    = "stage"
	KeyWorker   = "worker"
	KeyAttempt  = "attempt"
	KeyDuration = "duration_ms"
	KeyOutcome  = "outcome"
	KeyError    = "error"
)

func RunID(id string) slog.Attr      { return slog.String(KeyRunID, id) }
func Project(name string) slog.Attr  { return slog.String(KeyProject, name) }
func Stage(name string) slog.Attr    { return slog.String(KeyStage, name) }
func Worker(id int) slog.Attr        { return slog.Int(KeyWorker, id) }
func Attempt(n int) slog.Attr        { return slog.Int(KeyAttempt, n) }
func Outcome(o string) slog.Attr     { return slog.String(KeyOutcome, o) }
func DurationMS(ms int64) slog.Attr  { return slog.Int64(KeyDuration, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
