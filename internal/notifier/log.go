package notifier

import (
	"log/slog"
	"time"

	"github.com/amishk599/staffsync/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes run summaries to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each summary via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the summary. Runs with failures are logged at warn level.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(s model.RunSummary) error {
	args := []any{
		"kind", s.Kind,
		"total", s.Total,
		"succeeded", s.Succeeded,
		"failed", s.Failed,
		"pages", s.Pages,
		"duration", s.Duration.Round(time.Millisecond).String(),
	}
	if s.DryRun {
		args = append(args, "dry_run", true)
	}
	if s.Failed > 0 {
		n.logger.Warn("sync run completed with failures", args...)
		return nil
	}
	n.logger.Info("sync run completed", args...)
	return nil
}
