package notify

import (
	"context"

	"github.com/vinayprograms/slideagent/logging"
)

// Log writes reports through a logger. It is the fallback channel when
// nothing else is configured.
type Log struct {
	logger *logging.Logger
}

// NewLog creates a log channel.
func NewLog(logger *logging.Logger) *Log {
	if logger == nil {
		logger = logging.New()
	}
	return &Log{logger: logger.WithComponent("notify")}
}

// Send implements Sender.
func (l *Log) Send(ctx context.Context, e Event) error {
	fields := map[string]interface{}{
		"event":    string(e.Type),
		"run_id":   e.RunID,
		"duration": e.Duration.String(),
		"logs":     len(e.Logs),
	}
	if e.Type == EventRunFailed {
		fields["error"] = e.Error
		l.logger.Error(Subject(e), fields)
		return nil
	}
	fields["final_answer"] = e.FinalAnswer
	l.logger.Info(Subject(e), fields)
	return nil
}
