package notifier

import (
	"context"

	"pmojobs/pkg/logx"
)

// LogSender writes notifications to the structured log. It is always
// registered so operators get the signal even with no external channel
// configured.
type LogSender struct {
	log logx.Logger
}

func NewLogSender(log logx.Logger) *LogSender {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &LogSender{log: log}
}

func (l *LogSender) Name() string { return "log" }

func (l *LogSender) Send(_ context.Context, n Notification) error {
	l.log.Info("notification",
		logx.String("subject", n.Subject),
		logx.String("body", n.Body))
	return nil
}
