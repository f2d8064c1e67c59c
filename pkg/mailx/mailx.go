// Package mailx sends transactional email.
package mailx

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/bartab-mfa/pkg/slogx"
)

// Sender delivers a single HTML message.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// LogSender writes messages to the request logger instead of sending them.
// It is used in development when no SMTP host is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	slogx.FromContext(ctx).Debug("mail not sent, no SMTP host configured",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", htmlBody),
	)
	return nil
}
