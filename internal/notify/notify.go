// Package notify delivers one-time codes over email and SMS. Delivery is
// best-effort: callers log failures and carry on, and nothing here retries.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/raftaar/raftaar-backend/internal/apperr"
)

var (
	ErrTimeout     = apperr.New(apperr.UpstreamTimeout, "notification dispatch timed out")
	ErrUnavailable = apperr.New(apperr.UpstreamUnavailable, "notification channel unavailable")
)

// Dispatcher sends verification codes.
type Dispatcher interface {
	SendEmailCode(ctx context.Context, address, code string) error
	SendSMSCode(ctx context.Context, number, code string) error
}

type EmailSender interface {
	SendEmailCode(ctx context.Context, address, code string) error
}

type SMSSender interface {
	SendSMSCode(ctx context.Context, number, code string) error
}

// Composite routes email and SMS to separate senders and bounds each call.
type Composite struct {
	email   EmailSender
	sms     SMSSender
	timeout time.Duration
}

func NewComposite(email EmailSender, sms SMSSender, timeout time.Duration) *Composite {
	return &Composite{email: email, sms: sms, timeout: timeout}
}

func (c *Composite) SendEmailCode(ctx context.Context, address, code string) error {
	return bounded(ctx, c.timeout, func(ctx context.Context) error {
		return c.email.SendEmailCode(ctx, address, code)
	})
}

func (c *Composite) SendSMSCode(ctx context.Context, number, code string) error {
	return bounded(ctx, c.timeout, func(ctx context.Context) error {
		return c.sms.SendSMSCode(ctx, number, code)
	})
}

// bounded runs send with a deadline. Some provider SDKs ignore contexts, so
// the call runs on its own goroutine and is abandoned at the deadline.
func bounded(ctx context.Context, timeout time.Duration, send func(context.Context) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- send(ctx) }()

	select {
	case err := <-done:
		if err == nil {
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return apperr.Wrap(ErrTimeout.Kind, ErrTimeout.Message, err)
		}
		if _, ok := apperr.As(err); ok {
			return err
		}
		return apperr.Wrap(ErrUnavailable.Kind, ErrUnavailable.Message, err)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return apperr.Wrap(ErrTimeout.Kind, ErrTimeout.Message, ctx.Err())
		}
		return apperr.Wrap(ErrUnavailable.Kind, ErrUnavailable.Message, ctx.Err())
	}
}

// LogSender stands in for an unconfigured channel in development. It is the
// only place a code is written to the log.
type LogSender struct {
	channel string
}

func NewLogSender(channel string) *LogSender {
	return &LogSender{channel: channel}
}

func (l *LogSender) SendEmailCode(_ context.Context, address, code string) error {
	slog.Warn("email channel not configured, code logged instead", "channel", l.channel, "to", address, "code", code)
	return nil
}

func (l *LogSender) SendSMSCode(_ context.Context, number, code string) error {
	slog.Warn("sms channel not configured, code logged instead", "channel", l.channel, "to", number, "code", code)
	return nil
}
