package notifications

import (
	"context"
	"errors"
	"time"
)

const defaultDispatchTimeout = 10 * time.Second

// Logger defines the logging contract for dispatch outcomes.
type Logger func(ctx context.Context, event string, fields map[string]any)

// DispatcherOption customises Dispatcher behaviour.
type DispatcherOption func(*Dispatcher)

// WithDispatchTimeout bounds how long a background send may run.
func WithDispatchTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithLogger injects the event logger used for send failures.
func WithLogger(logger Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRunner overrides how background sends are scheduled. Tests inject a
// synchronous runner so outcomes can be asserted without sleeping.
func WithRunner(run func(fn func())) DispatcherOption {
	return func(d *Dispatcher) {
		if run != nil {
			d.run = run
		}
	}
}

// Dispatcher wraps a Port with fire-and-forget semantics: sends run detached
// from the request context under their own timeout, and failures are logged
// but never propagated to the caller.
type Dispatcher struct {
	port    Port
	timeout time.Duration
	logger  Logger
	run     func(fn func())
}

// NewDispatcher constructs a Dispatcher around the given port.
func NewDispatcher(port Port, opts ...DispatcherOption) (*Dispatcher, error) {
	if port == nil {
		return nil, errors.New("notifications: port is required")
	}
	d := &Dispatcher{
		port:    port,
		timeout: defaultDispatchTimeout,
		logger:  func(context.Context, string, map[string]any) {},
		run:     func(fn func()) { go fn() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d, nil
}

// EmailAsync schedules an email send and returns immediately.
func (d *Dispatcher) EmailAsync(ctx context.Context, msg EmailMessage) {
	if d == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	d.run(func() {
		sendCtx, cancel := context.WithTimeout(detached, d.timeout)
		defer cancel()
		if err := d.port.SendEmail(sendCtx, msg); err != nil {
			d.logger(sendCtx, "notifications.email.failed", map[string]any{
				"to":    msg.To,
				"error": err.Error(),
			})
			return
		}
		d.logger(sendCtx, "notifications.email.sent", map[string]any{
			"to": msg.To,
		})
	})
}

// SMSAsync schedules an SMS send and returns immediately.
func (d *Dispatcher) SMSAsync(ctx context.Context, msg SMSMessage) {
	if d == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	d.run(func() {
		sendCtx, cancel := context.WithTimeout(detached, d.timeout)
		defer cancel()
		if err := d.port.SendSMS(sendCtx, msg); err != nil {
			d.logger(sendCtx, "notifications.sms.failed", map[string]any{
				"to":    msg.To,
				"error": err.Error(),
			})
			return
		}
		d.logger(sendCtx, "notifications.sms.sent", map[string]any{
			"to": msg.To,
		})
	})
}
