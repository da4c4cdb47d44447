package notifications

import (
	"context"
	"errors"
	"testing"
)

type stubPort struct {
	sendEmailFn func(ctx context.Context, msg EmailMessage) error
	sendSMSFn   func(ctx context.Context, msg SMSMessage) error
}

func (s *stubPort) SendEmail(ctx context.Context, msg EmailMessage) error {
	if s.sendEmailFn == nil {
		return nil
	}
	return s.sendEmailFn(ctx, msg)
}

func (s *stubPort) SendSMS(ctx context.Context, msg SMSMessage) error {
	if s.sendSMSFn == nil {
		return nil
	}
	return s.sendSMSFn(ctx, msg)
}

func syncRunner(fn func()) { fn() }

func TestDispatcherSendsEmail(t *testing.T) {
	var sent EmailMessage
	port := &stubPort{
		sendEmailFn: func(_ context.Context, msg EmailMessage) error {
			sent = msg
			return nil
		},
	}
	var events []string
	dispatcher, err := NewDispatcher(port,
		WithRunner(syncRunner),
		WithLogger(func(_ context.Context, event string, _ map[string]any) {
			events = append(events, event)
		}),
	)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	dispatcher.EmailAsync(context.Background(), EmailMessage{To: "buyer@example.com", Subject: "Order received"})

	if sent.To != "buyer@example.com" {
		t.Fatalf("email not delivered to port: %+v", sent)
	}
	if len(events) != 1 || events[0] != "notifications.email.sent" {
		t.Fatalf("unexpected events %v", events)
	}
}

func TestDispatcherSwallowsFailures(t *testing.T) {
	port := &stubPort{
		sendSMSFn: func(context.Context, SMSMessage) error {
			return errors.New("carrier down")
		},
	}
	var events []string
	dispatcher, err := NewDispatcher(port,
		WithRunner(syncRunner),
		WithLogger(func(_ context.Context, event string, _ map[string]any) {
			events = append(events, event)
		}),
	)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	// Must not panic or propagate; the failure surfaces only in the log.
	dispatcher.SMSAsync(context.Background(), SMSMessage{To: "+905551112233", Body: "hi"})

	if len(events) != 1 || events[0] != "notifications.sms.failed" {
		t.Fatalf("expected a failure event, got %v", events)
	}
}

func TestDispatcherDetachesFromCallerContext(t *testing.T) {
	delivered := false
	port := &stubPort{
		sendEmailFn: func(ctx context.Context, _ EmailMessage) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			delivered = true
			return nil
		},
	}
	dispatcher, err := NewDispatcher(port, WithRunner(syncRunner))
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dispatcher.EmailAsync(ctx, EmailMessage{To: "buyer@example.com"})

	if !delivered {
		t.Fatal("send should survive caller context cancellation")
	}
}
