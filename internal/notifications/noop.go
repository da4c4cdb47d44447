package notifications

import "context"

type noopPort struct{}

// NewNoopPort returns a Port that silently accepts every message. Used when a
// deployment has no notification credentials configured.
func NewNoopPort() Port {
	return noopPort{}
}

func (noopPort) SendEmail(context.Context, EmailMessage) error { return nil }

func (noopPort) SendSMS(context.Context, SMSMessage) error { return nil }
