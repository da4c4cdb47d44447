package notifications

import "context"

// EmailMessage is a single transactional email.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// SMSMessage is a single outbound text message.
type SMSMessage struct {
	To   string
	Body string
}

// Port is the outbound notification surface. Implementations deliver
// synchronously; fire-and-forget semantics live in the Dispatcher.
type Port interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
	SendSMS(ctx context.Context, msg SMSMessage) error
}

// EmailSender delivers transactional email.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

// SMSSender delivers text messages.
type SMSSender interface {
	SendSMS(ctx context.Context, msg SMSMessage) error
}

type composite struct {
	email EmailSender
	sms   SMSSender
}

// NewPort combines an email and an SMS sender into one Port. Either side may
// be nil; sends through a missing channel fail with ErrSendFailed.
func NewPort(email EmailSender, sms SMSSender) Port {
	return &composite{email: email, sms: sms}
}

func (p *composite) SendEmail(ctx context.Context, msg EmailMessage) error {
	if p.email == nil {
		return ErrSendFailed
	}
	return p.email.SendEmail(ctx, msg)
}

func (p *composite) SendSMS(ctx context.Context, msg SMSMessage) error {
	if p.sms == nil {
		return ErrSendFailed
	}
	return p.sms.SendSMS(ctx, msg)
}
