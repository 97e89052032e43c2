// Package email renders and delivers notification emails over SMTP.
package email

import "context"

// Sender delivers the notification emails of the pipeline engine.
type Sender interface {
	// SendPipelineCompletedEmail confirms a completed deal to the counterparty.
	SendPipelineCompletedEmail(ctx context.Context, toEmail, toName, assetReference, direction string) error
	// SendPipelineCancelledEmail informs the counterparty of a cancelled deal.
	SendPipelineCancelledEmail(ctx context.Context, toEmail, toName, assetReference, reason string) error
}

// Config is the SMTP configuration surface the sender needs.
type Config interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetAppBaseURL() string
}

// NewSender builds the configured sender. When email is disabled a no-op
// sender is returned so callers never need nil checks.
func NewSender(cfg Config) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}
	return NewSMTPSender(cfg), nil
}

// NoopSender drops every email. Used in development environments without SMTP.
type NoopSender struct{}

func (NoopSender) SendPipelineCompletedEmail(context.Context, string, string, string, string) error {
	return nil
}

func (NoopSender) SendPipelineCancelledEmail(context.Context, string, string, string, string) error {
	return nil
}
