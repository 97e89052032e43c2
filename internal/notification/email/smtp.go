package email

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements Sender using a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
	baseURL   string
}

// NewSMTPSender creates a new SMTPSender from the email configuration.
func NewSMTPSender(cfg Config) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
		baseURL:   cfg.GetAppBaseURL(),
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendPipelineCompletedEmail(ctx context.Context, toEmail, toName, assetReference, direction string) error {
	heading := "Purchase completed"
	body := "All stages of the purchase have been completed and the transfer is final."
	if strings.EqualFold(direction, "DISPOSAL") {
		heading = "Sale completed"
		body = "All stages of the sale have been completed and the handover is final."
	}

	content, err := renderEmailTemplate("pipeline_completed.html", pipelineCompletedEmailData{
		baseEmailData: baseEmailData{
			Title:   heading,
			Heading: heading,
		},
		RecipientName:  toName,
		AssetReference: assetReference,
		Body:           body,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectPipelineCompletedFmt, assetReference), content)
}

func (s *SMTPSender) SendPipelineCancelledEmail(ctx context.Context, toEmail, toName, assetReference, reason string) error {
	content, err := renderEmailTemplate("pipeline_cancelled.html", pipelineCancelledEmailData{
		baseEmailData: baseEmailData{
			Title:   "Transaction cancelled",
			Heading: "Transaction cancelled",
		},
		RecipientName:  toName,
		AssetReference: assetReference,
		Reason:         reason,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectPipelineCancelledFmt, assetReference), content)
}
