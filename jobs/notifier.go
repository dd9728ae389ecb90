package jobs

import "context"

// MailNotifier satisfies the auth service's delivery port by queueing
// email tasks instead of sending synchronously.
type MailNotifier struct {
	client *Client
}

// NewMailNotifier constructs a MailNotifier.
func NewMailNotifier(client *Client) *MailNotifier {
	return &MailNotifier{client: client}
}

func (n *MailNotifier) SendVerification(ctx context.Context, email, verificationURL string) error {
	_, err := n.client.EnqueueSendEmail(ctx, SendEmailPayload{
		Kind:            EmailKindVerification,
		To:              email,
		VerificationURL: verificationURL,
	})
	return err
}

func (n *MailNotifier) SendOTP(ctx context.Context, email, code string) error {
	_, err := n.client.EnqueueSendEmail(ctx, SendEmailPayload{
		Kind:    EmailKindOTP,
		To:      email,
		OTPCode: code,
	})
	return err
}
