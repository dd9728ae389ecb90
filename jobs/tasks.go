package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeCleanupIdempotency prunes expired idempotency keys.
	TaskTypeCleanupIdempotency = "ledger:cleanup_idempotency"
)

// Email kinds carried by SendEmailPayload.
const (
	EmailKindVerification = "verification"
	EmailKindOTP          = "otp"
)

// SendEmailPayload describes a transactional email to deliver. Exactly
// one of VerificationURL or OTPCode is set, selected by Kind.
type SendEmailPayload struct {
	Kind            string `json:"kind"`
	To              string `json:"to"`
	VerificationURL string `json:"verification_url,omitempty"`
	OTPCode         string `json:"otp_code,omitempty"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewCleanupIdempotencyTask constructs the periodic cleanup task.
func NewCleanupIdempotencyTask() *asynq.Task {
	return asynq.NewTask(TaskTypeCleanupIdempotency, nil)
}
