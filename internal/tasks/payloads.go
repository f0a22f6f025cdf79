package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypePasswordResetEmail = "email:password_reset"
)

// QueueMail is the asynq queue reset emails travel on.
const QueueMail = "mail"

// PasswordResetEmailPayload carries everything the worker needs to send the
// mail. The link embeds the raw reset token, so payloads expire with it.
type PasswordResetEmailPayload struct {
	Email         string    `json:"email"`
	ResetLink     string    `json:"reset_link"`
	ExpiresAt     time.Time `json:"expires_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// NewPasswordResetEmailTask 构造一个新的重置密码邮件任务。
func NewPasswordResetEmailTask(payload PasswordResetEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePasswordResetEmail, data), nil
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ResetMailQueue hands reset links to the mail worker.
type ResetMailQueue struct {
	client        Enqueuer
	correlationID func(context.Context) string
}

// NewResetMailQueue wraps client. correlationID may be nil.
func NewResetMailQueue(client Enqueuer, correlationID func(context.Context) string) *ResetMailQueue {
	return &ResetMailQueue{client: client, correlationID: correlationID}
}

// NotifyPasswordReset enqueues the mail; the task is dropped once the token
// itself has expired.
func (q *ResetMailQueue) NotifyPasswordReset(ctx context.Context, email, link string, expiresAt time.Time) error {
	payload := PasswordResetEmailPayload{
		Email:     email,
		ResetLink: link,
		ExpiresAt: expiresAt,
	}
	if q.correlationID != nil {
		payload.CorrelationID = q.correlationID(ctx)
	}

	task, err := NewPasswordResetEmailTask(payload)
	if err != nil {
		return fmt.Errorf("build reset email task: %w", err)
	}
	if _, err := q.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueMail),
		asynq.MaxRetry(5),
		asynq.Deadline(expiresAt),
	); err != nil {
		return fmt.Errorf("enqueue reset email: %w", err)
	}
	return nil
}
