package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"trackApply/internal/tasks"
)

// ResetMailSender delivers the rendered reset email.
type ResetMailSender interface {
	SendPasswordReset(ctx context.Context, to, link string, expiresAt time.Time) error
}

// PasswordResetEmailHandler 负责消费重置密码邮件任务。
type PasswordResetEmailHandler struct {
	sender ResetMailSender
	logger *slog.Logger
	now    func() time.Time
}

// NewPasswordResetEmailHandler 创建任务处理器。
func NewPasswordResetEmailHandler(sender ResetMailSender, logger *slog.Logger) *PasswordResetEmailHandler {
	return &PasswordResetEmailHandler{
		sender: sender,
		logger: logger,
		now:    time.Now,
	}
}

// ProcessTask 实现 asynq.Handler。
// 格式错误或已过期的任务直接丢弃，不再重试；SMTP 发送失败交给 asynq 重试。
func (h *PasswordResetEmailHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.PasswordResetEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	log := h.logger.With(slog.String("correlation_id", payload.CorrelationID))
	if payload.Email == "" || payload.ResetLink == "" {
		log.Error("reset email payload incomplete")
		return fmt.Errorf("incomplete payload: %w", asynq.SkipRetry)
	}
	if !payload.ExpiresAt.IsZero() && !h.now().Before(payload.ExpiresAt) {
		log.Warn("reset token already expired, dropping email")
		return nil
	}

	if err := h.sender.SendPasswordReset(ctx, payload.Email, payload.ResetLink, payload.ExpiresAt); err != nil {
		log.Error("send reset email failed", slog.Any("error", err))
		return err
	}

	log.Info("reset email sent")
	return nil
}
