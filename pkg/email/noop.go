package email

import (
	"context"
	"fmt"
	"time"

	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
)

// LogSender logs sends instead of delivering them. Used when no Resend API
// key is configured.
type LogSender struct {
	logg *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"to":      req.To,
		"subject": req.Subject,
	}), "email.noop_send")
	return SendResult{
		MessageID: fmt.Sprintf("noop-%d", time.Now().UnixNano()),
		SentAt:    time.Now(),
	}, nil
}
