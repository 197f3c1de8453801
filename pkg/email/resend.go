package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/resend/resend-go/v2"

	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
)

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
	logg   *logger.Logger
}

// NewResendSender creates a sender with the given API key and default from address.
func NewResendSender(apiKey, from string, logg *logger.Logger) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
		logg:   logg,
	}
}

func (s *ResendSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if len(req.To) == 0 {
		return SendResult{}, errors.New("email recipient is required")
	}
	from := req.From
	if from == "" {
		from = s.from
	}

	params := &resend.SendEmailRequest{
		From:    from,
		To:      req.To,
		Subject: req.Subject,
		Html:    req.HTML,
	}
	if req.ReplyTo != "" {
		params.ReplyTo = req.ReplyTo
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"subject": req.Subject, "recipients": len(req.To)})
	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		s.logg.Error(logCtx, "email.resend_failed", err)
		return SendResult{}, fmt.Errorf("resend send failed: %w", err)
	}

	s.logg.Info(s.logg.WithField(logCtx, "message_id", sent.Id), "email.sent")
	return SendResult{
		MessageID: sent.Id,
		SentAt:    time.Now(),
	}, nil
}
