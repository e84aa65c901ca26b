// Package notify delivers verification codes over email and SMS. Both
// senders degrade gracefully: when a provider is not configured the code is
// logged instead of sent, which keeps local development working.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/PixieStack/indulge/pkg/tracing"
)

const resendEndpoint = "https://api.resend.com/emails"

// EmailConfig holds Resend configuration
type EmailConfig struct {
	APIKey      string
	FromAddress string
}

// EmailSender sends verification emails through Resend
type EmailSender struct {
	cfg    EmailConfig
	client *http.Client
	logger ectologger.Logger
}

// NewEmailSender creates a new email sender
func NewEmailSender(cfg EmailConfig, logger ectologger.Logger) *EmailSender {
	return &EmailSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// SendVerificationCode emails the code to the address. Returns false when the
// email could not be delivered; the caller decides whether that is fatal.
func (s *EmailSender) SendVerificationCode(ctx context.Context, to, code string) bool {
	ctx, span := tracing.StartSpan(ctx, "notify.EmailSender.SendVerificationCode")
	defer span.End()

	if s.cfg.APIKey == "" {
		s.logger.WithContext(ctx).WithFields(map[string]any{"to": to, "code": code}).Warn("Email provider not configured; logging verification code instead")
		return true
	}

	payload, _ := json.Marshal(map[string]any{
		"from":    s.cfg.FromAddress,
		"to":      []string{to},
		"subject": "Your verification code",
		"html":    fmt.Sprintf("<p>Your verification code is <strong>%s</strong>. It expires in 10 minutes.</p>", code),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resendEndpoint, bytes.NewReader(payload))
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to build verification email request")
		return false
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to send verification email")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.logger.WithContext(ctx).WithFields(map[string]any{"status": resp.StatusCode}).Error("Email provider rejected verification email")
		return false
	}

	return true
}
