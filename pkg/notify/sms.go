package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/PixieStack/indulge/pkg/tracing"
)

// SMSConfig holds Twilio Verify configuration
type SMSConfig struct {
	AccountSID string
	AuthToken  string
	ServiceSID string
}

// SMSSender starts and checks phone verifications through Twilio Verify.
// Twilio generates and stores the code itself, so unlike email there is no
// local OTP state.
type SMSSender struct {
	cfg    SMSConfig
	client *http.Client
	logger ectologger.Logger
}

// NewSMSSender creates a new SMS sender
func NewSMSSender(cfg SMSConfig, logger ectologger.Logger) *SMSSender {
	return &SMSSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

func (s *SMSSender) configured() bool {
	return s.cfg.AccountSID != "" && s.cfg.AuthToken != "" && s.cfg.ServiceSID != ""
}

// StartVerification asks Twilio to send a code to the phone number. Returns
// false when the verification could not be started.
func (s *SMSSender) StartVerification(ctx context.Context, phone string) bool {
	ctx, span := tracing.StartSpan(ctx, "notify.SMSSender.StartVerification")
	defer span.End()

	if !s.configured() {
		s.logger.WithContext(ctx).WithFields(map[string]any{"phone": phone}).Warn("SMS provider not configured; skipping phone verification send")
		return true
	}

	endpoint := fmt.Sprintf("https://verify.twilio.com/v2/Services/%s/Verifications", s.cfg.ServiceSID)
	form := url.Values{"To": {phone}, "Channel": {"sms"}}

	resp, ok := s.post(ctx, endpoint, form)
	if !ok {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.logger.WithContext(ctx).WithFields(map[string]any{"status": resp.StatusCode}).Error("SMS provider rejected verification start")
		return false
	}

	return true
}

// CheckVerification asks Twilio whether the code matches the pending
// verification for the phone number.
func (s *SMSSender) CheckVerification(ctx context.Context, phone, code string) bool {
	ctx, span := tracing.StartSpan(ctx, "notify.SMSSender.CheckVerification")
	defer span.End()

	if !s.configured() {
		s.logger.WithContext(ctx).WithFields(map[string]any{"phone": phone}).Warn("SMS provider not configured; accepting phone verification check")
		return true
	}

	endpoint := fmt.Sprintf("https://verify.twilio.com/v2/Services/%s/VerificationCheck", s.cfg.ServiceSID)
	form := url.Values{"To": {phone}, "Code": {code}}

	resp, ok := s.post(ctx, endpoint, form)
	if !ok {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return false
	}

	// Twilio reports the outcome in the body status field; anything but
	// "approved" is a failed check.
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(resp, &body); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to decode verification check response")
		return false
	}

	return body.Status == "approved"
}

func (s *SMSSender) post(ctx context.Context, endpoint string, form url.Values) (*http.Response, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to build SMS provider request")
		return nil, false
	}
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to reach SMS provider")
		return nil, false
	}

	return resp, true
}
