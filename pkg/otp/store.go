// Package otp stores short-lived email verification codes in Redis and rate
// limits how often they can be requested.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/PixieStack/indulge/pkg/redis"
	"github.com/PixieStack/indulge/pkg/tracing"
)

// Config holds OTP behavior configuration
type Config struct {
	TTL           time.Duration
	SendLimit     int
	SendLimitSpan time.Duration
}

// Store issues and verifies one-time codes
type Store struct {
	client *redis.Client
	logger ectologger.Logger
	cfg    Config
}

// NewStore creates a new OTP store
func NewStore(client *redis.Client, logger ectologger.Logger, cfg Config) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.SendLimit <= 0 {
		cfg.SendLimit = 3
	}
	if cfg.SendLimitSpan <= 0 {
		cfg.SendLimitSpan = time.Hour
	}
	return &Store{
		client: client,
		logger: logger,
		cfg:    cfg,
	}
}

// Issue generates a 6-digit code for the identity (an email address or user
// ID) and stores it with the configured TTL. Returns 429 when the identity
// has hit the send limit.
func (s *Store) Issue(ctx context.Context, identity string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "otp.Store.Issue")
	defer span.End()

	limitKey := fmt.Sprintf("otp:limit:%s", identity)
	sends, err := s.client.Incr(ctx, limitKey)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to check OTP send limit")
		return "", httperror.NewHTTPError(http.StatusInternalServerError, "failed to issue verification code")
	}
	if sends == 1 {
		if err := s.client.Expire(ctx, limitKey, s.cfg.SendLimitSpan); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to set OTP send limit expiry")
		}
	}
	if sends > int64(s.cfg.SendLimit) {
		return "", httperror.NewHTTPError(http.StatusTooManyRequests, "too many verification codes requested")
	}

	code, err := generateCode()
	if err != nil {
		return "", httperror.NewHTTPError(http.StatusInternalServerError, "failed to issue verification code")
	}

	if err := s.client.Set(ctx, codeKey(identity), code, s.cfg.TTL); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to store verification code")
		return "", httperror.NewHTTPError(http.StatusInternalServerError, "failed to issue verification code")
	}

	return code, nil
}

// Verify checks the code for the identity and consumes it on success.
// Unknown, expired, or mismatched codes return 400.
func (s *Store) Verify(ctx context.Context, identity, code string) error {
	ctx, span := tracing.StartSpan(ctx, "otp.Store.Verify")
	defer span.End()

	stored, err := s.client.Get(ctx, codeKey(identity))
	if err != nil {
		if redis.IsNil(err) {
			return httperror.NewHTTPError(http.StatusBadRequest, "invalid or expired verification code")
		}
		s.logger.WithContext(ctx).WithError(err).Error("Failed to load verification code")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to verify code")
	}

	if stored != code {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid or expired verification code")
	}

	if err := s.client.Del(ctx, codeKey(identity)); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to delete consumed verification code")
	}

	return nil
}

func codeKey(identity string) string {
	return fmt.Sprintf("otp:code:%s", identity)
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
