package postgres

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	maxAttempts = 3
	baseDelay   = 1 * time.Second
	maxJitter   = 500 * time.Millisecond
)

// SQLSTATE codes that no amount of retrying will fix.
var fatalCodes = map[string]bool{
	"28000": true, // invalid_authorization_specification
	"28P01": true, // invalid_password
	"3D000": true, // invalid_catalog_name
	"42501": true, // insufficient_privilege
}

// connectWithRetry retries transient connection failures with exponential
// backoff. Configuration and auth errors fail on the first attempt.
func connectWithRetry(ctx context.Context, cfg Config) (*Inspector, error) {
	var lastErr error
	for attempt := range maxAttempts {
		insp, err := connectOnce(ctx, cfg)
		if err == nil {
			if attempt > 0 {
				slog.Info("connected after retry", "attempt", attempt+1)
			}
			return insp, nil
		}
		if !isRetryable(err) || attempt == maxAttempts-1 {
			return nil, err
		}
		lastErr = err

		delay := backoffDelay(attempt)
		slog.Warn("connection failed, retrying", "attempt", attempt+1, "error", err, "retry_in", delay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return !fatalCodes[pgErr.Code]
	}
	var parseErr *pgconn.ParseConfigError
	if errors.As(err, &parseErr) {
		return false
	}

	msg := err.Error()
	for _, fatal := range []string{"password authentication failed", "no pg_hba.conf entry", "no such host"} {
		if strings.Contains(msg, fatal) {
			return false
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}
	// refused, reset, timeouts and anything unknown
	return true
}

// backoffDelay returns 1s, 2s, 4s... plus up to maxJitter.
func backoffDelay(attempt int) time.Duration {
	return baseDelay<<uint(attempt) + time.Duration(rand.Int64N(int64(maxJitter)))
}
