package invoices

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bsm/redislock"
)

// ErrNumberConflict signals a lost race on the per-account number
// sequence. The caller retries the whole transaction once.
var ErrNumberConflict = fmt.Errorf("invoice number conflict")

// defaultPrefix is used when the account has no invoice prefix set.
const defaultPrefix = "INV"

// NumberPrefix builds the "{prefix}-{year}-" part of an invoice number.
func NumberPrefix(accountPrefix string, year int) string {
	prefix := strings.TrimSpace(accountPrefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return fmt.Sprintf("%s-%d-", prefix, year)
}

// NextNumber picks the greatest numeric suffix among the existing
// numbers sharing the prefix and formats successor as a zero-padded
// four digit suffix. Gaps from deleted invoices are never reused
// below the maximum.
func NextNumber(prefix string, existing []string) string {
	max := 0
	for _, number := range existing {
		suffix, ok := strings.CutPrefix(number, prefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%04d", prefix, max+1)
}

// sequenceLockTTL bounds how long a crashed holder can block the
// sequence.
const sequenceLockTTL = 3 * time.Second

// SequenceLocker serialises number allocation per account and year.
// It is an optimisation only; the unique constraint on
// (account_id, number) remains the source of truth.
type SequenceLocker struct {
	client *redislock.Client
	logger *slog.Logger
}

// NewSequenceLocker wraps a redislock client. A nil client disables
// locking.
func NewSequenceLocker(client *redislock.Client, logger *slog.Logger) *SequenceLocker {
	return &SequenceLocker{client: client, logger: logger}
}

// Acquire takes the sequence lock and returns a release func. Failure
// to lock degrades to running unlocked.
func (l *SequenceLocker) Acquire(ctx context.Context, accountID int64, year int) func() {
	if l == nil || l.client == nil {
		return func() {}
	}
	key := fmt.Sprintf("invoices:sequence:%d:%d", accountID, year)
	lock, err := l.client.Obtain(ctx, key, sequenceLockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 20),
	})
	if err != nil {
		l.logger.Warn("invoice sequence lock unavailable",
			slog.Int64("account_id", accountID), slog.Any("error", err))
		return func() {}
	}
	return func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}
}
