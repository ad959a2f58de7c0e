package store

import (
	"context"
	"fmt"

	"github.com/agendex/agendex/extract"
)

// QuotaLedger enforces a per-user monthly token allowance backed by the
// token_usage table. It satisfies extract.Quota.
//
// Check is advisory: it compares recorded usage plus the estimate against
// the allowance before any engine call. Record adds actual usage after a
// parse. Concurrent parses can overshoot by at most one request, which is
// acceptable for an allowance, not a hard billing cap.
type QuotaLedger struct {
	store     *Store
	allowance int
}

// NewQuotaLedger creates a ledger with the given monthly token allowance.
// An allowance of 0 or less disables enforcement (Check always passes).
func NewQuotaLedger(s *Store, allowance int) *QuotaLedger {
	return &QuotaLedger{store: s, allowance: allowance}
}

func (q *QuotaLedger) month() string {
	return q.store.now().UTC().Format("2006-01")
}

// Check reports ErrQuotaExceeded when recorded usage plus the estimate
// would exceed the monthly allowance.
func (q *QuotaLedger) Check(ctx context.Context, userID string, estimatedTokens int) error {
	if q.allowance <= 0 {
		return nil
	}

	var used int
	err := q.store.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(tokens), 0) FROM token_usage WHERE user_id = ? AND month = ?`,
		userID, q.month()).Scan(&used)
	if err != nil {
		return fmt.Errorf("store: quota check: %w", err)
	}

	if used+estimatedTokens > q.allowance {
		return fmt.Errorf("%w: %d used + %d estimated > %d allowance",
			extract.ErrQuotaExceeded, used, estimatedTokens, q.allowance)
	}
	return nil
}

// Record adds actual usage to the current month's row.
func (q *QuotaLedger) Record(ctx context.Context, userID string, tokensUsed int) error {
	if tokensUsed <= 0 {
		return nil
	}
	_, err := q.store.db.ExecContext(ctx,
		`INSERT INTO token_usage (user_id, month, tokens) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, month) DO UPDATE SET tokens = tokens + excluded.tokens`,
		userID, q.month(), tokensUsed)
	if err != nil {
		return fmt.Errorf("store: quota record: %w", err)
	}
	return nil
}

// Used reports the tokens recorded for userID in the current month.
func (q *QuotaLedger) Used(ctx context.Context, userID string) (int, error) {
	var used int
	err := q.store.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(tokens), 0) FROM token_usage WHERE user_id = ? AND month = ?`,
		userID, q.month()).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("store: quota used: %w", err)
	}
	return used, nil
}

var _ extract.Quota = (*QuotaLedger)(nil)
