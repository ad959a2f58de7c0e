package extract

import "context"

// Quota is the pre-flight allowance contract. Check runs once before any
// engine call; a failing check aborts the whole parse with ErrQuotaExceeded
// (implementations should wrap or return it). Record reports actual usage
// after a successful parse.
type Quota interface {
	Check(ctx context.Context, userID string, estimatedTokens int) error
	Record(ctx context.Context, userID string, tokensUsed int) error
}

// NoQuota performs no accounting. Useful for tests and single-user setups.
type NoQuota struct{}

func (NoQuota) Check(ctx context.Context, userID string, estimatedTokens int) error { return nil }
func (NoQuota) Record(ctx context.Context, userID string, tokensUsed int) error     { return nil }
