package llm

import "context"

type contextKey int

const (
	purposeKey contextKey = iota
	attemptKey
)

// WithPurpose labels the request for event logging ("grade-answer").
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom returns the purpose label, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}

// WithAttempt tags the request with the attempt it grades.
func WithAttempt(ctx context.Context, attemptID string) context.Context {
	return context.WithValue(ctx, attemptKey, attemptID)
}

// AttemptFrom returns the attempt id, or "".
func AttemptFrom(ctx context.Context) string {
	v, _ := ctx.Value(attemptKey).(string)
	return v
}
