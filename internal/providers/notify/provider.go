package notify

import "context"

// Provider delivers out-of-band notifications to a user after a
// settlement. Failures are advisory; callers never roll back on them.
type Provider interface {
	SendMessage(ctx context.Context, userID int64, message string) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) SendMessage(ctx context.Context, userID int64, message string) error {
	return nil
}
