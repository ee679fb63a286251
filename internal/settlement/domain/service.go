package domain

import (
	"context"
	"net/http"

	"github.com/peakshop/tollgate/pkg/db/pagination"
)

type Service interface {
	// HandleWebhook runs the full settlement pipeline over one raw
	// delivery. It returns ErrAuthenticationFailed on a bad signature,
	// a storage error when persistence fails, and an Outcome otherwise.
	HandleWebhook(ctx context.Context, payload []byte, headers http.Header) (Outcome, error)
	ListPurchases(ctx context.Context, page pagination.Pagination) ([]Purchase, int64, error)
}

// Verifier authenticates and decodes one provider's webhook deliveries.
type Verifier interface {
	Provider() string
	Verify(payload []byte, headers http.Header) error
	Parse(payload []byte) (*Event, error)
}
