// Package nowpayments authenticates and decodes NOWPayments IPN
// deliveries.
package nowpayments

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	settlementdomain "github.com/peakshop/tollgate/internal/settlement/domain"
)

// SignatureHeader carries the hex HMAC-SHA512 of the raw request body.
const SignatureHeader = "x-nowpayments-sig"

type Verifier struct {
	ipnSecret string
}

func NewVerifier(ipnSecret string) *Verifier {
	return &Verifier{ipnSecret: strings.TrimSpace(ipnSecret)}
}

func (v *Verifier) Provider() string {
	return "nowpayments"
}

// Verify checks the body signature before anything is parsed. The raw
// bytes are signed, not a re-serialization.
func (v *Verifier) Verify(payload []byte, headers http.Header) error {
	if v.ipnSecret == "" {
		return settlementdomain.ErrAuthenticationFailed
	}

	signature := strings.TrimSpace(headers.Get(SignatureHeader))
	if signature == "" {
		return settlementdomain.ErrAuthenticationFailed
	}

	mac := hmac.New(sha512.New, []byte(v.ipnSecret))
	_, _ = mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
		return settlementdomain.ErrAuthenticationFailed
	}
	return nil
}

// Sign computes the signature for a payload, used by tests.
func (v *Verifier) Sign(payload []byte) string {
	mac := hmac.New(sha512.New, []byte(v.ipnSecret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

type ipnPayload struct {
	PaymentStatus string          `json:"payment_status"`
	PaymentID     json.RawMessage `json:"payment_id"`
	InvoiceID     json.RawMessage `json:"invoice_id"`
	ID            json.RawMessage `json:"id"`
	OrderID       string          `json:"order_id"`
}

func (v *Verifier) Parse(payload []byte) (*settlementdomain.Event, error) {
	var body ipnPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, settlementdomain.ErrInvalidPayload
	}

	paymentID := firstIdentifier(body.PaymentID, body.InvoiceID, body.ID)
	if paymentID == "" {
		return nil, settlementdomain.ErrInvalidPayload
	}

	return &settlementdomain.Event{
		PaymentID: paymentID,
		Status:    strings.ToLower(strings.TrimSpace(body.PaymentStatus)),
		OrderID:   strings.TrimSpace(body.OrderID),
	}, nil
}

// firstIdentifier returns the first non-empty id field. NOWPayments
// sends these as numbers or strings depending on the event.
func firstIdentifier(candidates ...json.RawMessage) string {
	for _, raw := range candidates {
		if len(raw) == 0 {
			continue
		}
		var asString string
		if err := json.Unmarshal(raw, &asString); err == nil {
			if trimmed := strings.TrimSpace(asString); trimmed != "" {
				return trimmed
			}
			continue
		}
		var asNumber json.Number
		if err := json.Unmarshal(raw, &asNumber); err == nil {
			if trimmed := strings.TrimSpace(asNumber.String()); trimmed != "" && trimmed != "null" {
				return trimmed
			}
		}
	}
	return ""
}
