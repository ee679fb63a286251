// Package domain contains the settlement pipeline's models: processed
// payment markers, the purchase ledger, and decoded webhook events.
package domain

import "github.com/bwmarrin/snowflake"

// Outcome classifies what a webhook delivery did. Every outcome except
// a storage failure is success-class to the provider so it stops
// retrying.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeIgnored     Outcome = "ignored"
	OutcomeDuplicate   Outcome = "duplicate_ignored"
	OutcomeBadOrderRef Outcome = "bad_order_id"
)

// StatusFinished is the only provider status that settles. Everything
// else (waiting, confirming, confirmed, sending, partially_paid,
// expired, failed, refunded) is acknowledged without side effects.
const StatusFinished = "finished"

// ProcessedPayment marks a provider payment id as settled. The insert
// into this table is the idempotency gate.
type ProcessedPayment struct {
	PaymentID   string `gorm:"column:payment_id;primaryKey"`
	ProcessedAt int64  `gorm:"column:processed_at;not null"`
}

// TableName sets the database table name.
func (ProcessedPayment) TableName() string { return "processed_payments" }

// Purchase is one append-only ledger row for a settled package order.
type Purchase struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"-"`
	UserID      int64        `gorm:"column:user_id;not null" json:"user_id"`
	PackageCode string       `gorm:"column:package_code;type:text;not null" json:"package_code"`
	Quantity    int64        `gorm:"column:quantity;not null" json:"quantity"`
	PriceUSD    int64        `gorm:"column:price_usd;not null" json:"price_usd"`
	PurchasedAt int64        `gorm:"column:purchased_at;not null" json:"purchased_at"`
}

// TableName sets the database table name.
func (Purchase) TableName() string { return "purchases" }

// Event is a decoded payment webhook.
type Event struct {
	PaymentID string
	Status    string
	OrderID   string
}
