package invoice

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/subdesk/subdesk/internal/types"
)

// Invoice is an append-only record of one billed cycle
type Invoice struct {
	ID             string `db:"id" json:"id"`
	SubscriptionID string `db:"subscription_id" json:"subscription_id"`

	// AmountPaid is the plan price at the time of billing
	AmountPaid decimal.Decimal `db:"amount_paid" json:"amount_paid" swaggertype:"string"`
	Currency   string          `db:"currency" json:"currency"`

	PaymentStatus types.PaymentStatus `db:"payment_status" json:"payment_status"`
	BillingDate   time.Time           `db:"billing_date" json:"billing_date"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
}

// HistoryEntry is an invoice joined with the customer, plan and
// subscription schedule it belongs to
type HistoryEntry struct {
	Invoice
	CustomerID      string    `db:"customer_id" json:"customer_id"`
	CustomerName    string    `db:"customer_name" json:"customer_name"`
	CustomerEmail   string    `db:"customer_email" json:"customer_email"`
	PlanID          string    `db:"plan_id" json:"plan_id"`
	PlanName        string    `db:"plan_name" json:"plan_name"`
	NextBillingDate time.Time `db:"next_billing_date" json:"next_billing_date"`
}
