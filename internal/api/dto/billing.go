package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/subdesk/subdesk/internal/types"
)

// BillingItemStatus is the outcome of one subscription in a billing run
type BillingItemStatus string

const (
	BillingItemStatusGenerated BillingItemStatus = "GENERATED"
	BillingItemStatusSkipped   BillingItemStatus = "SKIPPED"
	BillingItemStatusFailed    BillingItemStatus = "FAILED"
)

// BillingItemResult reports a single subscription processed by a run
type BillingItemResult struct {
	SubscriptionID string            `json:"subscription_id"`
	Status         BillingItemStatus `json:"status"`
	InvoiceID      string            `json:"invoice_id,omitempty"`
	AmountPaid     *decimal.Decimal  `json:"amount_paid,omitempty" swaggertype:"string"`
	Currency       string            `json:"currency,omitempty"`
	BillingDate    *time.Time        `json:"billing_date,omitempty"`
	// NextBillingDate is the schedule after the run
	NextBillingDate *time.Time               `json:"next_billing_date,omitempty"`
	PreviousStatus  types.SubscriptionStatus `json:"previous_status,omitempty"`
	NewStatus       types.SubscriptionStatus `json:"new_status,omitempty"`
	Error           string                   `json:"error,omitempty"`
}

// GenerateInvoicesResponse is the result of one billing run
type GenerateInvoicesResponse struct {
	Message        string              `json:"message"`
	GeneratedCount int                 `json:"generated_count"`
	FailedCount    int                 `json:"failed_count"`
	SkippedCount   int                 `json:"skipped_count"`
	Items          []BillingItemResult `json:"items"`
}
