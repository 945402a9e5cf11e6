package invoice

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/subdesk/subdesk/internal/types"
)

// Repository defines the interface for invoice data access
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id string) (*Invoice, error)
	// ListHistory returns invoices newest billing date first
	ListHistory(ctx context.Context, filter *types.InvoiceFilter) ([]*HistoryEntry, error)
	CountHistory(ctx context.Context, filter *types.InvoiceFilter) (int, error)
	DeleteAll(ctx context.Context) (int, error)
	DeleteBySubscriptions(ctx context.Context, subscriptionIDs []string) (int, error)
	// SumPaid totals PAID invoices billed in [start, end)
	SumPaid(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
}
