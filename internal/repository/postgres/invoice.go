package postgres

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/subdesk/subdesk/internal/domain/invoice"
	"github.com/subdesk/subdesk/internal/logger"
	"github.com/subdesk/subdesk/internal/postgres"
	"github.com/subdesk/subdesk/internal/types"
)

type invoiceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, logger: logger}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		INSERT INTO invoices (
			id, subscription_id, amount_paid, currency, payment_status, billing_date, created_at
		) VALUES (
			:id, :subscription_id, :amount_paid, :currency, :payment_status, :billing_date, :created_at
		)`

	r.logger.Debugw("creating invoice",
		"invoice_id", inv.ID,
		"subscription_id", inv.SubscriptionID,
		"amount_paid", inv.AmountPaid,
	)

	_, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, inv)
	return translateError(err, "Invoice", map[string]any{"subscription_id": inv.SubscriptionID})
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	q := r.db.GetQuerier(ctx)
	if err := q.GetContext(ctx, &inv, q.Rebind(`SELECT * FROM invoices WHERE id = ?`), id); err != nil {
		return nil, translateError(err, "Invoice", map[string]any{"invoice_id": id})
	}
	return &inv, nil
}

const historyFrom = `
	FROM invoices i
	JOIN subscriptions s ON s.id = i.subscription_id
	JOIN customers c ON c.id = s.customer_id
	JOIN plans p ON p.id = s.plan_id`

func (r *invoiceRepository) ListHistory(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.HistoryEntry, error) {
	if filter == nil {
		filter = &types.InvoiceFilter{QueryFilter: types.NewNoLimitQueryFilter()}
	}
	where := historyWhere(filter)
	query, args := paging(`
		SELECT i.*,
			s.customer_id,
			c.name AS customer_name,
			c.email AS customer_email,
			s.plan_id,
			p.name AS plan_name,
			s.next_billing_date`+historyFrom+where.String()+`
		ORDER BY i.billing_date DESC, i.id DESC`,
		where.args,
		filter.QueryFilter,
	)

	entries := make([]*invoice.HistoryEntry, 0)
	q := r.db.GetQuerier(ctx)
	if err := q.SelectContext(ctx, &entries, q.Rebind(query), args...); err != nil {
		return nil, translateError(err, "Invoice", nil)
	}
	return entries, nil
}

func (r *invoiceRepository) CountHistory(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	where := historyWhere(filter)

	var count int
	q := r.db.GetQuerier(ctx)
	if err := q.GetContext(ctx, &count, q.Rebind(`SELECT COUNT(*)`+historyFrom+where.String()), where.args...); err != nil {
		return 0, translateError(err, "Invoice", nil)
	}
	return count, nil
}

func (r *invoiceRepository) DeleteAll(ctx context.Context) (int, error) {
	res, err := r.db.GetQuerier(ctx).ExecContext(ctx, `DELETE FROM invoices`)
	if err != nil {
		return 0, translateError(err, "Invoice", nil)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return 0, translateError(err, "Invoice", nil)
	}
	r.logger.Infow("deleted all invoices", "count", n)
	return n, nil
}

func (r *invoiceRepository) DeleteBySubscriptions(ctx context.Context, subscriptionIDs []string) (int, error) {
	if len(subscriptionIDs) == 0 {
		return 0, nil
	}

	q := r.db.GetQuerier(ctx)
	res, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM invoices WHERE subscription_id = ANY(?)`), pq.StringArray(subscriptionIDs))
	if err != nil {
		return 0, translateError(err, "Invoice", nil)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return 0, translateError(err, "Invoice", nil)
	}
	return n, nil
}

func (r *invoiceRepository) SumPaid(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount_paid), 0)
		FROM invoices
		WHERE payment_status = ? AND billing_date >= ? AND billing_date < ?`

	var total decimal.Decimal
	q := r.db.GetQuerier(ctx)
	if err := q.GetContext(ctx, &total, q.Rebind(query), types.PaymentStatusPaid, start, end); err != nil {
		return decimal.Zero, translateError(err, "Invoice", nil)
	}
	return total, nil
}

func historyWhere(filter *types.InvoiceFilter) *whereBuilder {
	where := &whereBuilder{}
	if filter == nil {
		return where
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		where.add(`(c.name ILIKE ? OR c.email ILIKE ?)`, pattern, pattern)
	}
	if filter.SubscriptionID != "" {
		where.add(`i.subscription_id = ?`, filter.SubscriptionID)
	}
	if filter.PaymentStatus != nil {
		where.add(`i.payment_status = ?`, *filter.PaymentStatus)
	}
	if filter.StartTime != nil {
		where.add(`i.billing_date >= ?`, *filter.StartTime)
	}
	if filter.EndTime != nil {
		where.add(`i.billing_date < ?`, *filter.EndTime)
	}
	return where
}
