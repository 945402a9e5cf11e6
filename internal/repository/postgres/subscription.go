package postgres

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/subdesk/subdesk/internal/domain/plan"
	"github.com/subdesk/subdesk/internal/domain/subscription"
	"github.com/subdesk/subdesk/internal/logger"
	"github.com/subdesk/subdesk/internal/postgres"
	"github.com/subdesk/subdesk/internal/types"
)

type subscriptionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, logger: logger}
}

// dueRow scans a subscription joined with its plan. Plan columns are
// aliased "plan.<column>".
type dueRow struct {
	subscription.Subscription
	Plan plan.Plan `db:"plan"`
}

const dueSelect = `
	SELECT s.*,
		p.id AS "plan.id",
		p.name AS "plan.name",
		p.price AS "plan.price",
		p.currency AS "plan.currency",
		p.billing_cycle AS "plan.billing_cycle",
		p.is_active AS "plan.is_active",
		p.created_at AS "plan.created_at",
		p.updated_at AS "plan.updated_at"
	FROM subscriptions s
	JOIN plans p ON p.id = s.plan_id`

func (row *dueRow) toDomain() *subscription.DueSubscription {
	sub := row.Subscription
	p := row.Plan
	return &subscription.DueSubscription{Subscription: &sub, Plan: &p}
}

func billableStatuses() pq.StringArray {
	return lo.Map(types.BillableSubscriptionStatuses, func(s types.SubscriptionStatus, _ int) string {
		return string(s)
	})
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, customer_id, plan_id, payment_type, status, start_date, next_billing_date,
			end_date, payment_method_token, created_at, updated_at
		) VALUES (
			:id, :customer_id, :plan_id, :payment_type, :status, :start_date, :next_billing_date,
			:end_date, :payment_method_token, :created_at, :updated_at
		)`

	r.logger.Debugw("creating subscription",
		"subscription_id", sub.ID,
		"customer_id", sub.CustomerID,
		"plan_id", sub.PlanID,
	)

	_, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, sub)
	return translateError(err, "Subscription", map[string]any{
		"customer_id": sub.CustomerID,
		"plan_id":     sub.PlanID,
	})
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	q := r.db.GetQuerier(ctx)
	if err := q.GetContext(ctx, &sub, q.Rebind(`SELECT * FROM subscriptions WHERE id = ?`), id); err != nil {
		return nil, translateError(err, "Subscription", map[string]any{"subscription_id": id})
	}
	return &sub, nil
}

func (r *subscriptionRepository) List(ctx context.Context, filter *types.SubscriptionFilter) ([]*subscription.Subscription, error) {
	if filter == nil {
		filter = &types.SubscriptionFilter{QueryFilter: types.NewNoLimitQueryFilter()}
	}
	where := subscriptionWhere(filter)
	query, args := paging(
		`SELECT s.* FROM subscriptions s JOIN customers c ON c.id = s.customer_id`+
			where.String()+` ORDER BY s.created_at DESC, s.id DESC`,
		where.args,
		filter.QueryFilter,
	)

	subs := make([]*subscription.Subscription, 0)
	q := r.db.GetQuerier(ctx)
	if err := q.SelectContext(ctx, &subs, q.Rebind(query), args...); err != nil {
		return nil, translateError(err, "Subscription", nil)
	}
	return subs, nil
}

func (r *subscriptionRepository) Count(ctx context.Context, filter *types.SubscriptionFilter) (int, error) {
	where := subscriptionWhere(filter)
	query := `SELECT COUNT(*) FROM subscriptions s JOIN customers c ON c.id = s.customer_id` + where.String()

	var count int
	q := r.db.GetQuerier(ctx)
	if err := q.GetContext(ctx, &count, q.Rebind(query), where.args...); err != nil {
		return 0, translateError(err, "Subscription", nil)
	}
	return count, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		UPDATE subscriptions SET
			plan_id = :plan_id,
			payment_type = :payment_type,
			status = :status,
			start_date = :start_date,
			next_billing_date = :next_billing_date,
			end_date = :end_date,
			payment_method_token = :payment_method_token,
			updated_at = :updated_at
		WHERE id = :id`

	r.logger.Debugw("updating subscription", "subscription_id", sub.ID, "status", sub.Status)

	res, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, sub)
	if err != nil {
		return translateError(err, "Subscription", map[string]any{"subscription_id": sub.ID})
	}
	if n, err := rowsAffected(res); err != nil {
		return translateError(err, "Subscription", nil)
	} else if n == 0 {
		return notFound("Subscription", map[string]any{"subscription_id": sub.ID})
	}
	return nil
}

func (r *subscriptionRepository) Delete(ctx context.Context, id string) error {
	r.logger.Debugw("deleting subscription", "subscription_id", id)

	q := r.db.GetQuerier(ctx)
	res, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM subscriptions WHERE id = ?`), id)
	if err != nil {
		return translateError(err, "Subscription", map[string]any{"subscription_id": id})
	}
	if n, err := rowsAffected(res); err != nil {
		return translateError(err, "Subscription", nil)
	} else if n == 0 {
		return notFound("Subscription", map[string]any{"subscription_id": id})
	}
	return nil
}

func (r *subscriptionRepository) ListDue(ctx context.Context, now time.Time) ([]*subscription.DueSubscription, error) {
	query := dueSelect + `
	WHERE s.status = ANY(?) AND s.next_billing_date <= ?
	ORDER BY s.next_billing_date, s.id`

	var rows []dueRow
	q := r.db.GetQuerier(ctx)
	if err := q.SelectContext(ctx, &rows, q.Rebind(query), billableStatuses(), now); err != nil {
		return nil, translateError(err, "Subscription", nil)
	}

	due := make([]*subscription.DueSubscription, 0, len(rows))
	for i := range rows {
		due = append(due, rows[i].toDomain())
	}
	return due, nil
}

// GetDueForUpdate relies on READ COMMITTED re-evaluating the WHERE clause
// after waiting on a row lock, so a row advanced by a concurrent run drops out.
func (r *subscriptionRepository) GetDueForUpdate(ctx context.Context, id string, now time.Time) (*subscription.DueSubscription, error) {
	query := dueSelect + `
	WHERE s.id = ? AND s.status = ANY(?) AND s.next_billing_date <= ?
	FOR UPDATE OF s`

	var row dueRow
	q := r.db.GetQuerier(ctx)
	if err := q.GetContext(ctx, &row, q.Rebind(query), id, billableStatuses(), now); err != nil {
		return nil, translateError(err, "Due subscription", map[string]any{"subscription_id": id})
	}
	return row.toDomain(), nil
}

func (r *subscriptionRepository) UpdateBilling(ctx context.Context, id string, update subscription.BillingUpdate) error {
	query := `
		UPDATE subscriptions SET
			next_billing_date = ?,
			status = ?,
			updated_at = ?
		WHERE id = ?`

	q := r.db.GetQuerier(ctx)
	res, err := q.ExecContext(ctx, q.Rebind(query), update.NextBillingDate, update.Status, update.UpdatedAt, id)
	if err != nil {
		return translateError(err, "Subscription", map[string]any{"subscription_id": id})
	}
	if n, err := rowsAffected(res); err != nil {
		return translateError(err, "Subscription", nil)
	} else if n == 0 {
		return notFound("Subscription", map[string]any{"subscription_id": id})
	}
	return nil
}

func (r *subscriptionRepository) SetStatusByCustomer(
	ctx context.Context,
	customerID string,
	status types.SubscriptionStatus,
	at time.Time,
) (int, error) {
	query := `UPDATE subscriptions SET status = ?, updated_at = ? WHERE customer_id = ? AND status <> ?`

	q := r.db.GetQuerier(ctx)
	res, err := q.ExecContext(ctx, q.Rebind(query), status, at, customerID, status)
	if err != nil {
		return 0, translateError(err, "Subscription", map[string]any{"customer_id": customerID})
	}
	n, err := rowsAffected(res)
	if err != nil {
		return 0, translateError(err, "Subscription", nil)
	}

	r.logger.Debugw("updated customer subscriptions", "customer_id", customerID, "status", status, "count", n)
	return n, nil
}

func (r *subscriptionRepository) DeleteByCustomer(ctx context.Context, customerID string) (int, error) {
	q := r.db.GetQuerier(ctx)
	res, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM subscriptions WHERE customer_id = ?`), customerID)
	if err != nil {
		return 0, translateError(err, "Subscription", map[string]any{"customer_id": customerID})
	}
	n, err := rowsAffected(res)
	if err != nil {
		return 0, translateError(err, "Subscription", nil)
	}
	return n, nil
}

func (r *subscriptionRepository) ListIDsByCustomer(ctx context.Context, customerID string) ([]string, error) {
	ids := make([]string, 0)
	q := r.db.GetQuerier(ctx)
	if err := q.SelectContext(ctx, &ids, q.Rebind(`SELECT id FROM subscriptions WHERE customer_id = ?`), customerID); err != nil {
		return nil, translateError(err, "Subscription", map[string]any{"customer_id": customerID})
	}
	return ids, nil
}

func (r *subscriptionRepository) CountByCustomers(ctx context.Context, customerIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(customerIDs))
	if len(customerIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		CustomerID string `db:"customer_id"`
		Count      int    `db:"count"`
	}
	query := `SELECT customer_id, COUNT(*) AS count FROM subscriptions WHERE customer_id = ANY(?) GROUP BY customer_id`
	q := r.db.GetQuerier(ctx)
	if err := q.SelectContext(ctx, &rows, q.Rebind(query), pq.StringArray(customerIDs)); err != nil {
		return nil, translateError(err, "Subscription", nil)
	}
	for _, row := range rows {
		counts[row.CustomerID] = row.Count
	}
	return counts, nil
}

func (r *subscriptionRepository) CountByStatus(ctx context.Context) (map[types.SubscriptionStatus]int, error) {
	var rows []struct {
		Status types.SubscriptionStatus `db:"status"`
		Count  int                      `db:"count"`
	}
	q := r.db.GetQuerier(ctx)
	if err := q.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS count FROM subscriptions GROUP BY status`); err != nil {
		return nil, translateError(err, "Subscription", nil)
	}

	counts := make(map[types.SubscriptionStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *subscriptionRepository) SumActivePlanPrices(ctx context.Context) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(p.price), 0)
		FROM subscriptions s
		JOIN plans p ON p.id = s.plan_id
		WHERE s.status = ?`

	var total decimal.Decimal
	q := r.db.GetQuerier(ctx)
	if err := q.GetContext(ctx, &total, q.Rebind(query), types.SubscriptionStatusActive); err != nil {
		return decimal.Zero, translateError(err, "Subscription", nil)
	}
	return total, nil
}

func (r *subscriptionRepository) ListActiveNotScheduledAt(ctx context.Context, at time.Time) ([]*subscription.Subscription, error) {
	query := `SELECT * FROM subscriptions WHERE status = ? AND next_billing_date <> ? ORDER BY id`

	subs := make([]*subscription.Subscription, 0)
	q := r.db.GetQuerier(ctx)
	if err := q.SelectContext(ctx, &subs, q.Rebind(query), types.SubscriptionStatusActive, at); err != nil {
		return nil, translateError(err, "Subscription", nil)
	}
	return subs, nil
}

func subscriptionWhere(filter *types.SubscriptionFilter) *whereBuilder {
	where := &whereBuilder{}
	if filter == nil {
		return where
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		where.add(`(c.name ILIKE ? OR c.email ILIKE ?)`, pattern, pattern)
	}
	if filter.CustomerID != "" {
		where.add(`s.customer_id = ?`, filter.CustomerID)
	}
	if filter.PlanID != "" {
		where.add(`s.plan_id = ?`, filter.PlanID)
	}
	if len(filter.SubscriptionStatus) > 0 {
		statuses := lo.Map(filter.SubscriptionStatus, func(s types.SubscriptionStatus, _ int) string {
			return string(s)
		})
		where.add(`s.status = ANY(?)`, pq.StringArray(statuses))
	}
	return where
}
