package postgres

import (
	"context"
	"time"

	"github.com/subdesk/subdesk/internal/domain/customer"
	"github.com/subdesk/subdesk/internal/logger"
	"github.com/subdesk/subdesk/internal/postgres"
	"github.com/subdesk/subdesk/internal/types"
)

type customerRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewCustomerRepository(db *postgres.DB, logger *logger.Logger) customer.Repository {
	return &customerRepository{db: db, logger: logger}
}

func (r *customerRepository) Create(ctx context.Context, c *customer.Customer) error {
	query := `
		INSERT INTO customers (
			id, name, email, status, created_at, updated_at
		) VALUES (
			:id, :name, :email, :status, :created_at, :updated_at
		)`

	r.logger.Debugw("creating customer", "customer_id", c.ID)

	_, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, c)
	return translateError(err, "Customer", map[string]any{"email": c.Email})
}

func (r *customerRepository) Get(ctx context.Context, id string) (*customer.Customer, error) {
	var c customer.Customer
	q := r.db.GetQuerier(ctx)
	err := q.GetContext(ctx, &c, q.Rebind(`SELECT * FROM customers WHERE id = ?`), id)
	if err != nil {
		return nil, translateError(err, "Customer", map[string]any{"customer_id": id})
	}
	return &c, nil
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	var c customer.Customer
	q := r.db.GetQuerier(ctx)
	err := q.GetContext(ctx, &c, q.Rebind(`SELECT * FROM customers WHERE email = ?`), email)
	if err != nil {
		return nil, translateError(err, "Customer", map[string]any{"email": email})
	}
	return &c, nil
}

func (r *customerRepository) List(ctx context.Context, filter *types.CustomerFilter) ([]*customer.Customer, error) {
	if filter == nil {
		filter = &types.CustomerFilter{QueryFilter: types.NewNoLimitQueryFilter()}
	}
	where := customerWhere(filter)
	query, args := paging(
		`SELECT * FROM customers`+where.String()+` ORDER BY created_at DESC, id DESC`,
		where.args,
		filter.QueryFilter,
	)

	customers := make([]*customer.Customer, 0)
	q := r.db.GetQuerier(ctx)
	if err := q.SelectContext(ctx, &customers, q.Rebind(query), args...); err != nil {
		return nil, translateError(err, "Customer", nil)
	}
	return customers, nil
}

func (r *customerRepository) Count(ctx context.Context, filter *types.CustomerFilter) (int, error) {
	where := customerWhere(filter)

	var count int
	q := r.db.GetQuerier(ctx)
	if err := q.GetContext(ctx, &count, q.Rebind(`SELECT COUNT(*) FROM customers`+where.String()), where.args...); err != nil {
		return 0, translateError(err, "Customer", nil)
	}
	return count, nil
}

func (r *customerRepository) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	q := r.db.GetQuerier(ctx)
	if err := q.GetContext(ctx, &count, q.Rebind(`SELECT COUNT(*) FROM customers WHERE created_at >= ?`), since); err != nil {
		return 0, translateError(err, "Customer", nil)
	}
	return count, nil
}

func (r *customerRepository) Update(ctx context.Context, c *customer.Customer) error {
	query := `
		UPDATE customers SET
			name = :name,
			email = :email,
			status = :status,
			updated_at = :updated_at
		WHERE id = :id`

	r.logger.Debugw("updating customer", "customer_id", c.ID, "status", c.Status)

	res, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, c)
	if err != nil {
		return translateError(err, "Customer", map[string]any{"customer_id": c.ID, "email": c.Email})
	}
	if n, err := rowsAffected(res); err != nil {
		return translateError(err, "Customer", nil)
	} else if n == 0 {
		return notFound("Customer", map[string]any{"customer_id": c.ID})
	}
	return nil
}

func (r *customerRepository) Delete(ctx context.Context, id string) error {
	r.logger.Debugw("deleting customer", "customer_id", id)

	q := r.db.GetQuerier(ctx)
	res, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM customers WHERE id = ?`), id)
	if err != nil {
		return translateError(err, "Customer", map[string]any{"customer_id": id})
	}
	if n, err := rowsAffected(res); err != nil {
		return translateError(err, "Customer", nil)
	} else if n == 0 {
		return notFound("Customer", map[string]any{"customer_id": id})
	}
	return nil
}

func customerWhere(filter *types.CustomerFilter) *whereBuilder {
	where := &whereBuilder{}
	if filter == nil {
		return where
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		where.add(`(name ILIKE ? OR email ILIKE ?)`, pattern, pattern)
	}
	if filter.Status != nil {
		where.add(`status = ?`, *filter.Status)
	}
	return where
}
