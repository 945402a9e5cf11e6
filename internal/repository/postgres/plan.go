package postgres

import (
	"context"
	"errors"

	"github.com/lib/pq"
	"github.com/subdesk/subdesk/internal/domain/plan"
	ierr "github.com/subdesk/subdesk/internal/errors"
	"github.com/subdesk/subdesk/internal/logger"
	"github.com/subdesk/subdesk/internal/postgres"
	"github.com/subdesk/subdesk/internal/types"
)

type planRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPlanRepository(db *postgres.DB, logger *logger.Logger) plan.Repository {
	return &planRepository{db: db, logger: logger}
}

func (r *planRepository) Create(ctx context.Context, p *plan.Plan) error {
	query := `
		INSERT INTO plans (
			id, name, price, currency, billing_cycle, is_active, created_at, updated_at
		) VALUES (
			:id, :name, :price, :currency, :billing_cycle, :is_active, :created_at, :updated_at
		)`

	r.logger.Debugw("creating plan", "plan_id", p.ID, "name", p.Name)

	_, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, p)
	return translateError(err, "Plan", map[string]any{"name": p.Name})
}

func (r *planRepository) Get(ctx context.Context, id string) (*plan.Plan, error) {
	var p plan.Plan
	q := r.db.GetQuerier(ctx)
	if err := q.GetContext(ctx, &p, q.Rebind(`SELECT * FROM plans WHERE id = ?`), id); err != nil {
		return nil, translateError(err, "Plan", map[string]any{"plan_id": id})
	}
	return &p, nil
}

func (r *planRepository) List(ctx context.Context, filter *types.PlanFilter) ([]*plan.Plan, error) {
	if filter == nil {
		filter = &types.PlanFilter{QueryFilter: types.NewNoLimitQueryFilter()}
	}
	where := planWhere(filter)
	query, args := paging(
		`SELECT * FROM plans`+where.String()+` ORDER BY created_at DESC, id DESC`,
		where.args,
		filter.QueryFilter,
	)

	plans := make([]*plan.Plan, 0)
	q := r.db.GetQuerier(ctx)
	if err := q.SelectContext(ctx, &plans, q.Rebind(query), args...); err != nil {
		return nil, translateError(err, "Plan", nil)
	}
	return plans, nil
}

func (r *planRepository) Count(ctx context.Context, filter *types.PlanFilter) (int, error) {
	where := planWhere(filter)

	var count int
	q := r.db.GetQuerier(ctx)
	if err := q.GetContext(ctx, &count, q.Rebind(`SELECT COUNT(*) FROM plans`+where.String()), where.args...); err != nil {
		return 0, translateError(err, "Plan", nil)
	}
	return count, nil
}

func (r *planRepository) Update(ctx context.Context, p *plan.Plan) error {
	query := `
		UPDATE plans SET
			name = :name,
			price = :price,
			currency = :currency,
			billing_cycle = :billing_cycle,
			is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id`

	r.logger.Debugw("updating plan", "plan_id", p.ID)

	res, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, p)
	if err != nil {
		return translateError(err, "Plan", map[string]any{"plan_id": p.ID, "name": p.Name})
	}
	if n, err := rowsAffected(res); err != nil {
		return translateError(err, "Plan", nil)
	} else if n == 0 {
		return notFound("Plan", map[string]any{"plan_id": p.ID})
	}
	return nil
}

func (r *planRepository) Delete(ctx context.Context, id string) error {
	r.logger.Debugw("deleting plan", "plan_id", id)

	q := r.db.GetQuerier(ctx)
	res, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM plans WHERE id = ?`), id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
			return ierr.WithError(err).
				WithHint("Plan is in use by one or more subscriptions").
				WithReportableDetails(map[string]any{"plan_id": id}).
				Mark(ierr.ErrInvalidOperation)
		}
		return translateError(err, "Plan", map[string]any{"plan_id": id})
	}
	if n, err := rowsAffected(res); err != nil {
		return translateError(err, "Plan", nil)
	} else if n == 0 {
		return notFound("Plan", map[string]any{"plan_id": id})
	}
	return nil
}

func planWhere(filter *types.PlanFilter) *whereBuilder {
	where := &whereBuilder{}
	if filter == nil {
		return where
	}
	if filter.Search != "" {
		where.add(`name ILIKE ?`, likePattern(filter.Search))
	}
	if filter.ActiveOnly {
		where.add(`is_active = TRUE`)
	}
	return where
}
