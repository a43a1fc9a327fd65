package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/seat-ledger/internal/model"
	"github.com/shopspring/decimal"
)

// PlanRepo provides access to subscription plans.
type PlanRepo struct {
	db *sql.DB
}

func NewPlanRepo(db *sql.DB) *PlanRepo { return &PlanRepo{db: db} }

const planColumns = `id, name, price, duration_days, is_active, created_at`

func scanPlan(row interface{ Scan(...any) error }) (model.Plan, error) {
	var p model.Plan
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.DurationDays, &p.IsActive, &p.CreatedAt)
	return p, err
}

// GetByID loads a plan.  ErrNotFound is returned when it does not exist.
func (r *PlanRepo) GetByID(ctx context.Context, q DBTX, id uint64) (model.Plan, error) {
	p, err := scanPlan(q.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = ?`, id))
	return p, notFound(err)
}

// ListActive returns the plans that can currently be booked, cheapest first.
func (r *PlanRepo) ListActive(ctx context.Context) ([]model.Plan, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+planColumns+` FROM plans WHERE is_active = 1 ORDER BY price, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PlanUpdate names the plan fields an admin may change.  Nil fields are
// left untouched.
type PlanUpdate struct {
	Name         *string
	Price        *decimal.Decimal
	DurationDays *int
	IsActive     *bool
}

// Empty reports whether the update changes nothing.
func (u PlanUpdate) Empty() bool {
	return u.Name == nil && u.Price == nil && u.DurationDays == nil && u.IsActive == nil
}

// Update applies u to the plan with the given id.
func (r *PlanRepo) Update(ctx context.Context, id uint64, u PlanUpdate) error {
	if u.Empty() {
		return nil
	}
	var (
		sets []string
		args []any
	)
	if u.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *u.Name)
	}
	if u.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, *u.Price)
	}
	if u.DurationDays != nil {
		sets = append(sets, "duration_days = ?")
		args = append(args, *u.DurationDays)
	}
	if u.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *u.IsActive)
	}
	args = append(args, id)
	res, err := r.db.ExecContext(ctx, `UPDATE plans SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 for an unchanged row too; confirm the plan exists.
		if _, err := r.GetByID(ctx, r.db, id); err != nil {
			return err
		}
	}
	return nil
}
