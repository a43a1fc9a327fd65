package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/iliyamo/seat-ledger/internal/model"
	"github.com/iliyamo/seat-ledger/internal/repository"
)

// PlanService reads and maintains subscription plans.
type PlanService struct {
	*core
}

func (s *PlanService) ListActive(ctx context.Context) ([]model.Plan, error) {
	plans, err := s.repos.Plans.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// UpdatePlan applies a partial update.  Bookings already made keep the
// price and dates they were created with.
func (s *PlanService) UpdatePlan(ctx context.Context, id uint64, u repository.PlanUpdate) (model.Plan, error) {
	var v validator
	v.check(!u.Empty(), "body", "at least one field is required")
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		u.Name = &name
		v.check(name != "" && len(name) <= 120, "name", "must be 1-120 characters")
	}
	if u.Price != nil {
		v.check(validMoney(*u.Price), "price", "must be a non-negative amount with at most two decimals")
	}
	if u.DurationDays != nil {
		v.check(*u.DurationDays > 0, "duration_days", "must be positive")
	}
	if err := v.err(); err != nil {
		return model.Plan{}, err
	}
	if err := s.repos.Plans.Update(ctx, id, u); err != nil {
		return model.Plan{}, translate(err, ErrPlanNotFound, "update plan")
	}
	p, err := s.repos.Plans.GetByID(ctx, s.db, id)
	return p, translate(err, ErrPlanNotFound, "load plan")
}
