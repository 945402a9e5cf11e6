package service

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/subdesk/subdesk/internal/api/dto"
	ierr "github.com/subdesk/subdesk/internal/errors"
	"github.com/subdesk/subdesk/internal/types"
)

// DebugService holds administrative tools for exercising the billing engine
// by hand. They are only routed when debug mode is enabled.
type DebugService interface {
	// ResetInvoices deletes every invoice. Subscription schedules are left as
	// they are.
	ResetInvoices(ctx context.Context) (*dto.ResetInvoicesResponse, error)
	// SetDueToday moves one random ACTIVE subscription to today's start of
	// day so the next billing run picks it up
	SetDueToday(ctx context.Context) (*dto.SetDueTodayResponse, error)
}

type debugService struct {
	ServiceParams
}

func NewDebugService(params ServiceParams) DebugService {
	return &debugService{
		ServiceParams: params,
	}
}

func (s *debugService) ResetInvoices(ctx context.Context) (*dto.ResetInvoicesResponse, error) {
	deleted, err := s.InvoiceRepo.DeleteAll(ctx)
	if err != nil {
		return nil, err
	}

	s.Logger.Warnw("all invoices deleted", "deleted_count", deleted)
	return &dto.ResetInvoicesResponse{
		Message:      fmt.Sprintf("Deleted %d invoices", deleted),
		DeletedCount: deleted,
	}, nil
}

func (s *debugService) SetDueToday(ctx context.Context) (*dto.SetDueTodayResponse, error) {
	now := s.now()
	today := types.StartOfDay(now)

	candidates, err := s.SubRepo.ListActiveNotScheduledAt(ctx, today.UTC())
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ierr.NewError("no active subscription to reschedule").
			WithHint("No active subscription found that is not already due today").
			Mark(ierr.ErrNotFound)
	}

	sub := lo.Sample(candidates)
	sub.NextBillingDate = today.UTC()
	sub.UpdatedAt = now.UTC()
	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.Logger.Infow("subscription set due today",
		"subscription_id", sub.ID,
		"next_billing_date", sub.NextBillingDate,
	)
	return &dto.SetDueTodayResponse{
		Message:      fmt.Sprintf("Subscription %s is now due today", sub.ID),
		Subscription: sub,
	}, nil
}
