package service

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/subdesk/subdesk/internal/api/dto"
	"github.com/subdesk/subdesk/internal/domain/invoice"
	"github.com/subdesk/subdesk/internal/domain/subscription"
	ierr "github.com/subdesk/subdesk/internal/errors"
	"github.com/subdesk/subdesk/internal/sentry"
	"github.com/subdesk/subdesk/internal/types"
)

// BillingService is the billing cycle engine. A run invoices every due
// subscription once and advances its schedule by one cycle.
type BillingService interface {
	// GenerateDueInvoices runs billing as of the service clock
	GenerateDueInvoices(ctx context.Context) (*dto.GenerateInvoicesResponse, error)
	// GenerateDueInvoicesAt runs billing as of now
	GenerateDueInvoicesAt(ctx context.Context, now time.Time) (*dto.GenerateInvoicesResponse, error)
}

type billingService struct {
	ServiceParams
}

func NewBillingService(params ServiceParams) BillingService {
	return &billingService{
		ServiceParams: params,
	}
}

func (s *billingService) GenerateDueInvoices(ctx context.Context) (*dto.GenerateInvoicesResponse, error) {
	return s.GenerateDueInvoicesAt(ctx, s.now())
}

// GenerateDueInvoicesAt scans sequentially. Each subscription is billed in its
// own transaction so a failure only rolls back that subscription.
func (s *billingService) GenerateDueInvoicesAt(ctx context.Context, now time.Time) (*dto.GenerateInvoicesResponse, error) {
	started := time.Now()
	trigger := types.GetBillingTrigger(ctx)

	if s.Sentry != nil {
		span, spanCtx := s.Sentry.StartSpan(ctx, "billing.run", "generate due invoices")
		ctx = spanCtx
		defer sentry.FinishSpan(span)
	}

	due, err := s.SubRepo.ListDue(ctx, now)
	if err != nil {
		s.Logger.Errorw("failed to list due subscriptions", "error", err, "now", now)
		return nil, err
	}

	s.Logger.Infow("billing run started",
		"now", now,
		"due_count", len(due),
		"trigger", trigger,
	)
	if s.Sentry != nil {
		s.Sentry.AddBreadcrumb("billing", "billing run started", map[string]interface{}{
			"due_count": len(due),
			"trigger":   trigger,
		})
	}

	resp := &dto.GenerateInvoicesResponse{
		Items: make([]dto.BillingItemResult, 0, len(due)),
	}
	for _, d := range due {
		item := s.billSubscription(ctx, d.Subscription.ID, now)
		switch item.Status {
		case dto.BillingItemStatusGenerated:
			resp.GeneratedCount++
		case dto.BillingItemStatusSkipped:
			resp.SkippedCount++
		case dto.BillingItemStatusFailed:
			resp.FailedCount++
		}
		resp.Items = append(resp.Items, item)
	}
	resp.Message = fmt.Sprintf("Generated %d invoices", resp.GeneratedCount)

	elapsed := time.Since(started)
	if s.Metrics != nil {
		s.Metrics.ObserveBillingRun(trigger, elapsed)
	}

	s.Logger.Infow("billing run completed",
		"generated_count", resp.GeneratedCount,
		"skipped_count", resp.SkippedCount,
		"failed_count", resp.FailedCount,
		"duration_ms", elapsed.Milliseconds(),
	)
	return resp, nil
}

// billSubscription never returns an error: failures, including panics, are
// reported in the item
func (s *billingService) billSubscription(ctx context.Context, subscriptionID string, now time.Time) (item dto.BillingItemResult) {
	defer func() {
		if r := recover(); r != nil {
			err := ierr.NewErrorf("panic while billing subscription: %v", r).
				Mark(ierr.ErrSystem)
			item = s.failedItem(ctx, subscriptionID, err)
		}
	}()

	var generated *generatedInvoice
	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		d, err := s.SubRepo.GetDueForUpdate(txCtx, subscriptionID, now)
		if err != nil {
			if ierr.IsNotFound(err) {
				// a concurrent run or an admin edit got here first
				return nil
			}
			return err
		}

		generated, err = s.invoice(txCtx, d, now)
		return err
	})
	if err != nil {
		return s.failedItem(ctx, subscriptionID, err)
	}

	if generated == nil {
		s.Logger.Debugw("subscription no longer due, skipping", "subscription_id", subscriptionID)
		return dto.BillingItemResult{
			SubscriptionID: subscriptionID,
			Status:         dto.BillingItemStatusSkipped,
		}
	}

	if s.Metrics != nil {
		s.Metrics.BillingInvoicesGenerated.
			WithLabelValues(generated.invoice.Currency, string(generated.cycle)).
			Inc()
	}

	s.Logger.Infow("invoice generated",
		"subscription_id", subscriptionID,
		"invoice_id", generated.invoice.ID,
		"amount_paid", generated.invoice.AmountPaid,
		"currency", generated.invoice.Currency,
		"next_billing_date", generated.update.NextBillingDate,
		"status", generated.update.Status,
	)

	return dto.BillingItemResult{
		SubscriptionID:  subscriptionID,
		Status:          dto.BillingItemStatusGenerated,
		InvoiceID:       generated.invoice.ID,
		AmountPaid:      lo.ToPtr(generated.invoice.AmountPaid),
		Currency:        generated.invoice.Currency,
		BillingDate:     lo.ToPtr(generated.invoice.BillingDate),
		NextBillingDate: lo.ToPtr(generated.update.NextBillingDate),
		PreviousStatus:  generated.previousStatus,
		NewStatus:       generated.update.Status,
	}
}

type generatedInvoice struct {
	invoice        *invoice.Invoice
	update         subscription.BillingUpdate
	previousStatus types.SubscriptionStatus
	cycle          types.BillingCycle
}

// invoice appends the invoice for one cycle and moves the schedule forward
// from the previous scheduled date, not from now
func (s *billingService) invoice(ctx context.Context, d *subscription.DueSubscription, now time.Time) (*generatedInvoice, error) {
	sub, p := d.Subscription, d.Plan

	next, err := types.NextBillingDate(sub.NextBillingDate.In(s.location()), p.BillingCycle)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Plan has an invalid billing cycle").
			WithReportableDetails(map[string]any{
				"plan_id":       p.ID,
				"billing_cycle": p.BillingCycle,
			}).
			Mark(ierr.ErrValidation)
	}

	inv := &invoice.Invoice{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		SubscriptionID: sub.ID,
		AmountPaid:     p.Price,
		Currency:       p.Currency,
		PaymentStatus:  types.PaymentStatusPaid,
		BillingDate:    now.UTC(),
		CreatedAt:      now.UTC(),
	}
	if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
		return nil, err
	}

	update := subscription.BillingUpdate{
		NextBillingDate: next.UTC(),
		Status:          types.SubscriptionStatusActive,
		UpdatedAt:       now.UTC(),
	}
	if err := s.SubRepo.UpdateBilling(ctx, sub.ID, update); err != nil {
		return nil, err
	}

	return &generatedInvoice{
		invoice:        inv,
		update:         update,
		previousStatus: sub.Status,
		cycle:          p.BillingCycle,
	}, nil
}

func (s *billingService) failedItem(ctx context.Context, subscriptionID string, err error) dto.BillingItemResult {
	s.Logger.Errorw("failed to bill subscription",
		"subscription_id", subscriptionID,
		"error", err,
	)
	if s.Metrics != nil {
		s.Metrics.BillingFailures.Inc()
	}
	if s.Sentry != nil {
		s.Sentry.CaptureException(ctx, err, map[string]string{
			"subscription_id": subscriptionID,
			"component":       "billing",
		})
	}
	return dto.BillingItemResult{
		SubscriptionID: subscriptionID,
		Status:         dto.BillingItemStatusFailed,
		Error:          err.Error(),
	}
}
