package service

import (
	"context"

	"github.com/subdesk/subdesk/internal/api/dto"
	"github.com/subdesk/subdesk/internal/types"
)

type InvoiceService interface {
	// GetBillingHistory lists invoices newest first, joined with the
	// customer, the plan and the subscription's next billing date
	GetBillingHistory(ctx context.Context, filter *types.InvoiceFilter) (*dto.BillingHistoryResponse, error)
}

type invoiceService struct {
	ServiceParams
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{
		ServiceParams: params,
	}
}

func (s *invoiceService) GetBillingHistory(ctx context.Context, filter *types.InvoiceFilter) (*dto.BillingHistoryResponse, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	entries, err := s.InvoiceRepo.ListHistory(ctx, filter)
	if err != nil {
		return nil, err
	}

	total, err := s.InvoiceRepo.CountHistory(ctx, filter)
	if err != nil {
		return nil, err
	}

	resp := types.NewListResponse(entries, total, filter.GetLimit(), filter.GetOffset())
	return &resp, nil
}
