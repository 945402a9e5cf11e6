package dto

import (
	"github.com/subdesk/subdesk/internal/domain/invoice"
	"github.com/subdesk/subdesk/internal/types"
)

type BillingHistoryResponse = types.ListResponse[*invoice.HistoryEntry]
