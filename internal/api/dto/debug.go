package dto

import (
	"github.com/subdesk/subdesk/internal/domain/subscription"
)

type ResetInvoicesResponse struct {
	Message      string `json:"message"`
	DeletedCount int    `json:"deleted_count"`
}

type SetDueTodayResponse struct {
	Message      string                     `json:"message"`
	Subscription *subscription.Subscription `json:"subscription"`
}
