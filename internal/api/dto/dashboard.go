package dto

import (
	"github.com/shopspring/decimal"
)

type SubscriptionStats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Waiting  int `json:"waiting"`
	Inactive int `json:"inactive"`
}

type CustomerStats struct {
	Total        int `json:"total"`
	Active       int `json:"active"`
	NewThisMonth int `json:"new_this_month"`
}

// DashboardStatsResponse is recomputed on every request
type DashboardStatsResponse struct {
	Subscriptions SubscriptionStats `json:"subscriptions"`
	Customers     CustomerStats     `json:"customers"`
	// MonthlyRevenue is the current plan price summed over ACTIVE subscriptions
	MonthlyRevenue decimal.Decimal `json:"monthly_revenue" swaggertype:"string"`
	// ActualRevenue is the PAID invoice total billed this calendar month
	ActualRevenue decimal.Decimal `json:"actual_revenue" swaggertype:"string"`
}
