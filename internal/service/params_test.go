package service

import (
	"github.com/subdesk/subdesk/internal/testutil"
)

// newTestServiceParams wires every service dependency to the suite's
// in-memory fakes. Sentry stays nil.
func newTestServiceParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:       s.GetLogger(),
		Config:       s.GetConfig(),
		DB:           s.GetDB(),
		Clock:        s.GetClock(),
		Cache:        s.GetCache(),
		Metrics:      s.GetMetrics(),
		CustomerRepo: stores.CustomerRepo,
		PlanRepo:     stores.PlanRepo,
		SubRepo:      stores.SubscriptionRepo,
		InvoiceRepo:  stores.InvoiceRepo,
	}
}
