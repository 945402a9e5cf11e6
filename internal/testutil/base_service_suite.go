package testutil

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/subdesk/subdesk/internal/cache"
	"github.com/subdesk/subdesk/internal/clock"
	"github.com/subdesk/subdesk/internal/config"
	"github.com/subdesk/subdesk/internal/domain/customer"
	"github.com/subdesk/subdesk/internal/domain/plan"
	"github.com/subdesk/subdesk/internal/domain/subscription"
	"github.com/subdesk/subdesk/internal/logger"
	"github.com/subdesk/subdesk/internal/metrics"
	"github.com/subdesk/subdesk/internal/types"
	"github.com/subdesk/subdesk/internal/validator"
)

// Stores holds the in-memory repositories, linked to each other the way the
// database tables are
type Stores struct {
	CustomerRepo     *InMemoryCustomerStore
	PlanRepo         *InMemoryPlanStore
	SubscriptionRepo *InMemorySubscriptionStore
	InvoiceRepo      *InMemoryInvoiceStore
}

// NewStores creates linked stores that enforce the same references and
// restrictions as the schema
func NewStores() Stores {
	customers := NewInMemoryCustomerStore()
	plans := NewInMemoryPlanStore()
	subs := NewInMemorySubscriptionStore()
	invoices := NewInMemoryInvoiceStore()

	subs.customers = customers
	subs.plans = plans
	plans.subscriptions = subs
	invoices.subscriptions = subs

	return Stores{
		CustomerRepo:     customers,
		PlanRepo:         plans,
		SubscriptionRepo: subs,
		InvoiceRepo:      invoices,
	}
}

// Clear empties every store
func (s Stores) Clear() {
	s.InvoiceRepo.Clear()
	s.SubscriptionRepo.Clear()
	s.PlanRepo.Clear()
	s.CustomerRepo.Clear()
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	stores  Stores
	db      *MockPostgresClient
	logger  *logger.Logger
	config  *config.Configuration
	clock   *clock.FixedClock
	cache   cache.Cache
	metrics *metrics.Registry
}

// DefaultTestNow is the fixed clock reading every test starts from
var DefaultTestNow = time.Date(2024, time.March, 15, 9, 30, 0, 0, time.UTC)

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	s.config = config.GetDefaultConfig()
	s.logger = logger.NewNopLogger()
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.stores = NewStores()
	s.db = NewMockPostgresClient(s.logger)
	s.clock = clock.NewFixedClock(DefaultTestNow)
	s.cache = cache.NewCache(cache.NewInMemoryCache(s.config, s.logger))
	s.metrics = metrics.NewRegistry()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.stores.Clear()
	s.cache.Flush(s.ctx)
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetDB returns the test transaction client
func (s *BaseServiceTestSuite) GetDB() *MockPostgresClient {
	return s.db
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetClock() *clock.FixedClock {
	return s.clock
}

func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

func (s *BaseServiceTestSuite) GetMetrics() *metrics.Registry {
	return s.metrics
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.clock.Now().UTC()
}

// CreateTestCustomer stores an ACTIVE customer
func (s *BaseServiceTestSuite) CreateTestCustomer(name, email string) *customer.Customer {
	c := &customer.Customer{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CUSTOMER),
		Name:      name,
		Email:     email,
		Status:    types.CustomerStatusActive,
		BaseModel: types.GetDefaultBaseModel(s.GetNow()),
	}
	s.Require().NoError(s.stores.CustomerRepo.Create(s.ctx, c))
	return c
}

// CreateTestPlan stores an active KRW plan
func (s *BaseServiceTestSuite) CreateTestPlan(name string, price int64, cycle types.BillingCycle) *plan.Plan {
	p := &plan.Plan{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PLAN),
		Name:         name,
		Price:        decimal.NewFromInt(price),
		Currency:     types.DefaultCurrency,
		BillingCycle: cycle,
		IsActive:     true,
		BaseModel:    types.GetDefaultBaseModel(s.GetNow()),
	}
	s.Require().NoError(s.stores.PlanRepo.Create(s.ctx, p))
	return p
}

// CreateTestSubscription stores a RECURRING subscription
func (s *BaseServiceTestSuite) CreateTestSubscription(
	customerID, planID string,
	status types.SubscriptionStatus,
	nextBillingDate time.Time,
) *subscription.Subscription {
	token := types.PaymentTypeRecurring.PaymentMethodToken()
	sub := &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		CustomerID:         customerID,
		PlanID:             planID,
		PaymentType:        types.PaymentTypeRecurring,
		Status:             status,
		StartDate:          nextBillingDate,
		NextBillingDate:    nextBillingDate,
		PaymentMethodToken: &token,
		BaseModel:          types.GetDefaultBaseModel(s.GetNow()),
	}
	s.Require().NoError(s.stores.SubscriptionRepo.Create(s.ctx, sub))
	return sub
}
