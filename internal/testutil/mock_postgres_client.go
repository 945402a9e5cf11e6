package testutil

import (
	"context"

	"github.com/subdesk/subdesk/internal/logger"
	"github.com/subdesk/subdesk/internal/postgres"
)

var _ postgres.IClient = (*MockPostgresClient)(nil)

// MockPostgresClient runs transactional closures directly. It counts calls
// so tests can assert that work happened inside a transaction.
type MockPostgresClient struct {
	logger *logger.Logger
	// TxCount is the number of WithTx calls made
	TxCount int
}

// NewMockPostgresClient creates a new mock postgres client
func NewMockPostgresClient(logger *logger.Logger) *MockPostgresClient {
	return &MockPostgresClient{
		logger: logger,
	}
}

// WithTx executes fn without a real transaction
func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	c.TxCount++
	return fn(ctx)
}
