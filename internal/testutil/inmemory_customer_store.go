package testutil

import (
	"context"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/subdesk/subdesk/internal/domain/customer"
	ierr "github.com/subdesk/subdesk/internal/errors"
	"github.com/subdesk/subdesk/internal/types"
)

// InMemoryCustomerStore implements customer.Repository
type InMemoryCustomerStore struct {
	*InMemoryStore[*customer.Customer]
}

// NewInMemoryCustomerStore creates a new in-memory customer store
func NewInMemoryCustomerStore() *InMemoryCustomerStore {
	return &InMemoryCustomerStore{
		InMemoryStore: NewInMemoryStore[*customer.Customer](),
	}
}

func copyCustomer(c *customer.Customer) *customer.Customer {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}

func (s *InMemoryCustomerStore) Create(ctx context.Context, c *customer.Customer) error {
	if existing, _ := s.GetByEmail(ctx, c.Email); existing != nil {
		return ierr.NewError("duplicate customer email").
			WithHint("Customer already exists").
			WithReportableDetails(map[string]any{"email": c.Email}).
			Mark(ierr.ErrAlreadyExists)
	}
	return s.InMemoryStore.Create(ctx, c.ID, copyCustomer(c))
}

func (s *InMemoryCustomerStore) Get(ctx context.Context, id string) (*customer.Customer, error) {
	c, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyCustomer(c), nil
}

func (s *InMemoryCustomerStore) GetByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	items, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, c *customer.Customer, _ interface{}) bool {
		return c.Email == email
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, notFound(email)
	}
	return copyCustomer(items[0]), nil
}

func (s *InMemoryCustomerStore) List(ctx context.Context, filter *types.CustomerFilter) ([]*customer.Customer, error) {
	items, err := s.InMemoryStore.List(ctx, filter, customerFilterFn, customerSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(c *customer.Customer, _ int) *customer.Customer {
		return copyCustomer(c)
	}), nil
}

func (s *InMemoryCustomerStore) Count(ctx context.Context, filter *types.CustomerFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, customerFilterFn)
}

func (s *InMemoryCustomerStore) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	return s.InMemoryStore.Count(ctx, nil, func(_ context.Context, c *customer.Customer, _ interface{}) bool {
		return !c.CreatedAt.Before(since)
	})
}

func (s *InMemoryCustomerStore) Update(ctx context.Context, c *customer.Customer) error {
	if existing, _ := s.GetByEmail(ctx, c.Email); existing != nil && existing.ID != c.ID {
		return ierr.NewError("duplicate customer email").
			WithHint("Customer already exists").
			WithReportableDetails(map[string]any{"email": c.Email}).
			Mark(ierr.ErrAlreadyExists)
	}
	return s.InMemoryStore.Update(ctx, c.ID, copyCustomer(c))
}

func (s *InMemoryCustomerStore) Delete(ctx context.Context, id string) error {
	return s.InMemoryStore.Delete(ctx, id)
}

func customerFilterFn(_ context.Context, c *customer.Customer, filter interface{}) bool {
	f, ok := filter.(*types.CustomerFilter)
	if !ok || f == nil {
		return true
	}
	if f.Search != "" && !containsFold(c.Name, f.Search) && !containsFold(c.Email, f.Search) {
		return false
	}
	if f.Status != nil && c.Status != *f.Status {
		return false
	}
	return true
}

func customerSortFn(i, j *customer.Customer) bool {
	if i.CreatedAt.Equal(j.CreatedAt) {
		return i.ID > j.ID
	}
	return i.CreatedAt.After(j.CreatedAt)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(substr)))
}
