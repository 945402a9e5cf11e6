package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/subdesk/subdesk/internal/config"
	"github.com/subdesk/subdesk/internal/logger"
)

type InMemoryCacheSuite struct {
	suite.Suite
	ctx context.Context
}

func TestInMemoryCache(t *testing.T) {
	suite.Run(t, new(InMemoryCacheSuite))
}

func (s *InMemoryCacheSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *InMemoryCacheSuite) newCache(enabled bool) *InMemoryCache {
	cfg := config.GetDefaultConfig()
	cfg.Cache.Enabled = enabled
	return NewInMemoryCache(cfg, logger.NewNopLogger())
}

func (s *InMemoryCacheSuite) TestSetGetDelete() {
	c := s.newCache(true)

	c.Set(s.ctx, "k", "v", time.Minute)
	got, ok := c.Get(s.ctx, "k")
	s.Require().True(ok)
	s.Equal("v", got)

	c.Delete(s.ctx, "k")
	_, ok = c.Get(s.ctx, "k")
	s.False(ok)
}

func (s *InMemoryCacheSuite) TestDeleteByPrefix() {
	c := s.newCache(true)

	c.Set(s.ctx, GenerateKey(PrefixPlanList, "a"), 1, 0)
	c.Set(s.ctx, GenerateKey(PrefixPlanList, "b"), 2, 0)
	c.Set(s.ctx, "other", 3, 0)

	c.DeleteByPrefix(s.ctx, PrefixPlanList)

	_, ok := c.Get(s.ctx, GenerateKey(PrefixPlanList, "a"))
	s.False(ok)
	_, ok = c.Get(s.ctx, GenerateKey(PrefixPlanList, "b"))
	s.False(ok)
	_, ok = c.Get(s.ctx, "other")
	s.True(ok)
}

func (s *InMemoryCacheSuite) TestDisabledAlwaysMisses() {
	c := s.newCache(false)

	c.Set(s.ctx, "k", "v", time.Minute)
	_, ok := c.Get(s.ctx, "k")
	s.False(ok)
}

func (s *InMemoryCacheSuite) TestGenerateKey() {
	s.Equal("plan_list:v1::true:x:10:0", GenerateKey(PrefixPlanList, true, "x", 10, 0))
}
