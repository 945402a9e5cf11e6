package sentry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/subdesk/subdesk/internal/config"
	"github.com/subdesk/subdesk/internal/logger"
)

func TestDisabledServiceIsNoop(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Sentry.Enabled = false
	svc := NewSentryService(cfg, logger.NewNopLogger())

	assert.False(t, svc.Enabled())
	assert.NoError(t, svc.Init())

	ctx := context.Background()
	svc.CaptureException(ctx, errors.New("boom"), map[string]string{"k": "v"})
	svc.AddBreadcrumb("billing", "run", nil)

	span, spanCtx := svc.StartSpan(ctx, "billing.run", "run")
	assert.Nil(t, span)
	assert.Equal(t, ctx, spanCtx)
	FinishSpan(span)

	assert.True(t, svc.Flush(time.Second))
}
