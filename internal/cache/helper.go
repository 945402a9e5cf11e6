package cache

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// StartCacheSpan opens a sentry span for a cache operation when the request
// carries a sentry hub, and returns nil otherwise
func StartCacheSpan(ctx context.Context, backend, operation string, data map[string]interface{}) *sentry.Span {
	if sentry.GetHubFromContext(ctx) == nil {
		return nil
	}

	name := "cache." + backend + "." + operation
	span := sentry.StartSpan(ctx, name)
	span.Description = name
	span.Op = "cache"
	for k, v := range data {
		span.SetData(k, v)
	}
	return span
}

// FinishSpan finishes span if one was started
func FinishSpan(span *sentry.Span) {
	if span != nil {
		span.Finish()
	}
}
