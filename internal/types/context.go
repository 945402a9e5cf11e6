package types

import (
	"context"
)

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxRequestID     ContextKey = "ctx_request_id"
	CtxDBTransaction ContextKey = "ctx_db_transaction"
	CtxBillingRunBy  ContextKey = "ctx_billing_run_by"
)

const HeaderRequestID = "X-Request-ID"

// Billing run triggers, used as a metric label
const (
	BillingTriggerAPI = "api"
	BillingTriggerCLI = "cli"
)

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, CtxRequestID, requestID)
}

// GetBillingTrigger returns who started the billing run on ctx, defaulting
// to the API
func GetBillingTrigger(ctx context.Context) string {
	if trigger, ok := ctx.Value(CtxBillingRunBy).(string); ok && trigger != "" {
		return trigger
	}
	return BillingTriggerAPI
}

func SetBillingTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, CtxBillingRunBy, trigger)
}
