// Package context carries log correlation values: the request id assigned
// by the HTTP layer, the agency a unit of work belongs to, and the acting
// operator. logger.FromContext reads these back into log fields.
package context

import "context"

type contextKey string

const (
	requestIDKey contextKey = "observability_request_id"
	agencyIDKey  contextKey = "observability_agency_id"
	actorTypeKey contextKey = "observability_actor_type"
	actorIDKey   contextKey = "observability_actor_id"
)

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if ctx == nil || value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(key).(string)
	return value
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

func WithAgencyID(ctx context.Context, agencyID string) context.Context {
	return withString(ctx, agencyIDKey, agencyID)
}

func AgencyIDFromContext(ctx context.Context) string {
	return stringValue(ctx, agencyIDKey)
}

func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	ctx = withString(ctx, actorTypeKey, actorType)
	return withString(ctx, actorIDKey, actorID)
}

func ActorFromContext(ctx context.Context) (string, string) {
	return stringValue(ctx, actorTypeKey), stringValue(ctx, actorIDKey)
}
