package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/propagation"

	"github.com/southtrip/caravel/internal/auditcontext"
	obscontext "github.com/southtrip/caravel/internal/observability/context"
	"github.com/southtrip/caravel/internal/observability/tracing"
)

// actorIDHeader names the back-office operator on requests forwarded by the
// gateway, which has already authenticated them.
const actorIDHeader = "X-Actor-Id"

// requestAttribution copies caller identity onto the request context so
// audit rows and logs carry who did what from where. It runs after the
// logging middleware, which assigns the request ID.
func requestAttribution() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := tracing.ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		if requestID := strings.TrimSpace(c.GetString("request_id")); requestID != "" {
			ctx = auditcontext.WithRequestID(ctx, requestID)
		}
		if actorID := strings.TrimSpace(c.GetHeader(actorIDHeader)); actorID != "" {
			ctx = auditcontext.WithActor(ctx, "user", actorID)
			ctx = obscontext.WithActor(ctx, "user", actorID)
		}
		ctx = auditcontext.WithIPAddress(ctx, c.ClientIP())
		ctx = auditcontext.WithUserAgent(ctx, c.Request.UserAgent())

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// actorFromRequest resolves the acting operator: an explicit value in the
// request body wins, then the gateway header.
func actorFromRequest(c *gin.Context, fromBody string) string {
	if v := strings.TrimSpace(fromBody); v != "" {
		return v
	}
	_, actorID := auditcontext.ActorFromContext(c.Request.Context())
	return actorID
}
