package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics holds the server-side request instruments. Endpoint labels use
// the gin route template, not the raw path, to keep cardinality bounded.
type HTTPMetrics struct {
	requestDuration metric.Float64Histogram
	inFlight        metric.Int64UpDownCounter
}

// NewHTTPMetrics registers the request instruments on the given provider.
func NewHTTPMetrics(cfg Config, provider metric.MeterProvider) (*HTTPMetrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "caravel"
	}
	meter := provider.Meter(name + "/http")

	requestDuration, err := meter.Float64Histogram("http.server.duration_ms")
	if err != nil {
		return nil, err
	}
	inFlight, err := meter.Int64UpDownCounter("http.server.in_flight")
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{
		requestDuration: requestDuration,
		inFlight:        inFlight,
	}, nil
}

// GinMiddleware tracks in-flight requests and records duration per endpoint
// and status once the handler chain finishes.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		endpoint := routeTemplate(c)
		ctx := c.Request.Context()
		endpointAttrs := metric.WithAttributes(FilterAttributes(
			attribute.String("endpoint", endpoint),
		)...)

		m.inFlight.Add(ctx, 1, endpointAttrs)
		start := time.Now()
		c.Next()
		m.inFlight.Add(ctx, -1, endpointAttrs)

		m.requestDuration.Record(ctx,
			float64(time.Since(start).Milliseconds()),
			metric.WithAttributes(FilterAttributes(
				attribute.String("endpoint", endpoint),
				attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
			)...),
		)
	}
}

// routeTemplate returns the matched route pattern. Unmatched requests (404s,
// bad methods) collapse into one bucket instead of fanning out per path.
func routeTemplate(c *gin.Context) string {
	if route := strings.TrimSpace(c.FullPath()); route != "" {
		return route
	}
	return "unmatched"
}
