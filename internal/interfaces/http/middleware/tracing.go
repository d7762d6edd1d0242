package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cloudfly/dian-service/internal/infrastructure/logger"
)

// Tracing returns otelgin followed by a handler that adds request and
// tenant attributes to the server span. Install both with Use(...).
// 5xx responses mark the span failed.
func Tracing(serviceName string, enabled bool) []gin.HandlerFunc {
	if !enabled {
		return nil
	}
	return []gin.HandlerFunc{otelgin.Middleware(serviceName), enrichSpan}
}

// enrichSpan runs inside the otelgin span, which ends after it returns
func enrichSpan(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())
	if requestID := c.GetString(logger.RequestIDKey); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}

	c.Next()

	if !span.IsRecording() {
		return
	}
	if v, ok := c.Get(JWTTenantIDKey); ok {
		if tenantID, ok := v.(int64); ok {
			span.SetAttributes(attribute.Int64("tenant_id", tenantID))
		}
	}
	if status := c.Writer.Status(); status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}
