package observability

import (
	"errors"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	contextutils "practiceapp/internal/utils"
)

// GinMiddleware creates OpenTelemetry middleware for Gin HTTP requests
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// GinMiddlewareWithErrorHandling wraps the otelgin middleware and, for 4xx/5xx
// responses, annotates the request span with the error taxonomy so failed
// requests are searchable by code and severity.
func GinMiddlewareWithErrorHandling(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		otelgin.Middleware(serviceName)(c)
		c.Next()

		statusCode := c.Writer.Status()
		if statusCode < 400 {
			return
		}
		span := trace.SpanFromContext(c.Request.Context())
		if !span.SpanContext().IsValid() {
			return
		}
		annotateErrorSpan(c, span, statusCode)
	}
}

// annotateErrorSpan records the request failure on the span
func annotateErrorSpan(c *gin.Context, span trace.Span, statusCode int) {
	errorMsg := "client error"
	if statusCode >= 500 {
		errorMsg = "server error"
	}
	severity := severityForStatus(statusCode)

	if appErr := firstAppError(c.Errors); appErr != nil {
		errorMsg = appErr.Message
		severity = string(appErr.Severity)
		span.SetAttributes(
			attribute.String("error.code", string(appErr.Code)),
			attribute.Bool("error.retryable", contextutils.IsRetryable(appErr)),
		)
	} else if len(c.Errors) > 0 {
		errorMsg = c.Errors.Last().Error()
	}

	span.RecordError(errors.New(errorMsg), trace.WithStackTrace(true))
	span.SetStatus(codes.Error, errorMsg)
	span.SetAttributes(
		attribute.Int("http.status_code", statusCode),
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.path", c.Request.URL.Path),
		attribute.String("error.handler", c.HandlerName()),
		attribute.String("error.severity", severity),
	)

	if userID, ok := sessions.Default(c).Get("user_id").(int); ok {
		span.SetAttributes(attribute.Int("error.user_id", userID))
	}
	if c.Request.ContentLength > 0 {
		span.SetAttributes(attribute.Int64("error.request_size", c.Request.ContentLength))
	}
	if statusCode >= 500 {
		span.SetAttributes(attribute.Bool("error.server_error", true))
	}
}

// firstAppError returns the first typed AppError among gin's collected errors
func firstAppError(ginErrors []*gin.Error) *contextutils.AppError {
	for _, err := range ginErrors {
		var appErr *contextutils.AppError
		if errors.As(err.Err, &appErr) {
			return appErr
		}
	}
	return nil
}

func severityForStatus(statusCode int) string {
	switch {
	case statusCode >= 500:
		return string(contextutils.SeverityError)
	case statusCode >= 400:
		return string(contextutils.SeverityWarn)
	default:
		return string(contextutils.SeverityInfo)
	}
}
