package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"practiceapp/internal/observability"
	contextutils "practiceapp/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorRecoveryConfig configures panic recovery and circuit breaking
type ErrorRecoveryConfig struct {
	// EnableCircuitBreaker enables the circuit breaker
	EnableCircuitBreaker bool
	// CircuitBreakerThreshold is the consecutive 5xx count that opens the circuit
	CircuitBreakerThreshold int
	// CircuitBreakerTimeout is how long the circuit stays open before probing
	CircuitBreakerTimeout time.Duration
}

// DefaultErrorRecoveryConfig returns a default error recovery configuration
func DefaultErrorRecoveryConfig() *ErrorRecoveryConfig {
	return &ErrorRecoveryConfig{
		EnableCircuitBreaker:    false,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
	}
}

// circuitBreakerState represents the state of a circuit breaker
type circuitBreakerState int

const (
	circuitClosed circuitBreakerState = iota
	circuitOpen
	circuitHalfOpen
)

// circuitBreaker tracks failures and manages circuit state
type circuitBreaker struct {
	state       circuitBreakerState
	failures    int
	lastFailure time.Time
	config      *ErrorRecoveryConfig
}

func newCircuitBreaker(config *ErrorRecoveryConfig) *circuitBreaker {
	return &circuitBreaker{
		state:  circuitClosed,
		config: config,
	}
}

// canExecute checks if the circuit breaker allows execution
func (cb *circuitBreaker) canExecute() bool {
	switch cb.state {
	case circuitClosed:
		return true
	case circuitOpen:
		if time.Since(cb.lastFailure) > cb.config.CircuitBreakerTimeout {
			cb.state = circuitHalfOpen
			return true
		}
		return false
	case circuitHalfOpen:
		return true
	default:
		return false
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.failures = 0
	cb.state = circuitClosed
}

func (cb *circuitBreaker) recordFailure() {
	cb.failures++
	cb.lastFailure = time.Now()

	if cb.failures >= cb.config.CircuitBreakerThreshold {
		cb.state = circuitOpen
	}
}

// ErrorRecoveryMiddleware recovers from handler panics with a structured error
// response and optionally sheds load through a circuit breaker once the
// backend starts returning sustained 5xx responses.
func ErrorRecoveryMiddleware(logger *observability.Logger, config *ErrorRecoveryConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultErrorRecoveryConfig()
	}

	var cb *circuitBreaker
	if config.EnableCircuitBreaker {
		cb = newCircuitBreaker(config)
	}

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				stackTrace := string(debug.Stack())
				if logger != nil {
					logger.Error(c.Request.Context(), "Panic recovered in handler", nil, map[string]interface{}{
						"panic":  fmt.Sprintf("%v", err),
						"method": c.Request.Method,
						"path":   c.Request.URL.Path,
						"stack":  stackTrace,
					})
				}

				appErr := contextutils.NewAppError(
					contextutils.ErrorCodeInternalError,
					contextutils.SeverityFatal,
					"Internal server error",
					"A panic occurred while processing the request",
				)
				// Surface the stack only in debug mode
				if gin.Mode() == gin.DebugMode {
					appErr.Details = fmt.Sprintf("%s\nStack trace: %s", appErr.Details, stackTrace)
				}

				writeRecoveryError(c, http.StatusInternalServerError, appErr)
				c.Abort()
			}
		}()

		if cb != nil && !cb.canExecute() {
			appErr := contextutils.NewAppError(
				contextutils.ErrorCodeServiceUnavailable,
				contextutils.SeverityError,
				"Service temporarily unavailable due to high error rate",
				"",
			)
			writeRecoveryError(c, http.StatusServiceUnavailable, appErr)
			c.Abort()
			return
		}

		c.Next()

		if cb != nil {
			if c.Writer.Status() >= 500 {
				cb.recordFailure()
			} else if cb.state == circuitHalfOpen {
				cb.recordSuccess()
			}
		}
	}
}

// shouldRetry reports whether a response status or attached errors indicate a
// transient failure a client may safely retry.
func shouldRetry(statusCode int, errors []*gin.Error) bool {
	if statusCode >= 500 {
		return true
	}
	if statusCode == http.StatusRequestTimeout || statusCode == http.StatusTooManyRequests {
		return true
	}
	for _, err := range errors {
		if contextutils.IsRetryable(err.Err) {
			return true
		}
	}
	return false
}

// writeRecoveryError sends a structured AppError payload without going
// through the handler-layer error utilities, which this package cannot import.
func writeRecoveryError(c *gin.Context, status int, err *contextutils.AppError) {
	errorJSON := err.ToJSON()
	errorJSON["retryable"] = shouldRetry(status, c.Errors)
	c.JSON(status, errorJSON)
}
