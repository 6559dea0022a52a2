package http

import (
	"context"
	"log/slog"
)

const serviceName = "campus-auth"

func httpLogger() *slog.Logger {
	return slog.Default().With(
		"service", serviceName,
		"module", "http",
		"layer", "adapter",
	)
}

// logHTTPOperationError records a mapped failure. Client errors log the
// reason at warn; server errors log the full chain at error.
func logHTTPOperationError(ctx context.Context, operation string, statusCode int, code, message string, err error) {
	fields := []any{
		"operation", operation,
		"outcome", "failure",
		"status_code", statusCode,
		"error_code", code,
		"message", message,
		"request_id", requestIDFromContext(ctx),
	}
	if p, ok := PrincipalFromContext(ctx); ok {
		fields = append(fields, "account_id", p.AccountID)
	}
	if statusCode >= 500 {
		if err != nil {
			fields = append(fields, "error", err.Error())
		}
		httpLogger().ErrorContext(ctx, "http operation failed", fields...)
		return
	}
	if err != nil {
		fields = append(fields, "reason", err.Error())
	}
	httpLogger().WarnContext(ctx, "http operation failed", fields...)
}
