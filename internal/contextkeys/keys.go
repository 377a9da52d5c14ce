package contextkeys

import (
	"context"
	"log/slog"

	"github.com/dkarpov/taskboard/internal/token"
)

type contextKey string

const (
	RequestIDKey   contextKey = "request_id"
	LoggerKey      contextKey = "logger"
	TokenClaimsKey contextKey = "token_claims"
)

func WithTokenClaims(ctx context.Context, claims *token.Claims) context.Context {
	return context.WithValue(ctx, TokenClaimsKey, claims)
}

func GetTokenClaims(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(TokenClaimsKey).(*token.Claims)
	return claims, ok
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(LoggerKey).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(RequestIDKey).(string)
	return id, ok
}
