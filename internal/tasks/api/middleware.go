package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dkarpov/taskboard/internal/contextkeys"
	"github.com/dkarpov/taskboard/internal/token"
)

// Authenticate enforces the bearer credential on every protected
// route: no credential at all answers 401, a present but rejected one
// answers 403. The verified claims are attached to the request context
// for the service layer.
func Authenticate(verifier *token.Verifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)

			claims, err := verifier.Verify(raw)
			if err != nil {
				if errors.Is(err, token.ErrNoCredential) {
					respondError(w, http.StatusUnauthorized, "authorization required")
					return
				}
				log.Error("credential rejected", slog.String("path", r.URL.Path))
				respondError(w, http.StatusForbidden, "credential rejected")
				return
			}

			ctx := contextkeys.WithTokenClaims(r.Context(), claims)

			reqLog := contextkeys.GetLogger(ctx).With(slog.Int64("user_id", claims.UserID))
			ctx = contextkeys.WithLogger(ctx, reqLog)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// RequestLogger assigns a request ID and logs start/completion with
// duration and status. The request-scoped logger is carried in the
// context so later layers keep the same request_id.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.NewString()

			log := logger.With(
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("request_id", requestID),
			)

			ctx := contextkeys.WithLogger(r.Context(), log)
			ctx = contextkeys.WithRequestID(ctx, requestID)

			log.Info("request started")

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			attributes := []any{
				slog.Duration("duration", time.Since(start)),
				slog.Int("status", status),
			}

			if status >= http.StatusInternalServerError {
				log.Error("request failed", attributes...)
			} else {
				log.Info("request completed", attributes...)
			}
		})
	}
}
