package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/josh-kwaku/transferpro-backend/internal/auth"
	"github.com/josh-kwaku/transferpro-backend/internal/domain"
	"github.com/josh-kwaku/transferpro-backend/internal/handler"
	"github.com/josh-kwaku/transferpro-backend/internal/logging"
)

type userLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Auth requires a valid bearer token and stores its claims on the context.
// When users is set, the token's subject must still be an active user, so a
// suspension takes effect before the token expires.
func Auth(secret string, users userLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			}

			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			log := logging.FromContext(r.Context())
			claims, err := auth.ValidateToken(token, secret)
			if err != nil {
				log.Debug("token rejected", "error", err)
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			if users != nil {
				user, err := users.GetByID(r.Context(), claims.UserID)
				switch {
				case errors.Is(err, domain.ErrNotFound):
					log.Debug("token for unknown user", "user_id", claims.UserID)
					handler.RespondAppError(w, handler.ErrInvalidToken, nil)
					return
				case err != nil:
					handler.RespondDomainError(w, err)
					return
				case !user.IsActive():
					log.Warn("request from inactive user", "user_id", user.ID, "status", user.Status)
					handler.RespondAppError(w, handler.ErrAccountSuspended, nil)
					return
				}
			}

			ctx := auth.ContextWithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
