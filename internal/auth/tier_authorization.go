package auth

import (
	"log/slog"
	"net/http"
)

// TierAuthorization builds route guards over the tier hierarchy. It only
// inspects the user already placed in context by AuthMiddleware; per-record
// decisions (which document, which subordinate) stay in the services.
type TierAuthorization struct {
	logger *slog.Logger
}

func NewTierAuthorization(logger *slog.Logger) *TierAuthorization {
	return &TierAuthorization{logger: logger}
}

// RequireTierAtMost admits only users whose tier number is <= maxTier, i.e.
// at least as authoritative as that tier.
func (ta *TierAuthorization) RequireTierAtMost(maxTier int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || user == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if user.TierLevel > maxTier {
				ta.logger.WarnContext(r.Context(), "access denied: tier level too low",
					"user_id", user.ID,
					"user_tier", user.TierLevel,
					"required_tier", maxTier)
				http.Error(w, "Forbidden: tier level too low", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuthenticated only asserts that AuthMiddleware ran; issuance rules
// (target tier strictly below issuer) are enforced by the service so the
// error can name the violated rule.
func (ta *TierAuthorization) RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserFromContext(r.Context()); !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
