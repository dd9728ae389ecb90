package auth

import (
	"net/http"
	"strings"

	"github.com/molda-invest/api/internal/platform/httpx"
	"github.com/molda-invest/api/internal/shared"
)

// RequireUser resolves the Bearer token and stores the owner id on the
// request context. Requests without a valid token get 401.
func (s *Service) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}
		userID, err := s.ValidateToken(r.Context(), token)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithOwner(r.Context(), userID)))
	})
}
