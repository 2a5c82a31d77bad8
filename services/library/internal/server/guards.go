package server

import (
	"net/http"

	"settle/pkg/domain"
	"settle/services/library/internal/app"
	"settle/services/library/internal/security"
)

const roleAuthor = domain.RoleAuthor

type authHandler func(http.ResponseWriter, *http.Request, app.Principal)

// authenticated rejects requests without a valid bearer token.
func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.audit(r, security.EventAuthorize, security.OutcomeFail, "reason", "missing_token")
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		principal, err := s.app.Authenticate(token)
		if err != nil {
			s.audit(r, security.EventAuthorize, security.OutcomeFail, "reason", "invalid_token")
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r, principal)
	})
}

// requireRole layers a role check on top of authenticated.
func (s *Server) requireRole(role domain.UserRole, next authHandler) http.Handler {
	return s.authenticated(func(w http.ResponseWriter, r *http.Request, p app.Principal) {
		if err := app.RequireRole(p, role); err != nil {
			s.audit(r, security.EventAuthorize, security.OutcomeFail, "user_id", p.UserID, "role", p.Role, "reason", "forbidden")
			writeAppError(w, r, err)
			return
		}
		next(w, r, p)
	})
}
