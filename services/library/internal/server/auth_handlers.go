package server

import (
	"net/http"

	"settle/services/library/internal/app"
	"settle/services/library/internal/security"
)

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, s.signupLimiter, "too many signup attempts") {
		s.audit(r, security.EventSignup, security.OutcomeRateLimited)
		return
	}
	var req signUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.audit(r, security.EventSignup, security.OutcomeFail, "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		s.audit(r, security.EventSignup, security.OutcomeFail, "reason", "invalid_input")
		writeValidationError(w, validationMessages(err))
		return
	}
	user, token, err := s.app.SignUp(r.Context(), app.SignUpInput{
		UserName: req.UserName,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		s.audit(r, security.EventSignup, security.OutcomeFail, "reason", err.Error())
		writeAppError(w, r, err)
		return
	}
	s.audit(r, security.EventSignup, security.OutcomeSuccess, "user_id", user.ID)
	writeJSON(w, http.StatusCreated, authResponse{User: user, Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
		s.audit(r, security.EventLogin, security.OutcomeRateLimited)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.audit(r, security.EventLogin, security.OutcomeFail, "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		s.audit(r, security.EventLogin, security.OutcomeFail, "reason", "invalid_input")
		writeValidationError(w, validationMessages(err))
		return
	}
	user, token, err := s.app.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.audit(r, security.EventLogin, security.OutcomeFail, "reason", err.Error())
		writeAppError(w, r, err)
		return
	}
	s.audit(r, security.EventLogin, security.OutcomeSuccess, "user_id", user.ID)
	writeJSON(w, http.StatusOK, authResponse{User: user, Token: token})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, p app.Principal) {
	user, err := s.app.Profile(r.Context(), p.UserID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
