// internal/portal/api/auth.go
package api

import (
	"net/http"
	"time"

	"agritour-certification/internal/session"
)

func (s *Server) sendOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if err := decode(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	challenge, err := s.deps.Sessions.SendOTP(r.Context(), req.Identity)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Login code sent", challenge)
}

func (s *Server) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := decode(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	token, sess, err := s.deps.Sessions.VerifyOTP(r.Context(), req.Identity, req.Code)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Signed in", loginResponse{
		Token:     token,
		ExpiresAt: sess.ExpiresAt.Format(time.RFC3339),
		User:      sess.User,
	})
}

// logout revokes the session and drops the live wizard. The saved draft stays.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	sc, ok := session.FromContext(r.Context())
	if !ok {
		writeBadRequest(w, "no session")
		return
	}
	user, _ := sc.User()
	if err := sc.Teardown(r.Context()); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if s.deps.Wizards != nil {
		s.deps.Wizards.Forget(user.ID)
	}
	writeSuccess(w, http.StatusOK, "Signed out", nil)
}
