package fakeapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/storefront/api"
	"github.com/MrEthical07/storefront/permission"
	"github.com/google/uuid"
)

type refreshBody struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) addUserLocked(email, hash string, role permission.Role) *user {
	u := &user{id: uuid.NewString(), email: email, passwordHash: hash, role: role}
	s.users[email] = u
	s.usersByID[u.id] = u
	return u
}

// openSession starts a refresh-token family for u and issues the first pair.
func (s *Server) openSession(u *user) (api.Tokens, error) {
	sid, err := newSessionID()
	if err != nil {
		return api.Tokens{}, err
	}
	secret, err := newRefreshSecret()
	if err != nil {
		return api.Tokens{}, err
	}
	refresh, err := encodeRefreshToken(sid, secret)
	if err != nil {
		return api.Tokens{}, err
	}
	s.mu.Lock()
	snap := *u
	s.mu.Unlock()
	access, err := s.issuer.Issue(snap.id, snap.email, snap.role)
	if err != nil {
		return api.Tokens{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sid] = &refreshSession{userID: snap.id, hash: secret.hash()}
	s.access[access] = struct{}{}
	return api.Tokens{Token: access, RefreshToken: refresh, RequiresSetup: snap.requiresSetup}, nil
}

func (s *Server) writeSession(w http.ResponseWriter, u *user) {
	tokens, err := s.openSession(u)
	if err != nil {
		s.logger.Error("open session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

// lookupUser returns a copy of the account registered under email.
func (s *Server) lookupUser(email string) (user, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return user{}, false
	}
	return *u, true
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in api.Credential
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	u, found := s.lookupUser(in.Email)
	if !found || u.passwordHash == "" {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	ok, err := verifyPassword(in.Password, u.passwordHash)
	if err != nil || !ok {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	s.writeSession(w, &u)
}

func (s *Server) handleGuest(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	u := s.addUserLocked("guest-"+uuid.NewString()+"@guest.invalid", "", permission.Guest)
	u.requiresSetup = true
	s.mu.Unlock()
	s.writeSession(w, u)
}

func (s *Server) validEmail(email string) bool {
	return s.validate.Var(email, "required,email") == nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in api.Credential
	if err := decodeBody(r, &in); err != nil || !s.validEmail(in.Email) {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	email := strings.ToLower(in.Email)
	code, err := newCode(codeDigits)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[email]; exists {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	s.codes[email] = code
	w.WriteHeader(http.StatusAccepted)
}

// consumeCode checks and burns the code sent to email.
func (s *Server) consumeCode(email, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	want, ok := s.codes[email]
	if !ok || code == "" || want != code {
		return false
	}
	delete(s.codes, email)
	return true
}

func (s *Server) handleRegisterConfirm(w http.ResponseWriter, r *http.Request) {
	var in api.Credential
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	email := strings.ToLower(in.Email)
	hash, err := hashPassword(in.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.consumeCode(email, in.InviteCode) {
		writeError(w, http.StatusBadRequest, "invalid code")
		return
	}

	s.mu.Lock()
	if _, exists := s.users[email]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	u := s.addUserLocked(email, hash, permission.User)
	s.mu.Unlock()
	s.writeSession(w, u)
}

func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var in api.Credential
	if err := decodeBody(r, &in); err != nil || !s.validEmail(in.Email) {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	// Unknown emails get the same answer.
	if u, ok := s.lookupUser(in.Email); ok {
		if code, err := newCode(codeDigits); err == nil {
			s.mu.Lock()
			s.codes[u.email] = code
			s.mu.Unlock()
		}
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var in api.Credential
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	found, ok := s.lookupUser(in.Email)
	if !ok || !s.consumeCode(found.email, in.ResetCode) {
		writeError(w, http.StatusBadRequest, "invalid code")
		return
	}

	s.mu.Lock()
	u := s.usersByID[found.id]
	u.passwordHash = hash
	s.revokeUserLocked(u.id)
	s.mu.Unlock()
	s.writeSession(w, u)
}

func (s *Server) revokeUserLocked(userID string) {
	for sid, sess := range s.sessions {
		if sess.userID == userID {
			delete(s.sessions, sid)
		}
	}
}

func (s *Server) handleCredentials(w http.ResponseWriter, r *http.Request) {
	var in api.Credential
	if err := decodeBody(r, &in); err != nil || !s.validEmail(in.Email) {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	email := strings.ToLower(in.Email)
	claims := claimsFrom(r.Context())

	s.mu.Lock()
	u, ok := s.usersByID[claims.SubjectID]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "unknown account")
		return
	}
	if other, taken := s.users[email]; taken && other != u {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	delete(s.users, u.email)
	u.email = email
	u.passwordHash = hash
	u.requiresSetup = false
	if u.role == permission.Guest {
		u.role = permission.User
	}
	s.users[email] = u
	s.revokeUserLocked(u.id)
	s.mu.Unlock()
	s.writeSession(w, u)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if d := s.opts.RefreshDelay; d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}

	var in refreshBody
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	sid, secret, err := decodeRefreshToken(in.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	next, err := newRefreshSecret()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.mu.Lock()
	sess, ok := s.sessions[sid]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	if !hashesEqual(sess.hash, secret.hash()) {
		// A rotated-out secret was replayed; the whole family is burned.
		delete(s.sessions, sid)
		s.mu.Unlock()
		s.logger.Warn("refresh token reuse detected", "user_id", sess.userID)
		writeError(w, http.StatusUnauthorized, "refresh token reused")
		return
	}
	sess.hash = next.hash()
	u := *s.usersByID[sess.userID]
	s.mu.Unlock()

	refresh, err := encodeRefreshToken(sid, next)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	access, err := s.issuer.Issue(u.id, u.email, u.role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.mu.Lock()
	s.access[access] = struct{}{}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, api.Tokens{Token: access, RefreshToken: refresh, RequiresSetup: u.requiresSetup})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var in refreshBody
	_ = decodeBody(r, &in)
	claims := claimsFrom(r.Context())
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")

	s.mu.Lock()
	delete(s.access, token)
	if sid, _, err := decodeRefreshToken(in.RefreshToken); err == nil {
		if sess, ok := s.sessions[sid]; ok && sess.userID == claims.SubjectID {
			delete(s.sessions, sid)
		}
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}
