package http

import (
	"net/http"
	"strings"
)

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Redirect string `json:"redirect,omitempty"`
}

type sessionResponse struct {
	LoggedIn bool `json:"loggedin"`
}

// Login reads username and password from a JSON body or a form and logs the
// session in. A local redirect target answers with 303 on success.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	if isJSON(r) {
		if err := decodeJSON(r, &payload); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_payload", Message: err.Error()})
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_payload", Message: err.Error()})
			return
		}
		payload = loginPayload{
			Username: r.PostForm.Get("username"),
			Password: r.PostForm.Get("password"),
			Redirect: r.Form.Get("redirect"),
		}
	}
	if strings.TrimSpace(payload.Username) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_payload", Message: "username is required"})
		return
	}

	if !s.auth.Login(r.Context(), payload.Username, payload.Password) {
		s.logger.WithContext(r.Context()).Info("login rejected", "username", payload.Username)
		writeJSON(w, http.StatusUnauthorized, sessionResponse{LoggedIn: false})
		return
	}
	if target, ok := localRedirect(payload.Redirect); ok {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{LoggedIn: true})
}

// Logout drops the CMS credentials of the session. The session falls back to
// the public user even when the CMS call fails.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	loggedOut := s.auth.Logout(r.Context())
	if target, ok := localRedirect(r.URL.Query().Get("redirect")); ok {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"loggedout": loggedOut})
}
