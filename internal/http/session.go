package httpserver

import (
	"errors"
	"net/http"

	"github.com/Clark-Hu/movie-votes/internal/auth"
)

const defaultLanding = "/movies"

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	next := auth.SafeNext(r.URL.Query().Get("next"), defaultLanding)
	if auth.FromContext(r.Context()).Authenticated() {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, pageLogin, "Log in", loginView{Next: next})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Malformed form submission.")
		return
	}
	username := r.PostForm.Get("username")
	next := auth.SafeNext(r.PostForm.Get("next"), defaultLanding)

	user, err := s.sessions.Authenticate(r.Context(), username, r.PostForm.Get("password"))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Info("login failed", "username", username, "remote", r.RemoteAddr)
			s.render(w, r, http.StatusUnprocessableEntity, pageLogin, "Log in", loginView{
				Next:     next,
				Username: username,
				Error:    "Please enter a correct username and password.",
			})
			return
		}
		s.renderInternalError(w, r, "login", err)
		return
	}

	if err := s.sessions.Login(w, r, user); err != nil {
		s.renderInternalError(w, r, "login: save session", err)
		return
	}
	s.logger.Info("login", "user_id", user.ID)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Logout(w, r); err != nil {
		s.renderInternalError(w, r, "logout", err)
		return
	}
	http.Redirect(w, r, defaultLanding, http.StatusSeeOther)
}
