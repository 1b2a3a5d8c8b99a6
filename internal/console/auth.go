package console

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"qbadmin/internal/authz"
	"qbadmin/internal/session"
)

const loginPath = "/login"

// LoginURL is the login route carrying next, the path to return to.
func LoginURL(next string) string {
	if next == "" {
		return loginPath
	}
	return loginPath + "?" + url.Values{"next": {next}}.Encode()
}

// SafeNext returns next when it is a path on this console, else fallback.
// Absolute and scheme-relative URLs are never followed.
func SafeNext(next, fallback string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	if u.Path == loginPath || u.Path == "/logout" {
		return fallback
	}
	return next
}

// RequireSession redirects to login when no token is stored, carrying the
// requested path. Otherwise it hydrates the permission cache and attaches
// the capability object to the request context.
func (s *Server) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caps, err := s.app.Capabilities(r.Context())
		if errors.Is(err, session.ErrNoSession) {
			http.Redirect(w, r, LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		if err != nil {
			s.logger.Warn("read session permissions", zap.Error(err))
			s.render(w, r, http.StatusUnauthorized, "message", page{
				Title: "Session unreadable",
				Error: "the stored token could not be decoded; log out and paste a new one",
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(authz.WithCapabilities(r.Context(), caps)))
	})
}

// RequirePermission passes when the session holds any of perms, and sends
// everyone else to the landing page.
func (s *Server) RequirePermission(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authz.FromContext(r.Context()).Has(perms...) {
				s.logger.Debug("permission denied", zap.String("path", r.URL.Path), zap.Strings("required", perms))
				http.Redirect(w, r, s.landing, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type loginView struct {
	Next string
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	next := SafeNext(r.URL.Query().Get("next"), "")
	s.render(w, r, http.StatusOK, "login", page{Title: "Sign in", Data: loginView{Next: next}})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "login", page{Title: "Sign in", Error: err.Error()})
		return
	}
	next := SafeNext(r.PostForm.Get("next"), "")
	token := strings.TrimSpace(r.PostForm.Get("token"))
	if token == "" {
		s.render(w, r, http.StatusUnprocessableEntity, "login", page{
			Title: "Sign in",
			Error: "paste an admin bearer token",
			Data:  loginView{Next: next},
		})
		return
	}
	if _, err := session.ClaimsPermissions(token); err != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "login", page{
			Title: "Sign in",
			Error: "that does not look like a JWT: " + err.Error(),
			Data:  loginView{Next: next},
		})
		return
	}
	if err := s.app.Session.Set(r.Context(), token); err != nil {
		s.render(w, r, http.StatusInternalServerError, "login", page{Title: "Sign in", Error: err.Error(), Data: loginView{Next: next}})
		return
	}
	s.logger.Info("operator signed in", zap.String("subject", session.Subject(token)))
	http.Redirect(w, r, SafeNext(next, s.landing), http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Session.Clear(r.Context()); err != nil {
		s.logger.Warn("clear session", zap.Error(err))
	}
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}
