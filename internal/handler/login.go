package handler

import (
	"net/http"

	"photocurator/internal/config"
	"photocurator/internal/logger"
	"photocurator/internal/middleware"
)

// LoginHandler handles POST /auth/login by validating password and issuing a signed session cookie.
func LoginHandler(config *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		password := r.FormValue("password")
		if password != config.Password {
			logger.Warning("Failed login attempt from %s", r.RemoteAddr)
			http.Error(w, "Invalid password", http.StatusUnauthorized)
			return
		}

		token, err := middleware.IssueToken([]byte(config.SessionSecret), middleware.SessionTTL)
		if err != nil {
			logger.Error("Failed to issue session token: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		middleware.SetSessionCookie(w, token)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// LogoutHandler clears the session cookie and redirects to the login page.
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	middleware.ClearSessionCookie(w)

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
