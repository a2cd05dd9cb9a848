package middleware

import (
	"net/http"
	"strings"
)

// publicPaths są dostępne bez logowania
var publicPaths = map[string]bool{
	"/login":      true,
	"/auth/login": true,
}

// AuthMiddleware sprawdza, czy użytkownik ma ważny, podpisany token sesji.
// API dostaje 401, strony są przekierowywane na /login.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r.URL.Path) || authenticated(r, secret) {
				next.ServeHTTP(w, r)
				return
			}

			if wantsJSON(r) {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		})
	}
}

func isPublic(path string) bool {
	return publicPaths[path] || strings.HasPrefix(path, "/static/")
}

func authenticated(r *http.Request, secret []byte) bool {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return false
	}
	_, err = ValidateToken(secret, cookie.Value)
	return err == nil
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
		r.Header.Get("Content-Type") == "application/json"
}
