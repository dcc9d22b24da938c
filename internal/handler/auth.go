package handler

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

const authRealm = "quizfeedback"

// basicAuth requires HTTP basic credentials whose password matches the
// configured bcrypt hash. The user name is only logged.
func (h *Handler) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, password, ok := r.BasicAuth()
		if !ok {
			h.requestCredentials(w)
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(h.config.PasswordHash), []byte(password)); err != nil {
			slog.Warn("authentication failed", "user", user, "remote", r.RemoteAddr)
			h.requestCredentials(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) requestCredentials(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+authRealm+`", charset="UTF-8"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

// HashPassword returns the bcrypt hash accepted by basic auth.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
