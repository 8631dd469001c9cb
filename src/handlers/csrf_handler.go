package handlers

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/base64"
	"net/http"

	"github.com/username/tradelog/backend/src/logger"
	"github.com/username/tradelog/backend/src/utils"
)

const csrfCookieName = "_csrf_token"

// GetCSRFToken issues a fresh double-submit token: the same value goes into
// an HttpOnly cookie and the response header/body, and mutating requests
// must echo it back in X-CSRF-Token.
func GetCSRFToken(w http.ResponseWriter, r *http.Request) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		logger.L.Error("Failed to generate CSRF token", "error", err)
		utils.SendJSONError(w, "Failed to generate CSRF token", http.StatusInternalServerError)
		return
	}
	token := base64.StdEncoding.EncodeToString(b)

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		HttpOnly: true,
		Secure:   false, // Set to true in production with HTTPS
		MaxAge:   3600,
	})

	w.Header().Set("X-CSRF-Token", token)
	utils.WriteJSON(w, http.StatusOK, map[string]string{"csrfToken": token})
}

// CSRFMiddleware enforces the double-submit check on every non-GET request
// it wraps. OPTIONS preflights pass through.
func CSRFMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			headerToken := r.Header.Get("X-CSRF-Token")
			cookie, err := r.Cookie(csrfCookieName)
			if headerToken != "" && err == nil &&
				hmac.Equal([]byte(headerToken), []byte(cookie.Value)) {
				next.ServeHTTP(w, r)
				return
			}

			logger.L.Warn("CSRF validation failed",
				"method", r.Method,
				"path", r.URL.Path,
				"hasHeaderToken", headerToken != "",
				"hasCookie", err == nil)
			utils.SendJSONError(w, "CSRF token validation failed", http.StatusForbidden)
		})
	}
}
