package middleware

import (
	"encoding/json"
	"net/http"
)

// CSRFHeader carries the session token on modifying requests.
const CSRFHeader = "X-CSRF-Token"

// CSRF rejects modifying requests whose header token does not match the
// session's token. It must run after the session middleware.
func CSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := GetSession(r)
		if s.CSRFToken == "" {
			s.CSRFToken = newCSRFToken()
			s.MarkDirty()
		}
		if !isSafeMethod(r.Method) {
			if hdr := r.Header.Get(CSRFHeader); hdr == "" || hdr != s.CSRFToken {
				writeError(w, r, http.StatusForbidden, "invalid CSRF token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// CSRFToken returns the current session's token for embedding in pages.
func CSRFToken(r *http.Request) string {
	return GetSession(r).CSRFToken
}

func isSafeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	if IsHTMX(r.Context()) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
		return
	}
	http.Error(w, msg, code)
}
