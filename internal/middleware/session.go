package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	sessionCookieName = "FOLIO_SESSION"
	sessionLifetime   = 30 * 24 * time.Hour
)

type ctxKey string

const (
	ctxKeySession ctxKey = "session"
	ctxKeyIsHTMX  ctxKey = "is_htmx"
)

// SessionData identifies one visitor. Page state itself lives server side,
// keyed by ID.
type SessionData struct {
	ID        string    `json:"id"`
	CSRFToken string    `json:"csrf,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	// internal dirty flag; not serialized
	dirty bool
}

// Sessions signs and verifies the session cookie.
type Sessions struct {
	key    []byte
	secure bool
}

// NewSessions returns a session manager signing with key. An empty key is
// replaced by a random one, which invalidates sessions on restart.
func NewSessions(key string, secure bool, logger *zap.Logger) *Sessions {
	s := &Sessions{secure: secure}
	if key != "" {
		s.key = []byte(key)
		return s
	}
	s.key = make([]byte, 32)
	if _, err := rand.Read(s.key); err != nil {
		s.key = []byte("insecure-dev-key-please-set-FOLIO_SESSION_KEY")
	}
	if logger != nil {
		logger.Info("session: using ephemeral signing key; set FOLIO_SESSION_KEY to keep sessions across restarts")
	}
	return s
}

// Middleware loads or initializes a session and stores it in request context.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sd, fromCookie := s.read(r)
		if sd.ID == "" {
			sd = &SessionData{
				ID:        randID(),
				CSRFToken: newCSRFToken(),
				CreatedAt: time.Now().UTC(),
				dirty:     true,
			}
		}
		ctx := context.WithValue(r.Context(), ctxKeySession, sd)
		rw := newBeforeWriteRecorder(w, func(w http.ResponseWriter) {
			if sd.dirty || !fromCookie {
				s.write(w, sd)
			}
		})
		next.ServeHTTP(rw, r.WithContext(ctx))
		// nothing written yet, e.g. HEAD
		rw.flushHook()
	})
}

// GetSession returns session data from context
func GetSession(r *http.Request) *SessionData {
	if sd, ok := r.Context().Value(ctxKeySession).(*SessionData); ok {
		return sd
	}
	return &SessionData{}
}

// MarkDirty flags the session for writing at end of request
func (s *SessionData) MarkDirty() { s.dirty = true }

func (s *Sessions) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return mac.Sum(nil)
}

func (s *Sessions) read(r *http.Request) (*SessionData, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return &SessionData{}, false
	}
	payloadPart, sigPart, ok := strings.Cut(c.Value, ".")
	if !ok {
		return &SessionData{}, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return &SessionData{}, false
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil {
		return &SessionData{}, false
	}
	if !hmac.Equal(sig, s.sign(payload)) {
		return &SessionData{}, false
	}
	var sd SessionData
	if err := json.Unmarshal(payload, &sd); err != nil {
		return &SessionData{}, false
	}
	return &sd, true
}

func (s *Sessions) write(w http.ResponseWriter, sd *SessionData) {
	b, _ := json.Marshal(sd)
	value := base64.RawURLEncoding.EncodeToString(b) + "." + base64.RawURLEncoding.EncodeToString(s.sign(b))
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sessionLifetime),
	})
	sd.dirty = false
}

func randID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func newCSRFToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// beforeWriteRecorder runs a hook once, right before headers are sent.
type beforeWriteRecorder struct {
	http.ResponseWriter
	hook  func(http.ResponseWriter)
	wrote bool
}

func newBeforeWriteRecorder(w http.ResponseWriter, hook func(http.ResponseWriter)) *beforeWriteRecorder {
	return &beforeWriteRecorder{ResponseWriter: w, hook: hook}
}

func (rw *beforeWriteRecorder) flushHook() {
	if rw.wrote {
		return
	}
	rw.wrote = true
	if rw.hook != nil {
		rw.hook(rw.ResponseWriter)
	}
}

func (rw *beforeWriteRecorder) WriteHeader(status int) {
	rw.flushHook()
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *beforeWriteRecorder) Write(b []byte) (int, error) {
	rw.flushHook()
	return rw.ResponseWriter.Write(b)
}

func (rw *beforeWriteRecorder) Flush() {
	rw.flushHook()
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
