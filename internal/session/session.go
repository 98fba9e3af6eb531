// Package session keeps the logged-in username and pending flash messages in
// a signed cookie.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	CookieName = "session"

	FlashSuccess = "success"
	FlashDanger  = "danger"

	defaultMaxAge = 7 * 24 * time.Hour
)

type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

type Session struct {
	Username string
	Flashes  []Flash
}

func (s *Session) AddFlash(category, message string) {
	s.Flashes = append(s.Flashes, Flash{Category: category, Message: message})
}

// PopFlashes returns the pending flashes and removes them from the session.
// The session must be saved afterwards for the removal to stick.
func (s *Session) PopFlashes() []Flash {
	flashes := s.Flashes
	s.Flashes = nil
	return flashes
}

type claims struct {
	jwt.RegisteredClaims
	Username string  `json:"username,omitempty"`
	Flashes  []Flash `json:"flashes,omitempty"`
}

type Manager struct {
	secret []byte
	maxAge time.Duration
	secure bool
}

func NewManager(secret string, secure bool) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("session secret must not be empty")
	}
	return &Manager{secret: []byte(secret), maxAge: defaultMaxAge, secure: secure}, nil
}

// Load returns the session stored in the request cookie. A missing, expired or
// tampered cookie yields an empty session.
func (m *Manager) Load(r *http.Request) Session {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return Session{}
	}

	var c claims
	token, err := jwt.ParseWithClaims(cookie.Value, &c, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		slog.Warn("discarding invalid session cookie", "error", err)
		return Session{}
	}

	return Session{Username: c.Username, Flashes: c.Flashes}
}

func (m *Manager) Save(w http.ResponseWriter, s Session) error {
	if s.Username == "" && len(s.Flashes) == 0 {
		http.SetCookie(w, m.cookie("", -1))
		return nil
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
		},
		Username: s.Username,
		Flashes:  s.Flashes,
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("error signing session: %w", err)
	}

	http.SetCookie(w, m.cookie(signed, int(m.maxAge.Seconds())))
	return nil
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

type contextKey struct{}

// RequireUser redirects requests without a logged-in user to loginPath and
// exposes the username to downstream handlers through the request context.
func (m *Manager) RequireUser(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := m.Load(r)
			if s.Username == "" {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			ctx := context.WithValue(r.Context(), contextKey{}, s.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(contextKey{}).(string)
	return username, ok && username != ""
}
