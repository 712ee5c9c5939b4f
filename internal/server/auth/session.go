// Package auth verifies identity assertions, issues and resolves the signed
// session cookie, and keeps an optional denylist of revoked sessions.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/lostfound/internal/common"
	"github.com/dmitrijs2005/lostfound/internal/server/models"
)

// sessionClaims is the payload of the session cookie: the identity claim plus
// an issuance id (jti) and expiry.
type sessionClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Session is a resolved session cookie.
type Session struct {
	Claim     models.IdentityClaim
	ID        string
	ExpiresAt time.Time
}

// SessionManager signs identity claims into cookies and reads them back.
// It keeps no server-side state.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewSessionManager(secret []byte, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{secret: secret, ttl: ttl, secure: secure, now: time.Now}
}

// Issue returns the session cookie for claim.
func (m *SessionManager) Issue(claim models.IdentityClaim) (*http.Cookie, error) {
	if !claim.Complete() {
		return nil, fmt.Errorf("%w: claim lacks email or name", common.ErrInvalidSession)
	}

	now := m.now()
	expires := now.Add(m.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Email:   claim.Email,
		Name:    claim.Name,
		Picture: claim.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   claim.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})

	value, err := token.SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}

	c := m.cookie(value, int(m.ttl.Seconds()))
	c.Expires = expires
	return c, nil
}

// Resolve reconstructs the session from a cookie value. An empty value yields
// common.ErrNotAuthenticated; anything that does not verify, has expired, or
// lacks email or name yields common.ErrInvalidSession and the cookie should
// be cleared.
func (m *SessionManager) Resolve(value string) (*Session, error) {
	if value == "" {
		return nil, common.ErrNotAuthenticated
	}

	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(value, claims,
		func(t *jwt.Token) (interface{}, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidSession, err)
	}

	s := &Session{
		Claim: models.IdentityClaim{Email: claims.Email, Name: claims.Name, Picture: claims.Picture},
		ID:    claims.ID,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	if !s.Claim.Complete() {
		return nil, fmt.Errorf("%w: claim lacks email or name", common.ErrInvalidSession)
	}

	return s, nil
}

// Clear returns a cookie that removes the session from the browser.
func (m *SessionManager) Clear() *http.Cookie {
	c := m.cookie("", -1)
	c.Expires = time.Unix(0, 0)
	return c
}

// Remaining is how long s stays valid from now.
func (m *SessionManager) Remaining(s *Session) time.Duration {
	d := s.ExpiresAt.Sub(m.now())
	if d < 0 {
		return 0
	}
	return d
}

func (m *SessionManager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// IsSessionError reports whether err means the caller has no usable session.
func IsSessionError(err error) bool {
	return errors.Is(err, common.ErrNotAuthenticated) || errors.Is(err, common.ErrInvalidSession)
}
