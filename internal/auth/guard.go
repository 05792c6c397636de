package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"rental-portal/admin-portal-backend/internal/apperrors"
	"rental-portal/admin-portal-backend/pkg/jsonid"
)

const (
	MsgNoCookie            = "No authentication cookie found"
	MsgInvalidCookie       = "Invalid authentication cookie"
	MsgInvalidSession      = "Invalid session data"
	MsgNotAuthenticated    = "User not authenticated"
	MsgAdminRequired       = "Insufficient permissions. Admin access required."
	MsgInsufficientRole    = "Insufficient permissions"
	MsgAuthenticationError = "Authentication failed"
)

// Guard resolves the caller of a request from the session cookie, or from a
// bearer token when a signing secret is configured.
type Guard struct {
	cookieName string
	jwtSecret  []byte
}

func NewGuard(cookieName, jwtSecret string) *Guard {
	if cookieName == "" {
		cookieName = "auth"
	}
	g := &Guard{cookieName: cookieName}
	if jwtSecret != "" {
		g.jwtSecret = []byte(jwtSecret)
	}
	return g
}

// Authenticate returns the session user when it holds one of the allowed roles.
// With no roles given any authenticated user passes. Failures are *apperrors.AppError.
func (g *Guard) Authenticate(r *http.Request, allowed ...Role) (user *User, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			user = nil
			err = apperrors.Internal(MsgAuthenticationError, fmt.Errorf("panic during authentication: %v", rec))
		}
	}()

	session, err := g.session(r)
	if err != nil {
		return nil, err
	}

	if session == nil || session.User == nil || session.User.ID.IsZero() {
		return nil, apperrors.Unauthorized(MsgInvalidSession)
	}
	if !session.IsAuthenticated {
		return nil, apperrors.Unauthorized(MsgNotAuthenticated)
	}

	if len(allowed) > 0 && !hasRole(session.User.Role, allowed) {
		if isAdminSet(allowed) {
			return nil, apperrors.Forbidden(MsgAdminRequired)
		}
		return nil, apperrors.Forbidden(MsgInsufficientRole)
	}

	return session.User, nil
}

func (g *Guard) session(r *http.Request) (*Session, error) {
	value := g.cookieValue(r)
	if value == "" {
		if g.jwtSecret != nil {
			if token := bearerToken(r); token != "" {
				return g.sessionFromToken(token)
			}
		}
		return nil, apperrors.Unauthorized(MsgNoCookie)
	}

	return parseSessionCookie(value)
}

// cookieValue falls back to scanning the raw header because net/http drops
// cookie values containing unescaped JSON quotes.
func (g *Guard) cookieValue(r *http.Request) string {
	if cookie, err := r.Cookie(g.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	prefix := g.cookieName + "="
	for _, header := range r.Header.Values("Cookie") {
		for _, part := range strings.Split(header, ";") {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(part, prefix) {
				return strings.TrimPrefix(part, prefix)
			}
		}
	}
	return ""
}

func parseSessionCookie(raw string) (*Session, error) {
	value := raw
	if strings.Contains(value, "%") {
		if decoded, err := url.PathUnescape(value); err == nil {
			value = decoded
		}
	}

	var session *Session
	if err := json.Unmarshal([]byte(value), &session); err != nil {
		return nil, apperrors.Unauthorized(MsgInvalidCookie)
	}
	return session, nil
}

type sessionClaims struct {
	Role      Role   `json:"role"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	jwt.RegisteredClaims
}

func (g *Guard) sessionFromToken(raw string) (*Session, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return g.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.Unauthorized(MsgNotAuthenticated)
		}
		return nil, apperrors.Unauthorized(MsgInvalidCookie)
	}

	return &Session{
		User: &User{
			ID:        jsonid.ID(claims.Subject),
			Role:      claims.Role,
			Email:     claims.Email,
			FirstName: claims.FirstName,
			LastName:  claims.LastName,
		},
		IsAuthenticated: true,
	}, nil
}

// IssueToken signs a bearer token for user. Used by tooling and tests.
func (g *Guard) IssueToken(user *User, claims jwt.RegisteredClaims) (string, error) {
	if g.jwtSecret == nil {
		return "", errors.New("jwt secret not configured")
	}
	claims.Subject = user.ID.String()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Role:             user.Role,
		Email:            user.Email,
		FirstName:        user.FirstName,
		LastName:         user.LastName,
		RegisteredClaims: claims,
	})
	return token.SignedString(g.jwtSecret)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func hasRole(role Role, allowed []Role) bool {
	for _, a := range allowed {
		if a == role {
			return true
		}
	}
	return false
}

func isAdminSet(allowed []Role) bool {
	for _, a := range allowed {
		if a != RoleAdmin && a != RoleSuperAdmin {
			return false
		}
	}
	return true
}
