package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrNoCredential = errors.New("auth: missing credential")
	ErrInvalidToken = errors.New("auth: token is invalid or expired")
)

// Claims is the JWT payload minted at login and decoded at the socket gate.
type Claims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	jwt.RegisteredClaims
}

// Gate resolves an upgrade request's credential into an Identity.
type Gate struct {
	jwtSecret   []byte
	relaySecret []byte
}

func NewGate(jwtSecret, relaySecret string) *Gate {
	return &Gate{
		jwtSecret:   []byte(jwtSecret),
		relaySecret: []byte(relaySecret),
	}
}

// CredentialFromRequest extracts the raw credential from an upgrade request.
// The Authorization header wins ("Bearer x" or the bare value); a token query
// param is the fallback for client runtimes that cannot set headers.
func CredentialFromRequest(r *http.Request) string {
	cred := r.Header.Get("Authorization")
	if cred != "" {
		if parts := strings.Split(cred, " "); len(parts) == 2 {
			return parts[1]
		}
		return cred
	}
	return r.URL.Query().Get("token")
}

// Resolve maps a credential onto an Identity. The relay secret comparison is
// constant-time and kept ahead of JWT parsing so the secret is never fed to
// the token decoder.
func (g *Gate) Resolve(credential string) (Identity, error) {
	if credential == "" {
		return Identity{}, ErrNoCredential
	}
	if subtle.ConstantTimeCompare([]byte(credential), g.relaySecret) == 1 {
		return RelayIdentity(), nil
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(token *jwt.Token) (interface{}, error) {
		return g.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	return UserIdentity(&User{
		ID:       id,
		Name:     claims.Name,
		Username: claims.Username,
		Avatar:   claims.Avatar,
	}), nil
}

// SignToken mints an HS256 access token for a user. The socket service does
// not expose login itself; this backs tests and the loadtest client.
func SignToken(secret string, u User, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   u.ID.String(),
		Username: u.Username,
		Name:     u.Name,
		Avatar:   u.Avatar,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "socialnet",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	})
	return token.SignedString([]byte(secret))
}
