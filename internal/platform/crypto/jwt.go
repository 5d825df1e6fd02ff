package crypto

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"librarydesk/internal/entity"
)

// ErrMissingSubject is returned for tokens that do not name a user.
var ErrMissingSubject = errors.New("token has no subject")

// Claims identify the operator or patron a request acts for.
type Claims struct {
	Sub  string `json:"sub"`
	Name string `json:"name,omitempty"`
	Role string `json:"role"` // student, staff, admin
	jwt.RegisteredClaims
}

// User converts the claims into the identity circulation stamps on loans.
func (c Claims) User() entity.User {
	return entity.User{ID: c.Sub, Name: c.Name, Role: c.Role}
}

// GenerateToken signs an HS256 token for u. It returns the token and its ID.
func GenerateToken(secret string, u entity.User, ttl time.Duration) (string, string, error) {
	if u.ID == "" {
		return "", "", ErrMissingSubject
	}
	jti := uuid.NewString()
	now := time.Now()

	c := Claims{
		Sub:  u.ID,
		Name: u.Name,
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	tokenStr, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", "", err
	}
	return tokenStr, jti, nil
}

// ParseToken verifies tokenStr and returns its claims.
func ParseToken(secret, tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Sub == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}
