package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	RoleClient       = "client"
	RoleProfessional = "professional"
	RoleAdmin        = "admin"
	// RoleService is held by sibling services calling each other.
	RoleService = "service"

	DefaultIssuer = "healthmatch"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrMissingSecret = errors.New("jwt secret is not configured")
)

// Claims carries the caller id in the registered "sub" claim.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID string
	Role   string
	Email  string
}

// IsElevated reports whether the principal may act on behalf of any party.
func (p Principal) IsElevated() bool {
	return p.Role == RoleAdmin || p.Role == RoleService
}

// Issuer signs and verifies HS256 tokens with a shared secret.
type Issuer struct {
	secret []byte
	issuer string
}

func NewIssuer(secret, issuer string) *Issuer {
	return &Issuer{secret: []byte(secret), issuer: issuer}
}

func (i *Issuer) CreateAccessToken(sub, role, email string, ttl time.Duration) (string, error) {
	if len(i.secret) == 0 {
		return "", ErrMissingSecret
	}
	now := time.Now()
	claims := Claims{
		Role:  role,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

func (i *Issuer) ParseValidate(tokenStr string) (*Claims, error) {
	if len(i.secret) == 0 {
		return nil, ErrMissingSecret
	}
	keyFunc := func(*jwt.Token) (any, error) {
		return i.secret, nil
	}
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(i.issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || c.Subject == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}

// Principal converts validated claims into the request principal.
func (c *Claims) Principal() Principal {
	return Principal{UserID: c.Subject, Role: c.Role, Email: c.Email}
}

// ServiceTokenSource mints a short-lived service token per call.
func (i *Issuer) ServiceTokenSource(serviceName string, ttl time.Duration) func() (string, error) {
	return func() (string, error) {
		return i.CreateAccessToken(serviceName, RoleService, "", ttl)
	}
}
