package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/rastercell/lms-api/internal/errors"
)

// Roles, least to most privileged.
const (
	RoleUser       = "user"
	RoleWriter     = "writer"
	RoleInstructor = "instructor"
	RoleModerator  = "moderator"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

const bcryptCost = 10

// Identity is the authenticated caller as carried through a request.
type Identity struct {
	UserID string
	UserNo int64
	Email  string
	Name   string
	Role   string
}

type Config struct {
	Secret   string
	TokenTTL time.Duration
}

type Service struct {
	secret []byte
	ttl    time.Duration
}

func NewService(c Config) *Service {
	ttl := c.TokenTTL
	if ttl == 0 {
		ttl = time.Hour
	}

	return &Service{
		secret: []byte(c.Secret),
		ttl:    ttl,
	}
}

type claims struct {
	jwt.RegisteredClaims
	UserNo int64  `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// IssueToken signs a bearer token for the identity.
func (s *Service) IssueToken(id Identity) (string, error) {
	now := time.Now()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserNo: id.UserNo,
		Email:  id.Email,
		Name:   id.Name,
		Role:   id.Role,
	})

	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}

	return signed, nil
}

// VerifyToken parses and validates a bearer token.
func (s *Service) VerifyToken(token string) (Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return Identity{}, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("Authentication failed."),
			errors.WithCause(err),
		)
	}

	return Identity{
		UserID: c.Subject,
		UserNo: c.UserNo,
		Email:  c.Email,
		Name:   c.Name,
		Role:   c.Role,
	}, nil
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(b), nil
}

// ComparePassword reports whether the plaintext matches the stored hash.
func ComparePassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Privileged reports whether a role may see blocked entities and editor lists.
func Privileged(role string) bool {
	switch role {
	case RoleInstructor, RoleModerator, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}
