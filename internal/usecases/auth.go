package usecases

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// OpsAuth authenticates the single operator account for the HTTP API.
// The credentials come from the environment (the password as a bcrypt
// hash), not from the game database.
type OpsAuth struct {
	username     string
	passwordHash string
	jwtSecret    []byte
}

func NewOpsAuth(username, passwordHash, secret string) *OpsAuth {
	return &OpsAuth{username: username, passwordHash: passwordHash, jwtSecret: []byte(secret)}
}

// Login checks the credentials and issues a 24h HS256 token.
func (a *OpsAuth) Login(username, password string) (string, error) {
	if a.username == "" || a.passwordHash == "" {
		return "", ErrInvalidCredentials
	}
	if username != a.username {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.passwordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  username,
		"role": "admin",
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	})
	signed, err := token.SignedString(a.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a bearer token.
func (a *OpsAuth) Verify(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidCredentials
	}
	return nil
}
