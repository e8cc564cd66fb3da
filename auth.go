package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const subjectLocal = "sub"

var errUnauthorized = errors.New("unauthorized")

type authenticator struct {
	secret []byte
}

func newAuthenticator(secret string) *authenticator {
	return &authenticator{secret: []byte(secret)}
}

// auth returns the token subject. The token must carry
// app_metadata.generate == true.
func (a *authenticator) auth(token string) (string, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return "", fmt.Errorf("%w: missing token", errUnauthorized)
	}

	t, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !t.Valid {
		return "", fmt.Errorf("%w: %v", errUnauthorized, err)
	}
	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: unexpected claims", errUnauthorized)
	}
	md, ok := claims["app_metadata"].(map[string]any)
	if !ok {
		return "", fmt.Errorf("%w: missing app_metadata", errUnauthorized)
	}
	if allowed, _ := md["generate"].(bool); !allowed {
		return "", fmt.Errorf("%w: generation not permitted", errUnauthorized)
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("%w: missing sub", errUnauthorized)
	}
	return sub, nil
}

func (a *authenticator) middleware(c *fiber.Ctx) error {
	sub, err := a.auth(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return logWriteErr(c, err, "Unauthorized", fiber.StatusUnauthorized)
	}
	c.Locals(subjectLocal, sub)
	return c.Next()
}
