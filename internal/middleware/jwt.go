package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/codearena-api/internal/utils"
)

// Locals keys populated from a verified token.
const (
	LocalUserID   = "user_id"
	LocalUsername = "username"
	LocalUserRole = "user_role"
)

var (
	errMissingToken = errors.New("authorization header missing")
	errInvalidToken = errors.New("invalid token")
)

// identity is what a verified token says about the caller.
type identity struct {
	UserID   string
	Username string
	Role     string
}

// JWTProtected rejects requests without a valid bearer token.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := authenticate(c, secret)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}
		bindIdentity(c, id)
		return c.Next()
	}
}

// JWTOptional resolves the caller when a bearer token is present and lets anonymous requests through.
// A token that is present but invalid is still rejected.
func JWTOptional(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := authenticate(c, secret)
		switch {
		case errors.Is(err, errMissingToken):
			return c.Next()
		case err != nil:
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}
		bindIdentity(c, id)
		return c.Next()
	}
}

func bindIdentity(c *fiber.Ctx, id identity) {
	c.Locals(LocalUserID, id.UserID)
	if id.Username != "" {
		c.Locals(LocalUsername, id.Username)
	}
	if id.Role != "" {
		c.Locals(LocalUserRole, id.Role)
	}
}

func authenticate(c *fiber.Ctx, secret string) (identity, error) {
	authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if authorization == "" {
		return identity{}, errMissingToken
	}

	const bearer = "bearer "
	if len(authorization) <= len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
		return identity{}, errors.New("invalid authorization header")
	}

	tokenString := strings.TrimSpace(authorization[len(bearer):])
	if tokenString == "" {
		return identity{}, errInvalidToken
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return identity{}, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return identity{}, errors.New("invalid token claims")
	}

	userID := extractUserIDFromClaims(claims)
	if userID == "" {
		return identity{}, errors.New("token has no subject")
	}

	return identity{
		UserID:   userID,
		Username: extractStringClaim(claims, "username", "preferred_username"),
		Role:     extractUserRoleFromClaims(claims),
	}, nil
}

func extractUserIDFromClaims(claims jwt.MapClaims) string {
	for _, key := range []string{"sub", "user_id", "id"} {
		switch v := claims[key].(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case float64:
			if v >= 0 {
				return strconv.FormatUint(uint64(v), 10)
			}
		}
	}
	return ""
}

func extractStringClaim(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if value, ok := claims[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func extractUserRoleFromClaims(claims jwt.MapClaims) string {
	for _, key := range []string{"role", "roles"} {
		if value, ok := claims[key]; ok {
			if role := normalizeRole(value); role != "" {
				return role
			}
		}
	}
	return ""
}

func normalizeRole(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				if role := strings.ToLower(strings.TrimSpace(str)); role != "" {
					return role
				}
			}
		}
	}
	return ""
}
