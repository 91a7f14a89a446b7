package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const userIDLocal = "user_id"

var parseMiddlewareClaimsFn = jwt.ParseWithClaims

// JWTMiddleware accepts HS256 bearer tokens signed with secret and exposes the
// token's user to handlers through UserID.
func JWTMiddleware(secret string) fiber.Handler {
	key := []byte(secret)
	keyFn := func(*jwt.Token) (interface{}, error) { return key, nil }

	return func(c *fiber.Ctx) error {
		raw := bearerToken(c.Get(fiber.HeaderAuthorization))
		if raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		token, err := parseMiddlewareClaimsFn(raw, &Claims{}, keyFn, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		claims, ok := token.Claims.(*Claims)
		if !ok || !token.Valid || claims.UserID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "token carries no user")
		}

		c.Locals(userIDLocal, claims.UserID)
		return c.Next()
	}
}

// UserID returns the authenticated user, or "" on routes without JWTMiddleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDLocal).(string)
	return id
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
