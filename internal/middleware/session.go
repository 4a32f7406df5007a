package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/arahkita/arah-go-api/internal/store"
	"github.com/arahkita/arah-go-api/internal/utils"
)

const (
	localUserID        = "user_id"
	localAuthenticated = "authenticated"

	deviceHeader = "X-Device-ID"
)

// Session resolves the calling principal for every request. A valid bearer
// token yields an authenticated session; without one the caller stays
// anonymous, identified by a device id so offline state survives restarts.
// A token that is present but invalid is rejected, never downgraded.
func Session(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if authorization == "" {
			c.Locals(localUserID, deviceID(c))
			c.Locals(localAuthenticated, false)
			return c.Next()
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		userID, err := parseSubject(tokenString, secret)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(localUserID, userID)
		c.Locals(localAuthenticated, true)
		return c.Next()
	}
}

// RequireAuth rejects requests whose session is anonymous. It must run after
// Session.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if authenticated, ok := c.Locals(localAuthenticated).(bool); !ok || !authenticated {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		return c.Next()
	}
}

// SessionFromCtx returns the session established for the request.
func SessionFromCtx(c *fiber.Ctx) store.Session {
	sess := store.Session{}
	if userID, ok := c.Locals(localUserID).(string); ok {
		sess.UserID = userID
	}
	if authenticated, ok := c.Locals(localAuthenticated).(bool); ok {
		sess.Authenticated = authenticated
	}
	if sess.UserID == "" {
		sess.UserID = uuid.NewString()
	}
	return sess
}

func deviceID(c *fiber.Ctx) string {
	if id := strings.TrimSpace(c.Get(deviceHeader)); id != "" {
		return id
	}
	return uuid.NewString()
}

func parseSubject(tokenString, secret string) (string, error) {
	if tokenString == "" {
		return "", fmt.Errorf("empty token")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	for _, key := range []string{"sub", "user_id", "id"} {
		if raw, exists := claims[key]; exists {
			if id, ok := raw.(string); ok && id != "" {
				return id, nil
			}
		}
	}
	return "", fmt.Errorf("token missing subject")
}
