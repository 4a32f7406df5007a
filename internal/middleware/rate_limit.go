package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimit creates a per-caller rate limiter. The key prefers the session
// user or device id so anonymous callers behind one NAT are not lumped
// together; the client IP is the fallback.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			caller, _ := c.Locals(localUserID).(string)
			if caller == "" {
				caller = c.IP()
			}
			return fmt.Sprintf("%s:%s", identifier, caller)
		},
	})
}
