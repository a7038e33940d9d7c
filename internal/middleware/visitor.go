package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"phone8/internal/storefront"
)

// VisitorCookie carries the visitor's session id.
const VisitorCookie = "phone8_visitor"

// visitorKey is the Fiber locals key of the current *storefront.Visitor.
const visitorKey = "visitor"

// VisitorSession is a Fiber middleware that attaches the visitor's session
// to the request, mounting a new one for unknown or missing ids. Sessions
// outlive the request, so their loaders run under ctx. Install it on the
// storefront entry routes only.
func VisitorSession(ctx context.Context, registry *storefront.Registry, ttl time.Duration, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := cookieID(c, logger)
		if !ok {
			id = uuid.NewString()
		}

		visitor, created := registry.Acquire(ctx, id)
		if visitor == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"message": "Storefront is shutting down",
			})
		}

		if created {
			logger.Debug("mounted visitor session", zap.String("session", id))
		}

		attach(c, visitor, id, ttl)
		return c.Next()
	}
}

// ResumeVisitor is a Fiber middleware that attaches an already mounted
// session. Requests without one never reach the backend: browsers are sent
// to the index page and JSON clients get 404.
func ResumeVisitor(registry *storefront.Registry, ttl time.Duration, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := cookieID(c, logger)
		var visitor *storefront.Visitor
		if ok {
			visitor, ok = registry.Resume(id)
		}
		if !ok {
			if c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"message": "No storefront session, open the index page first",
				})
			}
			return c.Redirect("/", fiber.StatusSeeOther)
		}

		attach(c, visitor, id, ttl)
		return c.Next()
	}
}

// Visitor returns the visitor attached by VisitorSession or ResumeVisitor.
func Visitor(c *fiber.Ctx) (*storefront.Visitor, bool) {
	v, ok := c.Locals(visitorKey).(*storefront.Visitor)
	return v, ok && v != nil
}

func cookieID(c *fiber.Ctx, logger *zap.Logger) (string, bool) {
	raw := c.Cookies(VisitorCookie)
	if raw == "" {
		return "", false
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		logger.Debug("ignoring malformed visitor cookie", zap.String("cookie", raw))
		return "", false
	}
	return parsed.String(), true
}

func attach(c *fiber.Ctx, visitor *storefront.Visitor, id string, ttl time.Duration) {
	// Refresh the cookie so it expires together with the idle session.
	c.Cookie(&fiber.Cookie{
		Name:     VisitorCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	// Store the visitor in Fiber context for subsequent handlers
	c.Locals(visitorKey, visitor)
}
