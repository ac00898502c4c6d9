package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/model"
)

// Headers set by the upstream identity provider.
const (
	UserIDHeader           = "X-User-ID"
	UserRolesHeader        = "X-User-Roles"
	UserCapabilitiesHeader = "X-User-Capabilities"

	ActorLocalKey = "actor"
)

// Actor reads the caller identity from the identity headers. Requests
// without X-User-ID carry no actor. Roles and capabilities are comma separated.
func Actor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id := strings.TrimSpace(c.Get(UserIDHeader)); id != "" {
			c.Locals(ActorLocalKey, &model.Actor{
				ID:           id,
				Roles:        splitList(c.Get(UserRolesHeader)),
				Capabilities: splitList(c.Get(UserCapabilitiesHeader)),
			})
		}
		return c.Next()
	}
}

// ActorFrom returns the actor stored by Actor, or nil.
func ActorFrom(c *fiber.Ctx) *model.Actor {
	a, _ := c.Locals(ActorLocalKey).(*model.Actor)
	return a
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
