package services

import (
	"github.com/gofiber/fiber/v2"
)

// SecurityConfig contains security header configuration
type SecurityConfig struct {
	FrameOptions       string
	ContentTypeOptions bool
	ReferrerPolicy     string
}

// DefaultSecurityConfig returns defaults suitable for a JSON API that also
// serves staged images.
func DefaultSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		FrameOptions:       "DENY",
		ContentTypeOptions: true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}
}

// SecurityHeaders returns middleware applying the configured headers to
// every response.
func SecurityHeaders(config *SecurityConfig) fiber.Handler {
	if config == nil {
		config = DefaultSecurityConfig()
	}
	return func(c *fiber.Ctx) error {
		if config.FrameOptions != "" {
			c.Set("X-Frame-Options", config.FrameOptions)
		}
		if config.ContentTypeOptions {
			c.Set("X-Content-Type-Options", "nosniff")
		}
		if config.ReferrerPolicy != "" {
			c.Set("Referrer-Policy", config.ReferrerPolicy)
		}
		return c.Next()
	}
}
