package controllers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/insights/internal/pkg/apperror"
)

// GetClientIP returns the original client address, preferring proxy headers
// over the socket address.
func GetClientIP(c *fiber.Ctx) string {
	if ip := strings.TrimSpace(c.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(c.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return strings.TrimPrefix(c.IP(), "::ffff:")
}

// paramID reads the :id route parameter. Anything that is not a positive
// integer can never match a row and is reported as not found.
func paramID(c *fiber.Ctx, notFound string) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.NotFound(notFound)
	}
	return uint(id), nil
}

// formValues returns every value submitted for key, from a multipart body
// or a urlencoded one.
func formValues(c *fiber.Ctx, key string) []string {
	if form, err := c.MultipartForm(); err == nil && form != nil {
		return form.Value[key]
	}
	var values []string
	c.Request().PostArgs().VisitAll(func(k, v []byte) {
		if string(k) == key {
			values = append(values, string(v))
		}
	})
	return values
}

func queryInt(c *fiber.Ctx, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return 0
	}
	return n
}
