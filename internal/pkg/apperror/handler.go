package apperror

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// ErrorHandler renders every error returned by a handler as
// {"message": ..., "errors": {...}}. Internal details are only exposed when
// debug is set.
func ErrorHandler(debug bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if appErr, ok := As(err); ok {
			return respond(c, appErr, debug)
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			if fe.Code == fiber.StatusRequestEntityTooLarge {
				return respond(c, Upload("File too large", err), debug)
			}
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}

		return respond(c, Internal("Server error", err), debug)
	}
}

func respond(c *fiber.Ctx, e *Error, debug bool) error {
	status := e.Status
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	body := fiber.Map{"message": e.Message}
	if len(e.Fields) > 0 {
		body["errors"] = e.Fields
	}

	if status >= fiber.StatusInternalServerError {
		log.Errorf("[%s %s] %v", c.Method(), c.Path(), e)
		if debug && e.Err != nil {
			body["error"] = e.Err.Error()
		}
	}

	return c.Status(status).JSON(body)
}
