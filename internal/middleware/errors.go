package middleware

import (
	"github.com/go-faster/errors"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/apperr"
)

var statusByKind = map[apperr.Kind]int{
	apperr.KindNotFound:          fiber.StatusNotFound,
	apperr.KindForbidden:         fiber.StatusForbidden,
	apperr.KindUnauthorized:      fiber.StatusUnauthorized,
	apperr.KindInvalidInput:      fiber.StatusBadRequest,
	apperr.KindInvalidOrExpired:  fiber.StatusBadRequest,
	apperr.KindTooManyRequests:   fiber.StatusTooManyRequests,
	apperr.KindInsufficientStock: fiber.StatusBadRequest,
	apperr.KindInvalidState:      fiber.StatusBadRequest,
	apperr.KindAlreadyExists:     fiber.StatusBadRequest,
	apperr.KindDelivery:          fiber.StatusBadGateway,
	apperr.KindInternal:          fiber.StatusInternalServerError,
}

// Status returns the HTTP status for err.
func Status(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	if status, ok := statusByKind[apperr.KindOf(err)]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders errors as {"success": false, "message": ...}. Internal
// causes are logged and never sent to the client.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	log = log.Named("http")
	return func(c *fiber.Ctx, err error) error {
		status := Status(err)

		message := apperr.Message(err)
		var fe *fiber.Error
		if errors.As(err, &fe) {
			message = fe.Message
		}

		if status >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.Error(err),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Any("request_id", c.Locals("requestid")),
			)
		}

		body := fiber.Map{"success": false, "message": message}
		if kind := apperr.KindOf(err); fe == nil && kind != apperr.KindInternal {
			body["code"] = kind.String()
		}
		return c.Status(status).JSON(body)
	}
}
