package middlewares

import (
	"errors"

	"pos-backend/billing"
	"pos-backend/repository"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ErrorHandler centralizes error responses and keeps messages sanitized.
func ErrorHandler(c *fiber.Ctx, err error) error {
	// 1) Fiber errors (use their status code + message)
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
	}

	// 2) Request validation errors (422 + per-field info)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		out := make(map[string]string, len(ve))
		for _, fe := range ve {
			out[fe.Field()] = fe.Tag()
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "validation failed",
			"errors":  out,
		})
	}

	// 3) Business rule violations (422, message is meant for the operator)
	var be *billing.ValidationError
	if errors.As(err, &be) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": be.Error(),
			"error":   be.Err.Error(),
		})
	}

	// 4) Store outcomes the client can act on
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "record not found"})
	case errors.Is(err, repository.ErrVersionConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": repository.ErrVersionConflict.Error()})
	case errors.Is(err, repository.ErrProductInUse):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": repository.ErrProductInUse.Error()})
	case errors.Is(err, repository.ErrDuplicateKey):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "already exists"})
	}

	// 5) Unknown errors (500)
	log.Error().
		Err(err).
		Str("request_id", requestID(c)).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("internal error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "internal server error",
	})
}

// NotFound answers every route nothing else matched.
func NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "page not found"})
}
