package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/harvest-advisor/internal/apperrors"
)

var statusByCode = map[string]int{
	apperrors.CodeInvalidInput:        fiber.StatusBadRequest,
	apperrors.CodeNoPlaceSelected:     fiber.StatusBadRequest,
	apperrors.CodeCSVInvalid:          fiber.StatusBadRequest,
	apperrors.CodeClimateUnavailable:  fiber.StatusBadGateway,
	apperrors.CodeCropInfoUnavailable: fiber.StatusBadGateway,
	apperrors.CodeHistoryWriteFailed:  fiber.StatusInternalServerError,
}

// ErrorHandler renders every error as {"error": true, "message": ...}. Application
// errors also carry their code; their wrapped cause is not exposed.
func ErrorHandler(c *fiber.Ctx, err error) error {
	body := fiber.Map{"error": true}
	status := fiber.StatusInternalServerError

	var appErr *apperrors.AppError
	var fe *fiber.Error
	switch {
	case errors.As(err, &appErr):
		if s, ok := statusByCode[appErr.Code]; ok {
			status = s
		}
		body["code"] = appErr.Code
		body["message"] = appErr.Message
	case errors.As(err, &fe):
		status = fe.Code
		body["message"] = fe.Message
	default:
		body["message"] = "internal error"
	}
	return c.Status(status).JSON(body)
}
