package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/viraj-gavade/Thriftify-sub000/internal/apperr"
	"github.com/viraj-gavade/Thriftify-sub000/internal/utils"
	"go.uber.org/zap"
)

// ErrorHandler is the single place errors become HTTP responses.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, message, data := Classify(err)
		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("request_id", requestID(c)),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
		}
		return utils.JSONError(c, status, message, data)
	}
}

// Classify maps an error to status, client message and envelope data.
func Classify(err error) (int, string, any) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		if ae.Kind == apperr.KindInternal {
			return fiber.StatusInternalServerError, "internal server error", nil
		}
		return ae.Kind.Status(), ae.Message, ae.Details
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		if fe.Code >= fiber.StatusInternalServerError {
			return fe.Code, "internal server error", nil
		}
		return fe.Code, fe.Message, nil
	}
	return fiber.StatusInternalServerError, "internal server error", nil
}

func statusOf(err error) int {
	status, _, _ := Classify(err)
	return status
}
