package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/viraj-gavade/Thriftify-sub000/internal/apperr"
	"github.com/viraj-gavade/Thriftify-sub000/internal/utils"
)

// bind parses the JSON body into dst and runs its validate tags.
func bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.InvalidArgument("invalid request body")
	}
	if err := utils.ValidateStruct(dst); err != nil {
		return apperr.InvalidArgument("validation failed").WithDetails(utils.FormatValidationErrors(err))
	}
	return nil
}
