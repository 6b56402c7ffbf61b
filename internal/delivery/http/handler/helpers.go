package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/service-aggregator/internal/pkg/errors"
	"github.com/service-aggregator/internal/pkg/validator"
)

// validate проверяет DTO и переводит ошибки валидатора в INVALID_REQUEST с деталями по полям
func validate(req interface{}) error {
	if err := validator.Validate(req); err != nil {
		return errors.ErrInvalidRequest.WithDetails(validator.FieldErrors(err))
	}
	return nil
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return errors.ErrInvalidRequest.WithMessage("Invalid request body")
	}
	return nil
}

// queryFloat - необязательный числовой query параметр; nil, если параметр не передан
func queryFloat(c *fiber.Ctx, key string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.ErrInvalidCoordinates.WithDetails(map[string]interface{}{key: raw})
	}
	return &v, nil
}

func paramUUID(c *fiber.Ctx, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(key))
	if err != nil {
		return uuid.Nil, errors.ErrInvalidRequest.WithMessage("Invalid service id")
	}
	return id, nil
}
