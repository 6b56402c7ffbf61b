package validator

import (
	"github.com/go-playground/validator/v10"

	"github.com/service-aggregator/internal/domain"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// service_type - один из поддерживаемых типов сервиса
	_ = validate.RegisterValidation("service_type", func(fl validator.FieldLevel) bool {
		_, ok := domain.ParseServiceType(fl.Field().String())
		return ok
	})

	// iso6391 - нормализованный двухбуквенный код языка
	_ = validate.RegisterValidation("iso6391", func(fl validator.FieldLevel) bool {
		return domain.IsLanguageCode(fl.Field().String())
	})

	// bbox - строка "minLat,minLon,maxLat,maxLon"
	_ = validate.RegisterValidation("bbox", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseBoundingBox(fl.Field().String())
		return err == nil
	})
}

// Validate - валидация структуры
func Validate(s interface{}) error {
	return validate.Struct(s)
}

// FieldErrors преобразует ошибку валидации в map поле -> тег
func FieldErrors(err error) map[string]interface{} {
	details := make(map[string]interface{})
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		details["error"] = err.Error()
		return details
	}
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
	}
	return details
}
