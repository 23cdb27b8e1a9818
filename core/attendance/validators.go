package attendance

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/exoshivam/smart-attendance/core"
)

var (
	statusTag  = "status"
	statusText = "must be one of present, absent or late"

	methodTag  = "method"
	methodText = "must be one of rfid, facial or manual"
)

// InitValidators registers the attendance validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, func(fl validator.FieldLevel) bool {
		return IsValidStatus(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)

	_ = validate.RegisterValidation(methodTag, func(fl validator.FieldLevel) bool {
		return IsValidMethod(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, methodTag, methodText)
}
