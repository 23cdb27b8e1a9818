package student

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/exoshivam/smart-attendance/core"
)

var (
	riskTag  = "risk"
	riskText = "dropout risk must be between 0 and 1"
)

// InitValidators registers the student validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(riskTag, riskValidation)
	core.RegisterCustomTranslation(validate, translator, riskTag, riskText)
}

func riskValidation(fl validator.FieldLevel) bool {
	risk := fl.Field().Float()
	return risk >= 0 && risk <= 1
}
