package lesson

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ratiba/core"
)

var (
	recurrenceTag  = "recurrence"
	recurrenceText = "recurrence pattern must be one of: daily, weekly"

	errRequiredWithoutDates = "this field is required when no dates are provided"
	errInvalidInstant       = "must be an RFC3339 timestamp"
	errTopicPatternRequired = "a meeting topic pattern is required to create Zoom meetings"
	errZoomUnavailable      = "Zoom meetings are not available"
	errDailyUnavailable     = "Daily rooms are not available"
)

// InitValidators registers the lesson validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(recurrenceTag, recurrenceValidation)
	core.RegisterCustomTranslation(validate, translator, recurrenceTag, recurrenceText)
}

func recurrenceValidation(fl validator.FieldLevel) bool {
	switch RecurrencePattern(fl.Field().String()) {
	case Daily, Weekly:
		return true
	}
	return false
}
