package validator

import (
	"strings"
	"sync"

	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

func get() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
	})
	return validate
}

// ValidateRequest runs struct tag validation and converts failures into a
// validation error listing the offending fields
func ValidateRequest(req interface{}) error {
	err := get().Struct(req)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return ierr.WithError(err).
			WithHint("Invalid request").
			Mark(ierr.ErrValidation)
	}

	details := make(map[string]any, len(validationErrs))
	fields := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		field := strings.ToLower(fe.Field())
		details[field] = fe.Tag()
		fields = append(fields, field)
	}

	return ierr.WithError(err).
		WithHintf("Invalid value for: %s", strings.Join(fields, ", ")).
		WithReportableDetails(details).
		Mark(ierr.ErrValidation)
}
