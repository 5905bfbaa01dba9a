package validator

import (
	"testing"

	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name  string `validate:"required"`
	Email string `validate:"required,email"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(&sample{Name: "acme", Email: "ops@acme.test"}))

	err := ValidateRequest(&sample{Email: "nope"})
	assert.True(t, ierr.IsValidation(err))
	details := ierr.GetReportableDetails(err)
	assert.Equal(t, "required", details["name"])
	assert.Equal(t, "email", details["email"])
}
