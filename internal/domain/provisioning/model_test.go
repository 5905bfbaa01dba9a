package provisioning

import (
	"testing"

	"github.com/flexprice/tenantcore/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestRunNextStep(t *testing.T) {
	r := &Run{}

	step, ok := r.NextStep()
	assert.True(t, ok)
	assert.Equal(t, types.ProvisioningStepSubscription, step)

	r.MarkCompleted(types.ProvisioningStepSubscription)
	r.MarkCompleted(types.ProvisioningStepRoles)
	r.MarkCompleted(types.ProvisioningStepRoles)
	assert.Len(t, r.CompletedSteps, 2)

	step, ok = r.NextStep()
	assert.True(t, ok)
	assert.Equal(t, types.ProvisioningStepModules, step)

	for _, s := range types.ProvisioningSteps {
		r.MarkCompleted(s)
	}
	_, ok = r.NextStep()
	assert.False(t, ok)
}

func TestMarkCompletedClearsFailure(t *testing.T) {
	r := &Run{FailedStep: types.ProvisioningStepAdminUser, LastError: "boom"}
	r.MarkCompleted(types.ProvisioningStepAdminUser)
	assert.Empty(t, r.FailedStep)
	assert.Empty(t, r.LastError)
}
