package v1

import (
	"github.com/flexprice/tenantcore/internal/domain/lifecycle"
	"github.com/flexprice/tenantcore/internal/rest/middleware"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/gin-gonic/gin"
)

// actorFrom names who is acting for lifecycle and export records. Elevated
// requests act as the operator, everything else as the tenant user.
func actorFrom(c *gin.Context) lifecycle.Actor {
	scope := middleware.Scope(c)
	if scope.Elevated() {
		return lifecycle.Actor{Type: types.ActorTypeOperator, ID: scope.Elevation.OperatorID()}
	}
	return lifecycle.Actor{Type: types.ActorTypeTenant, ID: scope.ActorID}
}
