package v1

import (
	"net/http"

	"github.com/flexprice/tenantcore/internal/api/dto"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/rest/middleware"
	"github.com/flexprice/tenantcore/internal/service"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/gin-gonic/gin"
)

// DirectoryHandler serves the directory collaborators. The same handlers
// back the tenant routes and the admin user routes; the scope decides what
// a call may see.
type DirectoryHandler struct {
	service service.DirectoryService
	log     *logger.Logger
}

func NewDirectoryHandler(service service.DirectoryService, log *logger.Logger) *DirectoryHandler {
	return &DirectoryHandler{service: service, log: log}
}

// @Summary List users
// @Tags Directory
// @Produce json
// @Security ApiKeyAuth
// @Param filter query types.QueryFilter false "Pagination"
// @Success 200 {object} dto.ListUsersResponse
// @Router /users [get]
func (h *DirectoryHandler) ListUsers(c *gin.Context) {
	filter := types.NewDefaultQueryFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListUsers(c.Request.Context(), middleware.Scope(c), filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Get a user
// @Tags Directory
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "User ID"
// @Success 200 {object} dto.UserResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /users/{id} [get]
func (h *DirectoryHandler) GetUser(c *gin.Context) {
	resp, err := h.service.GetUser(c.Request.Context(), middleware.Scope(c), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Update a user
// @Tags Admin Users
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "User ID"
// @Param request body dto.UpdateUserRequest true "Changes"
// @Success 200 {object} dto.UserResponse
// @Failure 403 {object} ierr.ErrorResponse
// @Router /admin/users/{id} [put]
func (h *DirectoryHandler) UpdateUser(c *gin.Context) {
	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.UpdateUser(c.Request.Context(), middleware.Scope(c), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Delete a user
// @Description Users are deletion protected; this always fails
// @Tags Admin Users
// @Security ApiKeyAuth
// @Param id path string true "User ID"
// @Failure 400 {object} ierr.ErrorResponse
// @Router /admin/users/{id} [delete]
func (h *DirectoryHandler) DeleteUser(c *gin.Context) {
	if err := h.service.DeleteUser(c.Request.Context(), middleware.Scope(c), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary List roles
// @Tags Directory
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} dto.ListRolesResponse
// @Router /roles [get]
func (h *DirectoryHandler) ListRoles(c *gin.Context) {
	resp, err := h.service.ListRoles(c.Request.Context(), middleware.Scope(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary List modules
// @Tags Directory
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} dto.ListModulesResponse
// @Router /modules [get]
func (h *DirectoryHandler) ListModules(c *gin.Context) {
	resp, err := h.service.ListModules(c.Request.Context(), middleware.Scope(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary List departments
// @Tags Directory
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} dto.ListDepartmentsResponse
// @Router /departments [get]
func (h *DirectoryHandler) ListDepartments(c *gin.Context) {
	resp, err := h.service.ListDepartments(c.Request.Context(), middleware.Scope(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Create a department
// @Tags Directory
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body dto.CreateDepartmentRequest true "Department"
// @Success 201 {object} directory.Department
// @Failure 400 {object} ierr.ErrorResponse
// @Router /departments [post]
func (h *DirectoryHandler) CreateDepartment(c *gin.Context) {
	var req dto.CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateDepartment(c.Request.Context(), middleware.Scope(c), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
