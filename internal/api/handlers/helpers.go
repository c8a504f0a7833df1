package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"internship-portal/internal/api/middleware"
	"internship-portal/internal/models"
	"internship-portal/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// pathUUID parses the named path parameter. It writes a 400 and returns
// false when the parameter is not a UUID.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, fmt.Sprintf("%s must be a valid UUID", name))
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID parses an optional UUID query parameter.
func queryUUID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(c, fmt.Sprintf("%s must be a valid UUID", name))
		return nil, false
	}
	return &id, true
}

// bindJSON decodes the body into v. Field rules are checked by the services.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// currentStudent resolves the student profile of the authenticated user.
func currentStudent(c *gin.Context, choices services.ChoiceService) (*models.Student, bool) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "UNAUTHORIZED"})
		return nil, false
	}
	student, err := choices.StudentForUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrStudentNotFound) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "UNAUTHORIZED", Code: "NOT_A_STUDENT"})
			return nil, false
		}
		respondError(c, err)
		return nil, false
	}
	return student, true
}
