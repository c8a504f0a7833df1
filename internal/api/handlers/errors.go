package handlers

import (
	"net/http"

	"internship-portal/internal/logging"
	"internship-portal/internal/services"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
}

func statusFor(taxonomy string) int {
	switch taxonomy {
	case "VALIDATION":
		return http.StatusBadRequest
	case "UNAUTHORIZED":
		return http.StatusForbidden
	case "NOT_FOUND":
		return http.StatusNotFound
	case "CONFLICT":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err using the service error taxonomy.
// Internal errors are logged and never leak their message.
func respondError(c *gin.Context, err error) {
	taxonomy := services.Taxonomy(err)
	status := statusFor(taxonomy)
	if status == http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).Error("Request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(status, ErrorResponse{Error: taxonomy})
		return
	}
	if taxonomy == "UNAUTHORIZED" && services.ReasonCode(err) == "INVALID_CREDENTIALS" {
		status = http.StatusUnauthorized
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   taxonomy,
		Code:    services.ReasonCode(err),
		Details: services.Violations(err),
	})
}

// badRequest reports a request that could not be decoded at all.
func badRequest(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:   "VALIDATION",
		Code:    "INVALID_INPUT",
		Details: []string{detail},
	})
}
