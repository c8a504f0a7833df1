package handlers

import (
	"net/http"

	"internship-portal/internal/services"
	"internship-portal/internal/transport/dto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ApplicationHandler serves staff actions on a student's application.
// Every action answers with the updated application view.
type ApplicationHandler struct {
	review     services.ReviewService
	allocation services.AllocationService
	choices    services.ChoiceService
}

func NewApplicationHandler(review services.ReviewService, allocation services.AllocationService, choices services.ChoiceService) *ApplicationHandler {
	return &ApplicationHandler{review: review, allocation: allocation, choices: choices}
}

// GetApplication godoc
// @Summary      Get a student's application
// @Tags         applications
// @Produce      json
// @Param        id   path      string  true  "Student ID" Format(uuid)
// @Success      200  {object}  dto.ApplicationView
// @Failure      404  {object}  ErrorResponse
// @Router       /students/{id}/application [get]
func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	h.respond(c, id)
}

// Approve godoc
// @Summary      Approve a submitted application
// @Tags         applications
// @Produce      json
// @Param        id   path      string  true  "Student ID" Format(uuid)
// @Success      200  {object}  dto.ApplicationView
// @Failure      409  {object}  ErrorResponse
// @Router       /students/{id}/approve [post]
func (h *ApplicationHandler) Approve(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if _, err := h.review.Approve(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, id)
}

// Reject godoc
// @Summary      Reject an application
// @Description  Sends the application back to the student and releases any held seat.
// @Tags         applications
// @Accept       json
// @Produce      json
// @Param        id   path      string            true  "Student ID" Format(uuid)
// @Param        body body      dto.RejectRequest true  "Rejection reason"
// @Success      200  {object}  dto.ApplicationView
// @Router       /students/{id}/reject [post]
func (h *ApplicationHandler) Reject(c *gin.Context) {
	req, ok := h.bindReject(c)
	if !ok {
		return
	}
	if _, err := h.review.RejectByAdmin(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, req.StudentID)
}

// Allocate godoc
// @Summary      Allocate a seat
// @Tags         applications
// @Accept       json
// @Produce      json
// @Param        id   path      string              true  "Student ID" Format(uuid)
// @Param        body body      dto.AllocateRequest true  "Target company"
// @Success      200  {object}  dto.ApplicationView
// @Failure      409  {object}  ErrorResponse
// @Router       /students/{id}/allocate [post]
func (h *ApplicationHandler) Allocate(c *gin.Context) {
	req, ok := h.bindAllocate(c)
	if !ok {
		return
	}
	if _, err := h.allocation.Allocate(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, req.StudentID)
}

// Reallocate godoc
// @Summary      Move an allocated student to another company
// @Tags         applications
// @Accept       json
// @Produce      json
// @Param        id   path      string              true  "Student ID" Format(uuid)
// @Param        body body      dto.AllocateRequest true  "Target company"
// @Success      200  {object}  dto.ApplicationView
// @Router       /students/{id}/reallocate [post]
func (h *ApplicationHandler) Reallocate(c *gin.Context) {
	req, ok := h.bindAllocate(c)
	if !ok {
		return
	}
	if _, err := h.allocation.Reallocate(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, req.StudentID)
}

// RejectAllocation godoc
// @Summary      Reject at allocation time
// @Tags         applications
// @Accept       json
// @Produce      json
// @Param        id   path      string            true  "Student ID" Format(uuid)
// @Param        body body      dto.RejectRequest true  "Rejection reason"
// @Success      200  {object}  dto.ApplicationView
// @Router       /students/{id}/allocation/reject [post]
func (h *ApplicationHandler) RejectAllocation(c *gin.Context) {
	req, ok := h.bindReject(c)
	if !ok {
		return
	}
	if _, err := h.allocation.Reject(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, req.StudentID)
}

func (h *ApplicationHandler) bindReject(c *gin.Context) (*dto.RejectRequest, bool) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return nil, false
	}
	var req dto.RejectRequest
	if !bindJSON(c, &req) {
		return nil, false
	}
	req.StudentID = id
	return &req, true
}

func (h *ApplicationHandler) bindAllocate(c *gin.Context) (*dto.AllocateRequest, bool) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return nil, false
	}
	var req dto.AllocateRequest
	if !bindJSON(c, &req) {
		return nil, false
	}
	req.StudentID = id
	return &req, true
}

func (h *ApplicationHandler) respond(c *gin.Context, studentID uuid.UUID) {
	view, err := h.choices.GetApplication(c.Request.Context(), studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
