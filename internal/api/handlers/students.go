package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"internship-portal/internal/services"
	"internship-portal/internal/transport/dto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	choicesField      = "choices"
	resumeFieldPrefix = "resume_"
)

// StudentHandler serves the authenticated student's own application.
type StudentHandler struct {
	choices        services.ChoiceService
	maxUploadBytes int64
}

// NewStudentHandler creates a StudentHandler. maxUploadBytes bounds the whole
// multipart body of a choice submission.
func NewStudentHandler(choices services.ChoiceService, maxUploadBytes int64) *StudentHandler {
	return &StudentHandler{choices: choices, maxUploadBytes: maxUploadBytes}
}

// SubmitChoices godoc
// @Summary      Submit ranked choices
// @Description  One-shot submission of up to four choices. The multipart body carries
// @Description  a "choices" JSON field and one "resume_<priority>" file per choice.
// @Tags         students
// @Accept       multipart/form-data
// @Produce      json
// @Success      201  {object}  dto.ApplicationView
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /students/me/choices [post]
func (h *StudentHandler) SubmitChoices(c *gin.Context) {
	student, ok := currentStudent(c, h.choices)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{
				Error: "VALIDATION", Code: "INVALID_ATTACHMENT",
				Details: []string{fmt.Sprintf("request body exceeds %d bytes", h.maxUploadBytes)},
			})
			return
		}
		badRequest(c, "expected a multipart/form-data body")
		return
	}
	defer form.RemoveAll()

	req := dto.SubmitChoicesRequest{StudentID: student.ID}
	raw := form.Value[choicesField]
	if len(raw) != 1 {
		badRequest(c, "exactly one \"choices\" field is required")
		return
	}
	if err := json.Unmarshal([]byte(raw[0]), &req.Choices); err != nil {
		badRequest(c, "choices must be a JSON array: "+err.Error())
		return
	}

	files, err := openResumes(form, req.Choices)
	if err != nil {
		respondError(c, err)
		return
	}
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()
	req.Attachments = make(map[int]dto.Attachment, len(files))
	for priority, f := range files {
		req.Attachments[priority] = dto.Attachment{Filename: f.name, Body: f}
	}

	if _, err := h.choices.SubmitChoices(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}
	h.respondApplication(c, http.StatusCreated, student.ID)
}

type openedFile struct {
	multipart.File
	name string
}

// openResumes opens the resume part of every priority that has one. Missing
// parts are left for the service to report with the other violations.
func openResumes(form *multipart.Form, choices []dto.ChoiceInput) (map[int]openedFile, error) {
	files := make(map[int]openedFile, len(choices))
	for _, choice := range choices {
		headers := form.File[fmt.Sprintf("%s%d", resumeFieldPrefix, choice.Priority)]
		if len(headers) == 0 {
			continue
		}
		f, err := headers[0].Open()
		if err != nil {
			for _, opened := range files {
				_ = opened.Close()
			}
			return nil, fmt.Errorf("opening resume for priority %d: %w", choice.Priority, err)
		}
		files[choice.Priority] = openedFile{File: f, name: headers[0].Filename}
	}
	return files, nil
}

// UpdatePreferredDomains godoc
// @Summary      Replace preferred domains
// @Tags         students
// @Accept       json
// @Produce      json
// @Param        body body dto.UpdatePreferredDomainsRequest true "Domain ids"
// @Success      200  {object}  dto.ApplicationView
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /students/me/preferred-domains [put]
func (h *StudentHandler) UpdatePreferredDomains(c *gin.Context) {
	student, ok := currentStudent(c, h.choices)
	if !ok {
		return
	}

	var req dto.UpdatePreferredDomainsRequest
	if !bindJSON(c, &req) {
		return
	}
	req.StudentID = student.ID

	if _, err := h.choices.UpdatePreferredDomains(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}
	h.respondApplication(c, http.StatusOK, student.ID)
}

// GetMyApplication godoc
// @Summary      Get own application
// @Tags         students
// @Produce      json
// @Success      200  {object}  dto.ApplicationView
// @Router       /students/me/application [get]
func (h *StudentHandler) GetMyApplication(c *gin.Context) {
	student, ok := currentStudent(c, h.choices)
	if !ok {
		return
	}
	h.respondApplication(c, http.StatusOK, student.ID)
}

func (h *StudentHandler) respondApplication(c *gin.Context, status int, studentID uuid.UUID) {
	view, err := h.choices.GetApplication(c.Request.Context(), studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, view)
}
