package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-planner-api/internal/dto"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
	"github.com/noah-isme/lesson-planner-api/pkg/response"
)

type lessonScheduleService interface {
	GetSchedule(ctx context.Context, userID, courseID string) (*dto.ScheduleResponse, error)
	CheckConflicts(ctx context.Context, userID, courseID string, req dto.ConflictCheckRequest) (*dto.ConflictCheckResponse, error)
	UpdateRecurringSchedule(ctx context.Context, userID, courseID string, req dto.UpdateRecurringScheduleRequest) (*dto.ScheduleResponse, error)
	Preview(ctx context.Context, userID, courseID string, req dto.PreviewRequest) (*dto.PreviewResponse, error)
	Generate(ctx context.Context, userID string, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error)
	Export(ctx context.Context, userID, courseID string, query dto.ExportQuery) (*dto.ExportFile, error)
}

// LessonScheduleHandler exposes recurring schedule endpoints of a course.
type LessonScheduleHandler struct {
	service lessonScheduleService
}

// NewLessonScheduleHandler constructs the handler.
func NewLessonScheduleHandler(svc lessonScheduleService) *LessonScheduleHandler {
	return &LessonScheduleHandler{service: svc}
}

// Get godoc
// @Summary Get recurring schedule
// @Description Returns the weekly recurring slots of a course
// @Tags Schedule
// @Produce json
// @Param id path string true "Course progress ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /course-progress/{id}/schedule [get]
func (h *LessonScheduleHandler) Get(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	res, err := h.service.GetSchedule(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Update godoc
// @Summary Replace recurring schedule
// @Description Replaces the weekly recurring slots of a course. Overlaps with other courses are rejected unless allow_conflicts is set.
// @Tags Schedule
// @Accept json
// @Produce json
// @Param id path string true "Course progress ID"
// @Param payload body dto.UpdateRecurringScheduleRequest true "Recurring slots"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /course-progress/{id}/schedule [put]
func (h *LessonScheduleHandler) Update(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.UpdateRecurringScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid recurring schedule payload"))
		return
	}
	res, err := h.service.UpdateRecurringSchedule(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Conflicts godoc
// @Summary Check slot conflicts
// @Description Compares candidate slots with the recurring slots of the user's other courses
// @Tags Schedule
// @Accept json
// @Produce json
// @Param id path string true "Course progress ID"
// @Param payload body dto.ConflictCheckRequest true "Candidate slots"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /course-progress/{id}/schedule/conflicts [post]
func (h *LessonScheduleHandler) Conflicts(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.ConflictCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conflict check payload"))
		return
	}
	res, err := h.service.CheckConflicts(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Preview godoc
// @Summary Preview lesson schedule
// @Description Plans the course lessons on the stored or the submitted slots without saving
// @Tags Schedule
// @Accept json
// @Produce json
// @Param id path string true "Course progress ID"
// @Param payload body dto.PreviewRequest false "Optional candidate slots and policy"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /course-progress/{id}/schedule/preview [post]
func (h *LessonScheduleHandler) Preview(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.PreviewRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid preview payload"))
			return
		}
	}
	res, err := h.service.Preview(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil, map[string]interface{}{"warnings": len(res.Warnings)})
}

// Export godoc
// @Summary Export lesson schedule
// @Description Downloads the stored-slot schedule preview as CSV or PDF
// @Tags Schedule
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Course progress ID"
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Param handle_long_lessons query string false "split or reduce_duration"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /course-progress/{id}/schedule/export [get]
func (h *LessonScheduleHandler) Export(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	file, err := h.service.Export(c.Request.Context(), claims.UserID, c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

// Generate godoc
// @Summary Generate lesson occurrences
// @Description Plans the course lessons on its recurring slots and saves the occurrences
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.GenerateScheduleRequest true "Generation request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedule/generate [post]
func (h *LessonScheduleHandler) Generate(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	res, err := h.service.Generate(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}
