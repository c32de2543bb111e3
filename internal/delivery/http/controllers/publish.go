package controllers

import (
	"CourseVault/internal/app_errors"
	"CourseVault/internal/delivery/http/controllers/middleware"
	"CourseVault/internal/models"
	"CourseVault/pkg/logger"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PublishService interface {
	Publish(ctx context.Context, course *models.Course, actorID uuid.UUID) (*models.PublishResult, error)
	SaveDraft(ctx context.Context, course *models.Course, actorID uuid.UUID) (*models.PublishResult, error)
}

type PublishHandler struct {
	log     logger.Log
	service PublishService
}

func NewPublishHandler(log logger.Log, s PublishService) *PublishHandler {
	return &PublishHandler{
		log:     log,
		service: s,
	}
}

// readCourse decodes the request body into a course, transparently
// inflating gzip-compressed payloads. A broken gzip stream is a client
// error, never a retryable one.
func (h *PublishHandler) readCourse(c *gin.Context) (*models.Course, bool) {
	courseIDStr := c.Param("course_id")
	courseID, err := uuid.Parse(courseIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course_id"})
		return nil, false
	}

	var body io.Reader = c.Request.Body
	if strings.Contains(c.GetHeader("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed gzip body"})
			return nil, false
		}
		defer gz.Close()
		body = gz
	}

	var course models.Course
	dec := json.NewDecoder(body)
	if err := dec.Decode(&course); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed course payload: " + err.Error()})
		return nil, false
	}
	course.ID = courseID
	return &course, true
}

func (h *PublishHandler) actorID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := c.Get(middleware.ActorIDCtx)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "editor not authenticated"})
		return uuid.Nil, false
	}
	return id.(uuid.UUID), true
}

func (h *PublishHandler) Publish(c *gin.Context) {
	course, ok := h.readCourse(c)
	if !ok {
		return
	}
	actor, ok := h.actorID(c)
	if !ok {
		return
	}

	result, err := h.service.Publish(c.Request.Context(), course, actor)
	if err != nil {
		h.writePublishError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *PublishHandler) SaveDraft(c *gin.Context) {
	course, ok := h.readCourse(c)
	if !ok {
		return
	}
	actor, ok := h.actorID(c)
	if !ok {
		return
	}

	result, err := h.service.SaveDraft(c.Request.Context(), course, actor)
	if err != nil {
		h.writePublishError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *PublishHandler) writePublishError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app_errors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, app_errors.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.log.ErrorErr("publish failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
