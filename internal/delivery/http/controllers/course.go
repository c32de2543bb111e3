package controllers

import (
	"CourseVault/internal/app_errors"
	"CourseVault/internal/models"
	"CourseVault/pkg/logger"
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type QueryService interface {
	GetCourse(ctx context.Context, courseID uuid.UUID, variant models.Variant) (*models.Course, *models.PointerRecord, error)
	SearchCatalog(ctx context.Context, query string, size int) ([]models.CatalogHit, error)
}

type CourseHandler struct {
	log     logger.Log
	service QueryService
}

func NewCourseHandler(log logger.Log, s QueryService) *CourseHandler {
	return &CourseHandler{
		log:     log,
		service: s,
	}
}

func (h *CourseHandler) GetCourse(c *gin.Context) {
	courseIDStr := c.Param("course_id")
	courseID, err := uuid.Parse(courseIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course_id"})
		return
	}

	variant := models.VariantPublished
	if s := c.Query("variant"); s != "" {
		variant = models.Variant(s)
	}

	course, pointer, err := h.service.GetCourse(c.Request.Context(), courseID, variant)
	if err != nil {
		switch {
		case errors.Is(err, app_errors.ErrBadVariant):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, app_errors.ErrCourseNotFound), errors.Is(err, app_errors.ErrBlobNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, app_errors.ErrCorruptBlob):
			h.log.ErrorErr("stored course content is corrupt", err, "course_id", courseID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		default:
			h.log.ErrorErr("GetCourse failed", err, "course_id", courseID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"course":  course,
		"version": pointer.Version,
		"hash":    pointer.Hash,
		"dirty":   pointer.Dirty,
	})
}

func (h *CourseHandler) SearchCatalog(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	size := 10
	if s := c.Query("size"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "size must be a positive integer"})
			return
		}
		size = v
	}

	hits, err := h.service.SearchCatalog(c.Request.Context(), q, size)
	if err != nil {
		h.log.ErrorErr("catalog search failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not search courses"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":   len(hits),
		"courses": hits,
	})
}
