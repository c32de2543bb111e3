package controllers

import (
	"CourseVault/internal/models"
	"CourseVault/pkg/logger"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SyncService interface {
	PendingCount(ctx context.Context) (int, error)
	SyncPending(ctx context.Context) (models.SyncReport, error)
}

type RegistryInspector interface {
	Stats(ctx context.Context) (models.RegistryStats, error)
}

type MigrationService interface {
	MigrateCourse(ctx context.Context, courseID uuid.UUID) (models.MigrationReport, error)
}

type AdminHandler struct {
	log       logger.Log
	sync      SyncService
	registry  RegistryInspector
	migration MigrationService
}

func NewAdminHandler(log logger.Log, sync SyncService, registry RegistryInspector, migration MigrationService) *AdminHandler {
	return &AdminHandler{
		log:       log,
		sync:      sync,
		registry:  registry,
		migration: migration,
	}
}

func (h *AdminHandler) PendingSync(c *gin.Context) {
	count, err := h.sync.PendingCount(c.Request.Context())
	if err != nil {
		h.log.ErrorErr("failed to count pending sync entries", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": count})
}

func (h *AdminHandler) RunSync(c *gin.Context) {
	report, err := h.sync.SyncPending(c.Request.Context())
	if err != nil {
		h.log.ErrorErr("sync run failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *AdminHandler) RegistryStats(c *gin.Context) {
	stats, err := h.registry.Stats(c.Request.Context())
	if err != nil {
		h.log.ErrorErr("failed to collect registry stats", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) MigrateAssets(c *gin.Context) {
	courseIDStr := c.Param("course_id")
	courseID, err := uuid.Parse(courseIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course_id"})
		return
	}

	report, err := h.migration.MigrateCourse(c.Request.Context(), courseID)
	if err != nil {
		h.log.ErrorErr("asset migration failed", err, "course_id", courseID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}
