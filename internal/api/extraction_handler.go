// Package api exposes the pipeline's HTTP endpoints.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/domain"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/logger"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/scheduler"
)

// JobService is the orchestrator surface the handlers call.
type JobService interface {
	TriggerSingle(ctx context.Context, sourceType domain.ChannelType, url, forecasterID string) (*domain.ExtractionJob, error)
	TriggerBulk(ctx context.Context, forecasterIDs []string, sources []domain.ChannelType) (*domain.ExtractionJob, error)
	Status(ctx context.Context, id string) (*domain.ExtractionJob, error)
	Cancel(ctx context.Context, id string) (*domain.ExtractionJob, error)
}

// JobLister reads recent jobs from storage.
type JobLister interface {
	ListRecent(ctx context.Context, limit int) ([]domain.ExtractionJob, error)
}

// ScheduleLister reports configured recurring runs.
type ScheduleLister interface {
	List() []scheduler.ScheduledJob
}

// ExtractionHandler serves job trigger and status endpoints.
type ExtractionHandler struct {
	jobs      JobService
	lister    JobLister
	schedules ScheduleLister
	log       logger.Logger
}

// NewExtractionHandler creates the extraction endpoints handler. lister and
// schedules may be nil; the corresponding endpoints then answer empty.
func NewExtractionHandler(jobs JobService, lister JobLister, schedules ScheduleLister, log logger.Logger) *ExtractionHandler {
	return &ExtractionHandler{
		jobs:      jobs,
		lister:    lister,
		schedules: schedules,
		log:       log,
	}
}

type singleRequest struct {
	SourceType   string `json:"source_type" binding:"required"`
	URL          string `json:"url"         binding:"required"`
	ForecasterID string `json:"forecaster_id"`
}

type bulkRequest struct {
	ForecasterIDs []string `json:"forecaster_ids"`
	Sources       []string `json:"sources"`
}

// TriggerSingle handles POST /extraction/single.
func (h *ExtractionHandler) TriggerSingle(c *gin.Context) {
	var req singleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.jobs.TriggerSingle(c.Request.Context(), domain.ChannelType(req.SourceType), req.URL, req.ForecasterID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}

// TriggerBulk handles POST /extraction/bulk.
func (h *ExtractionHandler) TriggerBulk(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sources := make([]domain.ChannelType, 0, len(req.Sources))
	for _, s := range req.Sources {
		sources = append(sources, domain.ChannelType(s))
	}

	job, err := h.jobs.TriggerBulk(c.Request.Context(), req.ForecasterIDs, sources)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}

// GetJob handles GET /extraction/jobs/:id.
func (h *ExtractionHandler) GetJob(c *gin.Context) {
	job, err := h.jobs.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// CancelJob handles POST /extraction/jobs/:id/cancel. Cancelling a job
// that already finished is accepted and returns its final state.
func (h *ExtractionHandler) CancelJob(c *gin.Context) {
	job, err := h.jobs.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}

// ListJobs handles GET /extraction/jobs.
func (h *ExtractionHandler) ListJobs(c *gin.Context) {
	if h.lister == nil {
		c.JSON(http.StatusOK, gin.H{"jobs": []domain.ExtractionJob{}})
		return
	}

	jobs, err := h.lister.ListRecent(c.Request.Context(), intQuery(c, "limit"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// ListScheduled handles GET /extraction/scheduled.
func (h *ExtractionHandler) ListScheduled(c *gin.Context) {
	if h.schedules == nil {
		c.JSON(http.StatusOK, gin.H{"schedules": []scheduler.ScheduledJob{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": h.schedules.List()})
}

func (h *ExtractionHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrOrchestration):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error("extraction request failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
