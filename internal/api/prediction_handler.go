package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/database"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/domain"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/logger"
)

// PredictionStore is the prediction read/override surface.
type PredictionStore interface {
	Get(ctx context.Context, id string) (*domain.Prediction, error)
	List(ctx context.Context, filter database.PredictionFilter) ([]domain.Prediction, error)
	OverrideOutcome(ctx context.Context, id string, outcome domain.Outcome) error
}

// PredictionHandler serves prediction listing and the admin outcome
// override.
type PredictionHandler struct {
	store PredictionStore
	log   logger.Logger
}

// NewPredictionHandler creates the prediction endpoints handler.
func NewPredictionHandler(store PredictionStore, log logger.Logger) *PredictionHandler {
	return &PredictionHandler{store: store, log: log}
}

// List handles GET /predictions with optional query filters.
func (h *PredictionHandler) List(c *gin.Context) {
	filter := database.PredictionFilter{
		ForecasterID: c.Query("forecaster_id"),
		AssetSymbol:  c.Query("asset"),
		Direction:    domain.Direction(c.Query("direction")),
		Outcome:      domain.Outcome(c.Query("outcome")),
		Limit:        intQuery(c, "limit"),
		Offset:       intQuery(c, "offset"),
	}

	predictions, err := h.store.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"predictions": predictions})
}

// Get handles GET /predictions/:id.
func (h *PredictionHandler) Get(c *gin.Context) {
	p, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type overrideRequest struct {
	Outcome string `json:"outcome" binding:"required"`
}

// OverrideOutcome handles PATCH /predictions/:id/outcome. This is the
// admin review path; it may set any valid outcome, including reopening to
// PENDING.
func (h *PredictionHandler) OverrideOutcome(c *gin.Context) {
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome := domain.Outcome(req.Outcome)
	switch outcome {
	case domain.OutcomePending, domain.OutcomeCorrect, domain.OutcomeIncorrect, domain.OutcomePartiallyCorrect:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown outcome " + req.Outcome})
		return
	}

	id := c.Param("id")
	if err := h.store.OverrideOutcome(c.Request.Context(), id, outcome); err != nil {
		h.respondError(c, err)
		return
	}

	p, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PredictionHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrPredictionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.log.Error("prediction request failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func intQuery(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}
