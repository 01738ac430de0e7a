package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/domain"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/logger"
)

type fakeJobService struct {
	singleFunc func(ctx context.Context, sourceType domain.ChannelType, url, forecasterID string) (*domain.ExtractionJob, error)
	bulkFunc   func(ctx context.Context, forecasterIDs []string, sources []domain.ChannelType) (*domain.ExtractionJob, error)
	statusFunc func(ctx context.Context, id string) (*domain.ExtractionJob, error)
	cancelFunc func(ctx context.Context, id string) (*domain.ExtractionJob, error)
}

func (f *fakeJobService) TriggerSingle(ctx context.Context, s domain.ChannelType, url, fid string) (*domain.ExtractionJob, error) {
	return f.singleFunc(ctx, s, url, fid)
}

func (f *fakeJobService) TriggerBulk(ctx context.Context, ids []string, sources []domain.ChannelType) (*domain.ExtractionJob, error) {
	return f.bulkFunc(ctx, ids, sources)
}

func (f *fakeJobService) Status(ctx context.Context, id string) (*domain.ExtractionJob, error) {
	return f.statusFunc(ctx, id)
}

func (f *fakeJobService) Cancel(ctx context.Context, id string) (*domain.ExtractionJob, error) {
	return f.cancelFunc(ctx, id)
}

func newRouter(jobs JobService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r,
		NewExtractionHandler(jobs, nil, nil, logger.NewNop()),
		NewPredictionHandler(&fakePredictionStore{}, logger.NewNop()),
		nil,
	)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTriggerSingleEndpoint(t *testing.T) {
	jobs := &fakeJobService{
		singleFunc: func(_ context.Context, s domain.ChannelType, url, fid string) (*domain.ExtractionJob, error) {
			assert.Equal(t, domain.ChannelYouTube, s)
			assert.Equal(t, "https://youtube.com/watch?v=abc", url)
			assert.Equal(t, "f-1", fid)
			return &domain.ExtractionJob{ID: "j-1", Type: domain.JobSingle, Status: domain.JobRunning}, nil
		},
	}

	w := doJSON(t, newRouter(jobs), http.MethodPost, "/api/v1/extraction/single", gin.H{
		"source_type":   "YOUTUBE",
		"url":           "https://youtube.com/watch?v=abc",
		"forecaster_id": "f-1",
	})
	assert.Equal(t, http.StatusAccepted, w.Code)

	var job domain.ExtractionJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, "j-1", job.ID)
	assert.Equal(t, domain.JobRunning, job.Status)
}

func TestTriggerSingleMissingFields(t *testing.T) {
	w := doJSON(t, newRouter(&fakeJobService{}), http.MethodPost, "/api/v1/extraction/single", gin.H{
		"url": "https://youtube.com/watch?v=abc",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTriggerSingleUnknownSource(t *testing.T) {
	jobs := &fakeJobService{
		singleFunc: func(context.Context, domain.ChannelType, string, string) (*domain.ExtractionJob, error) {
			return nil, fmt.Errorf("%w: unknown source type", domain.ErrOrchestration)
		},
	}
	w := doJSON(t, newRouter(jobs), http.MethodPost, "/api/v1/extraction/single", gin.H{
		"source_type":   "TIKTOK",
		"url":           "https://example.com",
		"forecaster_id": "f-1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTriggerBulkEndpoint(t *testing.T) {
	jobs := &fakeJobService{
		bulkFunc: func(_ context.Context, ids []string, sources []domain.ChannelType) (*domain.ExtractionJob, error) {
			assert.Equal(t, []string{"f-1", "f-2"}, ids)
			assert.Equal(t, []domain.ChannelType{domain.ChannelTwitter}, sources)
			return &domain.ExtractionJob{ID: "j-2", Type: domain.JobBulk, Status: domain.JobRunning}, nil
		},
	}

	w := doJSON(t, newRouter(jobs), http.MethodPost, "/api/v1/extraction/bulk", gin.H{
		"forecaster_ids": []string{"f-1", "f-2"},
		"sources":        []string{"TWITTER"},
	})
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestGetJobEndpoint(t *testing.T) {
	jobs := &fakeJobService{
		statusFunc: func(_ context.Context, id string) (*domain.ExtractionJob, error) {
			if id != "j-1" {
				return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
			}
			job := &domain.ExtractionJob{ID: "j-1", Status: domain.JobCompleted}
			job.Summary.Add(domain.UnitResult{Status: domain.UnitSucceeded, Predictions: 3})
			job.Summary.Add(domain.UnitResult{Status: domain.UnitFailed, Error: "quota exceeded"})
			return job, nil
		},
	}
	r := newRouter(jobs)

	w := doJSON(t, r, http.MethodGet, "/api/v1/extraction/jobs/j-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var job domain.ExtractionJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, 2, job.Summary.TotalUnits)
	assert.Equal(t, 1, job.Summary.Failed)
	assert.Equal(t, 3, job.Summary.Predictions)

	w = doJSON(t, r, http.MethodGet, "/api/v1/extraction/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelJobEndpoint(t *testing.T) {
	jobs := &fakeJobService{
		cancelFunc: func(_ context.Context, id string) (*domain.ExtractionJob, error) {
			return &domain.ExtractionJob{ID: id, Status: domain.JobCompleted}, nil
		},
	}

	w := doJSON(t, newRouter(jobs), http.MethodPost, "/api/v1/extraction/jobs/j-1/cancel", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestListScheduledWithoutScheduler(t *testing.T) {
	w := doJSON(t, newRouter(&fakeJobService{}), http.MethodGet, "/api/v1/extraction/scheduled", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "schedules")
}
