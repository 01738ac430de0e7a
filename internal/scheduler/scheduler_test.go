package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/config"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/domain"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/logger"
)

type fakeTrigger struct {
	calls []struct {
		ids     []string
		sources []domain.ChannelType
	}
}

func (f *fakeTrigger) TriggerBulk(_ context.Context, ids []string, sources []domain.ChannelType) (*domain.ExtractionJob, error) {
	f.calls = append(f.calls, struct {
		ids     []string
		sources []domain.ChannelType
	}{ids, sources})
	return &domain.ExtractionJob{ID: "j-1", Status: domain.JobRunning}, nil
}

func TestSchedulerListsConfiguredRuns(t *testing.T) {
	s := New([]config.ScheduleConfig{
		{Name: "daily-all", Cron: "0 6 * * *", Description: "Daily run."},
		{Name: "hourly-yt", Cron: "@hourly", Sources: []string{"YOUTUBE"}},
	}, &fakeTrigger{}, logger.NewNop())

	s.Start()
	defer s.Stop()

	jobs := s.List()
	require.Len(t, jobs, 2)
	assert.Equal(t, "daily-all", jobs[0].Name)
	assert.Equal(t, "0 6 * * *", jobs[0].Cron)
	assert.False(t, jobs[0].NextRun.IsZero())
}

func TestSchedulerSkipsInvalidCron(t *testing.T) {
	s := New([]config.ScheduleConfig{
		{Name: "bad", Cron: "not a cron"},
		{Name: "good", Cron: "@daily"},
	}, &fakeTrigger{}, logger.NewNop())

	jobs := s.List()
	require.Len(t, jobs, 1)
	assert.Equal(t, "good", jobs[0].Name)
}

func TestSchedulerRunPassesConfig(t *testing.T) {
	trigger := &fakeTrigger{}
	s := New(nil, trigger, logger.NewNop())

	s.run(config.ScheduleConfig{
		Name:          "manual",
		ForecasterIDs: []string{"f-1"},
		Sources:       []string{"TWITTER"},
	})

	require.Len(t, trigger.calls, 1)
	assert.Equal(t, []string{"f-1"}, trigger.calls[0].ids)
	assert.Equal(t, []domain.ChannelType{domain.ChannelTwitter}, trigger.calls[0].sources)
}
