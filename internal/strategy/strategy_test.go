package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"signalcrawler/internal/dto"
	"signalcrawler/internal/model"
	"signalcrawler/internal/session"
	"signalcrawler/pkg/logger"
	"signalcrawler/pkg/utils"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTracker struct {
	summary dto.OutcomeSummary
	err     error
}

func (f *fakeTracker) Track(context.Context, *model.Recommendation) error { return nil }

func (f *fakeTracker) HasPending(context.Context, string) (bool, error) { return false, nil }

func (f *fakeTracker) CheckPending(context.Context) (dto.OutcomeSummary, error) {
	return f.summary, f.err
}

func (f *fakeTracker) Evaluate(context.Context, model.Recommendation) (dto.Resolution, bool, error) {
	return dto.Resolution{}, false, nil
}

func (f *fakeTracker) Resume(context.Context) (int, error) { return 0, nil }

func TestOutcomeCheckStrategy_Execute(t *testing.T) {
	tests := []struct {
		name     string
		tracker  *fakeTracker
		wantCode int32
		wantErr  bool
	}{
		{
			name:     "nothing pending",
			tracker:  &fakeTracker{},
			wantCode: JOB_EXIT_CODE_SKIPPED,
		},
		{
			name:     "all resolved",
			tracker:  &fakeTracker{summary: dto.OutcomeSummary{Checked: 3, Wins: 1, Losses: 1, Skipped: 1}},
			wantCode: JOB_EXIT_CODE_SUCCESS,
		},
		{
			name:     "some failed",
			tracker:  &fakeTracker{summary: dto.OutcomeSummary{Checked: 2, Wins: 1, Failed: 1}},
			wantCode: JOB_EXIT_CODE_PARTIAL_SUCCESS,
		},
		{
			name:     "store error",
			tracker:  &fakeTracker{err: errors.New("connection reset")},
			wantCode: JOB_EXIT_CODE_FAILED,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewOutcomeCheckStrategy(logger.NewNop(), tt.tracker)
			assert.Equal(t, JobTypeOutcomeCheck, s.GetType())

			res, err := s.Execute(context.Background(), &model.Job{ID: 1})
			assert.Equal(t, tt.wantCode, res.ExitCode)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			var got dto.OutcomeSummary
			require.NoError(t, json.Unmarshal([]byte(res.Output), &got))
			assert.Equal(t, tt.tracker.summary, got)
		})
	}
}

type fakeGuardian struct {
	alerts []dto.RiskAlert
	status dto.AccountStatus
	err    error
}

func (f *fakeGuardian) Init(context.Context) error { return nil }

func (f *fakeGuardian) RecordTradeResult(context.Context, string, float64, int) ([]dto.RiskAlert, error) {
	return nil, nil
}

func (f *fakeGuardian) ShouldBlockTrading() (bool, string) { return false, "" }

func (f *fakeGuardian) Status() dto.AccountStatus { return f.status }

func (f *fakeGuardian) Recheck(context.Context) ([]dto.RiskAlert, error) { return f.alerts, f.err }

func (f *fakeGuardian) Reset(context.Context) error { return nil }

func TestGuardianRecheckStrategy_Execute(t *testing.T) {
	g := &fakeGuardian{
		alerts: []dto.RiskAlert{{Type: dto.AlertDailyLossWarning, Severity: dto.SeverityWarning, Message: "daily loss at 82%"}},
		status: dto.AccountStatus{Status: dto.HealthWarning},
	}
	s := NewGuardianRecheckStrategy(logger.NewNop(), g)
	assert.Equal(t, JobTypeGuardianRecheck, s.GetType())

	res, err := s.Execute(context.Background(), &model.Job{ID: 3})
	require.NoError(t, err)
	assert.Equal(t, int32(JOB_EXIT_CODE_SUCCESS), res.ExitCode)
	assert.Contains(t, res.Output, `"daily_loss_warning"`)
	assert.Contains(t, res.Output, string(dto.HealthWarning))

	g.err = errors.New("save failed")
	res, err = s.Execute(context.Background(), &model.Job{ID: 3})
	assert.Error(t, err)
	assert.Equal(t, int32(JOB_EXIT_CODE_FAILED), res.ExitCode)
}

type fakeSnapshotter struct {
	saved int
	err   error
}

func (f *fakeSnapshotter) SnapshotLevels(context.Context) (int, error) { return f.saved, f.err }

func TestLevelsSnapshotStrategy_Execute(t *testing.T) {
	tests := []struct {
		name     string
		snap     *fakeSnapshotter
		wantCode int32
		wantErr  bool
	}{
		{name: "saved", snap: &fakeSnapshotter{saved: 3}, wantCode: JOB_EXIT_CODE_SUCCESS},
		{name: "nothing tracked", snap: &fakeSnapshotter{}, wantCode: JOB_EXIT_CODE_SKIPPED},
		{name: "upsert failed", snap: &fakeSnapshotter{err: errors.New("deadlock")}, wantCode: JOB_EXIT_CODE_FAILED, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewLevelsSnapshotStrategy(logger.NewNop(), tt.snap)
			assert.Equal(t, JobTypeLevelsSnapshot, s.GetType())

			res, err := s.Execute(context.Background(), &model.Job{ID: 2})
			assert.Equal(t, tt.wantCode, res.ExitCode)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

type fakeUnitOfWork struct {
	runs int
}

func (f *fakeUnitOfWork) Run(fn func(opts ...utils.DBOption) error) error {
	f.runs++
	return fn()
}

type fakeRecommendationRepo struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (f *fakeRecommendationRepo) Create(context.Context, *model.Recommendation) error { return nil }

func (f *fakeRecommendationRepo) FindPending(context.Context, string) ([]model.Recommendation, error) {
	return nil, nil
}

func (f *fakeRecommendationRepo) Resolve(context.Context, dto.Resolution) (bool, error) {
	return false, nil
}

func (f *fakeRecommendationRepo) FindByID(context.Context, string) (*model.Recommendation, error) {
	return nil, nil
}

func (f *fakeRecommendationRepo) Get(context.Context, dto.GetRecommendationsParam, ...utils.DBOption) ([]model.Recommendation, error) {
	return nil, nil
}

func (f *fakeRecommendationRepo) StatusTotals(context.Context, time.Time, ...utils.DBOption) ([]dto.RecommendationStatusTotal, error) {
	return nil, nil
}

func (f *fakeRecommendationRepo) DeleteResolvedOlderThan(_ context.Context, date time.Time, _ ...utils.DBOption) (int64, error) {
	f.cutoff = date
	return f.deleted, f.err
}

type fakeMarketLevelRepo struct {
	cutoff  string
	deleted int64
}

func (f *fakeMarketLevelRepo) Upsert(context.Context, []dto.DailyLevels, ...utils.DBOption) error {
	return nil
}

func (f *fakeMarketLevelRepo) FindSince(context.Context, string) ([]dto.DailyLevels, error) {
	return nil, nil
}

func (f *fakeMarketLevelRepo) DeleteOlderThan(_ context.Context, date string, _ ...utils.DBOption) (int64, error) {
	f.cutoff = date
	return f.deleted, nil
}

type fakeJobRepo struct {
	cutoff  time.Time
	deleted int64
}

func (f *fakeJobRepo) FindJobsToSchedule(context.Context, time.Time, ...utils.DBOption) ([]model.TaskSchedule, error) {
	return nil, nil
}

func (f *fakeJobRepo) CreateTaskExecutionHistory(context.Context, *model.TaskExecutionHistory, ...utils.DBOption) error {
	return nil
}

func (f *fakeJobRepo) UpdateTaskSchedule(context.Context, *model.TaskSchedule, ...utils.DBOption) error {
	return nil
}

func (f *fakeJobRepo) FindByID(context.Context, uint) (*model.Job, error) { return nil, nil }

func (f *fakeJobRepo) UpdateTaskExecutionHistory(context.Context, *model.TaskExecutionHistory, ...utils.DBOption) error {
	return nil
}

func (f *fakeJobRepo) Get(context.Context, *model.GetJobParam, ...utils.DBOption) ([]model.Job, error) {
	return nil, nil
}

func (f *fakeJobRepo) DeleteTaskHistoryOlderThan(_ context.Context, date time.Time, _ ...utils.DBOption) (int64, error) {
	f.cutoff = date
	return f.deleted, nil
}

func TestDataCleanUpStrategy_Execute(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	now := time.Date(2025, 12, 2, 3, 0, 0, 0, loc)

	tests := []struct {
		name       string
		payload    string
		recErr     error
		wantCode   int32
		wantErr    bool
		wantRuns   int
		wantOutput []DataCleanUpResult
	}{
		{
			name:     "retention applied",
			payload:  `{"retention_days":30}`,
			wantCode: JOB_EXIT_CODE_SUCCESS,
			wantRuns: 1,
			wantOutput: []DataCleanUpResult{
				{Table: "recommendations", Total: 4},
				{Table: "market_levels", Total: 6},
				{Table: "task_execution_history", Total: 120},
			},
		},
		{
			name:     "retention missing",
			payload:  `{}`,
			wantCode: JOB_EXIT_CODE_SKIPPED,
		},
		{
			name:     "invalid payload",
			payload:  `{"retention_days":"thirty"}`,
			wantCode: JOB_EXIT_CODE_FAILED,
			wantErr:  true,
		},
		{
			name:     "delete failure rolls back",
			payload:  `{"retention_days":7}`,
			recErr:   errors.New("lock timeout"),
			wantCode: JOB_EXIT_CODE_FAILED,
			wantErr:  true,
			wantRuns: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uow := &fakeUnitOfWork{}
			recRepo := &fakeRecommendationRepo{deleted: 4, err: tt.recErr}
			levelRepo := &fakeMarketLevelRepo{deleted: 6}
			jobRepo := &fakeJobRepo{deleted: 120}

			s := NewDataCleanUpStrategy(logger.NewNop(), session.NewFixedClock(now), loc, uow, recRepo, levelRepo, jobRepo)
			assert.Equal(t, JobTypeDataCleanUp, s.GetType())

			res, err := s.Execute(context.Background(), &model.Job{ID: 9, Payload: []byte(tt.payload)})
			assert.Equal(t, tt.wantCode, res.ExitCode)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.wantRuns, uow.runs)
			if tt.wantOutput == nil {
				return
			}

			var got []DataCleanUpResult
			require.NoError(t, json.Unmarshal([]byte(res.Output), &got))
			assert.Equal(t, tt.wantOutput, got)
			assert.Equal(t, now.AddDate(0, 0, -30), recRepo.cutoff)
			assert.Equal(t, "2025-11-02", levelRepo.cutoff)
			assert.Equal(t, now.AddDate(0, 0, -30), jobRepo.cutoff)
		})
	}
}
