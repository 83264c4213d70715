package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"signalcrawler/internal/model"
	"signalcrawler/internal/repository"
	"signalcrawler/internal/session"
	"signalcrawler/pkg/logger"
	"signalcrawler/pkg/utils"
	"time"
)

type DataCleanUpPayload struct {
	RetentionDays int `json:"retention_days"`
}

type DataCleanUpResult struct {
	Table string `json:"table"`
	Total int64  `json:"total"`
}

type DataCleanUpStrategy struct {
	log                *logger.Logger
	clock              session.Clock
	loc                *time.Location
	uow                repository.UnitOfWork
	recommendationRepo repository.RecommendationRepository
	marketLevelRepo    repository.MarketLevelRepository
	jobRepo            repository.JobRepository
}

func NewDataCleanUpStrategy(
	log *logger.Logger,
	clock session.Clock,
	loc *time.Location,
	uow repository.UnitOfWork,
	recommendationRepo repository.RecommendationRepository,
	marketLevelRepo repository.MarketLevelRepository,
	jobRepo repository.JobRepository,
) JobExecutionStrategy {
	return &DataCleanUpStrategy{
		log:                log,
		clock:              clock,
		loc:                loc,
		uow:                uow,
		recommendationRepo: recommendationRepo,
		marketLevelRepo:    marketLevelRepo,
		jobRepo:            jobRepo,
	}
}

// Execute deletes resolved recommendations, market levels and task history
// older than the payload's retention in one transaction.
func (s *DataCleanUpStrategy) Execute(ctx context.Context, job *model.Job) (JobResult, error) {
	var payload DataCleanUpPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		s.log.ErrorContext(ctx, "Failed to unmarshal job payload", logger.ErrorField(err), logger.IntField("job_id", int(job.ID)))
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: fmt.Sprintf("failed to unmarshal job payload: %v", err)}, fmt.Errorf("failed to unmarshal job payload: %w", err)
	}
	if payload.RetentionDays <= 0 {
		return JobResult{ExitCode: JOB_EXIT_CODE_SKIPPED, Output: "retention_days not set"}, nil
	}

	cutoff := s.clock.Now().AddDate(0, 0, -payload.RetentionDays)
	var results []DataCleanUpResult
	err := s.uow.Run(func(opts ...utils.DBOption) error {
		recs, err := s.recommendationRepo.DeleteResolvedOlderThan(ctx, cutoff, opts...)
		if err != nil {
			return fmt.Errorf("failed to delete recommendations: %w", err)
		}
		lv, err := s.marketLevelRepo.DeleteOlderThan(ctx, utils.SessionDate(cutoff, s.loc), opts...)
		if err != nil {
			return fmt.Errorf("failed to delete market levels: %w", err)
		}
		history, err := s.jobRepo.DeleteTaskHistoryOlderThan(ctx, cutoff, opts...)
		if err != nil {
			return fmt.Errorf("failed to delete task history: %w", err)
		}
		results = []DataCleanUpResult{
			{Table: "recommendations", Total: recs},
			{Table: "market_levels", Total: lv},
			{Table: "task_execution_history", Total: history},
		}
		return nil
	})
	if err != nil {
		s.log.ErrorContext(ctx, "Data clean up failed", logger.ErrorField(err), logger.IntField("job_id", int(job.ID)))
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: err.Error()}, err
	}

	res, err := json.Marshal(results)
	if err != nil {
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: fmt.Sprintf("failed to marshal output message: %v", err)}, fmt.Errorf("failed to marshal output message: %w", err)
	}
	s.log.InfoContext(ctx, "Data clean up completed", logger.StringField("result", string(res)))
	return JobResult{ExitCode: JOB_EXIT_CODE_SUCCESS, Output: string(res)}, nil
}

func (s *DataCleanUpStrategy) GetType() JobType {
	return JobTypeDataCleanUp
}
