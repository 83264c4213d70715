package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"signalcrawler/internal/model"
	"signalcrawler/internal/repository"
	"signalcrawler/internal/session"
	"signalcrawler/internal/strategy"
	"signalcrawler/pkg/logger"
)

type TaskExecutor interface {
	Execute(ctx context.Context, taskHistory *model.TaskExecutionHistory) error
}

type taskExecutor struct {
	log                *logger.Logger
	clock              session.Clock
	jobRepo            repository.JobRepository
	executorStrategies map[strategy.JobType]strategy.JobExecutionStrategy
}

func NewTaskExecutor(log *logger.Logger, clock session.Clock, jobRepo repository.JobRepository, strategies ...strategy.JobExecutionStrategy) TaskExecutor {
	executorStrategies := make(map[strategy.JobType]strategy.JobExecutionStrategy, len(strategies))
	for _, s := range strategies {
		executorStrategies[s.GetType()] = s
	}
	return &taskExecutor{
		log:                log,
		clock:              clock,
		jobRepo:            jobRepo,
		executorStrategies: executorStrategies,
	}
}

func (t *taskExecutor) Execute(ctx context.Context, taskHistory *model.TaskExecutionHistory) error {
	t.log.DebugContext(ctx, "Processing job", logger.IntField("job_id", int(taskHistory.JobID)), logger.IntField("history_id", int(taskHistory.ID)))

	job, err := t.jobRepo.FindByID(ctx, taskHistory.JobID)
	if err != nil {
		t.log.ErrorContext(ctx, "Failed to find job", logger.ErrorField(err), logger.IntField("job_id", int(taskHistory.JobID)))
		return fmt.Errorf("failed to find job: %w", err)
	}

	executor := t.executorStrategies[strategy.JobType(job.Type)]
	if executor == nil {
		t.log.ErrorContext(ctx, "Job type not found", logger.IntField("job_id", int(taskHistory.JobID)), logger.StringField("job_type", job.Type))
		taskHistory.Status = model.StatusFailed
		taskHistory.ErrorMessage = sql.NullString{String: "job type not found", Valid: true}
	} else {
		result, err := executor.Execute(ctx, job)
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			taskHistory.Status = model.StatusTimeout
			taskHistory.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
		case err != nil:
			t.log.ErrorContext(ctx, "Failed to execute job", logger.ErrorField(err), logger.IntField("job_id", int(taskHistory.JobID)))
			taskHistory.Status = model.StatusFailed
			taskHistory.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
		default:
			taskHistory.Status = model.StatusCompleted
		}
		taskHistory.ExitCode = sql.NullInt32{Int32: result.ExitCode, Valid: true}
		taskHistory.Output = sql.NullString{String: result.Output, Valid: true}
	}

	taskHistory.CompletedAt = sql.NullTime{Time: t.clock.Now(), Valid: true}
	// the task context may already be spent by a timeout
	if err := t.jobRepo.UpdateTaskExecutionHistory(context.WithoutCancel(ctx), taskHistory); err != nil {
		t.log.ErrorContext(ctx, "Failed to update task execution history", logger.ErrorField(err), logger.IntField("job_id", int(taskHistory.JobID)))
		return fmt.Errorf("failed to update task execution history: %w", err)
	}

	return nil
}
