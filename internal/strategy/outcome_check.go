package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"signalcrawler/internal/model"
	"signalcrawler/internal/outcome"
	"signalcrawler/pkg/logger"
)

type OutcomeCheckStrategy struct {
	log     *logger.Logger
	tracker outcome.Tracker
}

func NewOutcomeCheckStrategy(log *logger.Logger, tracker outcome.Tracker) JobExecutionStrategy {
	return &OutcomeCheckStrategy{
		log:     log,
		tracker: tracker,
	}
}

func (s *OutcomeCheckStrategy) Execute(ctx context.Context, job *model.Job) (JobResult, error) {
	summary, err := s.tracker.CheckPending(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Outcome check failed", logger.ErrorField(err), logger.IntField("job_id", int(job.ID)))
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: err.Error()}, fmt.Errorf("outcome check failed: %w", err)
	}

	out, err := json.Marshal(summary)
	if err != nil {
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: err.Error()}, fmt.Errorf("failed to marshal outcome summary: %w", err)
	}
	s.log.DebugContext(ctx, "Outcome check completed", logger.StringField("summary", string(out)))

	exitCode := int32(JOB_EXIT_CODE_SUCCESS)
	switch {
	case summary.Checked == 0:
		exitCode = JOB_EXIT_CODE_SKIPPED
	case summary.Failed > 0:
		exitCode = JOB_EXIT_CODE_PARTIAL_SUCCESS
	}
	return JobResult{ExitCode: exitCode, Output: string(out)}, nil
}

func (s *OutcomeCheckStrategy) GetType() JobType {
	return JobTypeOutcomeCheck
}
