package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"signalcrawler/internal/guardian"
	"signalcrawler/internal/model"
	"signalcrawler/pkg/logger"
)

// GuardianRecheckStrategy re-evaluates the risk rules so alerts for a new
// session date fire even when no trade resolves.
type GuardianRecheckStrategy struct {
	log      *logger.Logger
	guardian guardian.Guardian
}

func NewGuardianRecheckStrategy(log *logger.Logger, g guardian.Guardian) JobExecutionStrategy {
	return &GuardianRecheckStrategy{
		log:      log,
		guardian: g,
	}
}

func (s *GuardianRecheckStrategy) Execute(ctx context.Context, job *model.Job) (JobResult, error) {
	alerts, err := s.guardian.Recheck(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Guardian recheck failed", logger.ErrorField(err), logger.IntField("job_id", int(job.ID)))
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: err.Error()}, fmt.Errorf("guardian recheck failed: %w", err)
	}

	status := s.guardian.Status()
	out, err := json.Marshal(map[string]interface{}{
		"status": status.Status,
		"alerts": alerts,
	})
	if err != nil {
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: err.Error()}, fmt.Errorf("failed to marshal recheck result: %w", err)
	}
	return JobResult{ExitCode: JOB_EXIT_CODE_SUCCESS, Output: string(out)}, nil
}

func (s *GuardianRecheckStrategy) GetType() JobType {
	return JobTypeGuardianRecheck
}
