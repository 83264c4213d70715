package strategy

import (
	"context"
	"fmt"
	"signalcrawler/internal/model"
	"signalcrawler/pkg/logger"
)

type LevelsSnapshotter interface {
	SnapshotLevels(ctx context.Context) (int, error)
}

type LevelsSnapshotStrategy struct {
	log         *logger.Logger
	snapshotter LevelsSnapshotter
}

func NewLevelsSnapshotStrategy(log *logger.Logger, snapshotter LevelsSnapshotter) JobExecutionStrategy {
	return &LevelsSnapshotStrategy{
		log:         log,
		snapshotter: snapshotter,
	}
}

func (s *LevelsSnapshotStrategy) Execute(ctx context.Context, job *model.Job) (JobResult, error) {
	saved, err := s.snapshotter.SnapshotLevels(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Levels snapshot failed", logger.ErrorField(err), logger.IntField("job_id", int(job.ID)))
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: err.Error()}, err
	}
	if saved == 0 {
		return JobResult{ExitCode: JOB_EXIT_CODE_SKIPPED, Output: "no levels tracked"}, nil
	}
	return JobResult{ExitCode: JOB_EXIT_CODE_SUCCESS, Output: fmt.Sprintf("saved %d daily levels", saved)}, nil
}

func (s *LevelsSnapshotStrategy) GetType() JobType {
	return JobTypeLevelsSnapshot
}
