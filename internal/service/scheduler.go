package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"signalcrawler/config"
	"signalcrawler/internal/model"
	"signalcrawler/internal/repository"
	"signalcrawler/internal/session"
	"signalcrawler/pkg/logger"
	"signalcrawler/pkg/utils"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var ErrJobNotFound = errors.New("job not found")

type SchedulerService interface {
	Start(ctx context.Context)
	Stop()
	Execute(ctx context.Context) error
	GetJobSchedule(ctx context.Context, param model.GetJobParam) ([]model.Job, error)
	RunJobTask(ctx context.Context, jobID uint) error
}

type schedulerService struct {
	cfg          *config.Config
	log          *logger.Logger
	clock        session.Clock
	cronParser   cron.Parser
	jobRepo      repository.JobRepository
	taskExecutor TaskExecutor
	semaphore    chan struct{}

	wg     sync.WaitGroup
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSchedulerService(
	cfg *config.Config,
	log *logger.Logger,
	clock session.Clock,
	jobRepo repository.JobRepository,
	taskExecutor TaskExecutor,
) SchedulerService {
	maxConcurrency := cfg.Scheduler.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &schedulerService{
		cfg:          cfg,
		log:          log,
		clock:        clock,
		jobRepo:      jobRepo,
		cronParser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		taskExecutor: taskExecutor,
		semaphore:    make(chan struct{}, maxConcurrency),
	}
}

// Start runs Execute every scheduler.tick_interval until Stop is called or
// ctx is cancelled.
func (s *schedulerService) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	interval := s.cfg.Scheduler.TickInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	s.log.InfoContext(ctx, "Scheduler started", logger.Field("tick_interval", interval.String()))

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if err := s.Execute(loopCtx); err != nil {
					s.log.ErrorContext(loopCtx, "Scheduler cycle failed", logger.ErrorField(err))
				}
			}
		}
	}()
}

// Stop ends the tick loop and waits for in-flight tasks to finish.
func (s *schedulerService) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	s.wg.Wait()
	s.log.Info("Scheduler stopped")
}

func (s *schedulerService) Execute(ctx context.Context) error {
	jobs, err := s.jobRepo.FindJobsToSchedule(ctx, s.clock.Now(), utils.WithPreload("Job"))
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to find jobs to schedule", logger.ErrorField(err))
		return fmt.Errorf("failed to find jobs to schedule: %w", err)
	}

	if len(jobs) == 0 {
		s.log.DebugContext(ctx, "No jobs to schedule")
		return nil
	}
	s.log.DebugContext(ctx, "Start running jobs",
		logger.IntField("job_count", len(jobs)),
		logger.IntField("max_concurrency", cap(s.semaphore)),
	)

	for _, job := range jobs {
		if !utils.ShouldContinue(ctx, s.log) {
			return nil
		}

		if err := s.executeJob(ctx, job); err != nil {
			s.log.ErrorContextWithAlert(ctx, "Failed to execute job",
				logger.ErrorField(err),
				logger.IntField("job_id", int(job.JobID)),
				logger.IntField("schedule_id", int(job.ID)),
				logger.StringField("job_name", job.Job.Name),
				logger.StringField("job_type", job.Job.Type),
			)
		}
	}

	return nil
}

func (s *schedulerService) executeJob(ctx context.Context, task model.TaskSchedule) error {
	s.log.DebugContext(ctx, "Executing job",
		logger.IntField("job_id", int(task.JobID)),
		logger.IntField("schedule_id", int(task.ID)),
		logger.StringField("job_name", task.Job.Name),
		logger.StringField("job_type", task.Job.Type),
		logger.IntField("timeout", task.Job.Timeout),
		logger.IntField("active_concurrency", len(s.semaphore)),
		logger.IntField("max_concurrency", cap(s.semaphore)),
	)

	// Advance the schedule before running so a slow task is not picked up
	// again by the next tick.
	cronSchedule, err := s.cronParser.Parse(task.CronExpression)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to parse cron expression", logger.ErrorField(err), logger.IntField("schedule_id", int(task.ID)))
		return fmt.Errorf("failed to parse cron expression: %w", err)
	}

	now := s.clock.Now()
	task.LastExecution = sql.NullTime{Time: now, Valid: true}
	task.NextExecution = sql.NullTime{Time: cronSchedule.Next(now), Valid: true}
	if err := s.jobRepo.UpdateTaskSchedule(ctx, &task); err != nil {
		s.log.ErrorContext(ctx, "Failed to update task schedule", logger.ErrorField(err), logger.IntField("schedule_id", int(task.ID)))
		return fmt.Errorf("failed to update task schedule: %w", err)
	}

	history := &model.TaskExecutionHistory{
		JobID:      task.JobID,
		ScheduleID: task.ID,
		Status:     model.StatusRunning,
		StartedAt:  now,
	}
	if err := s.jobRepo.CreateTaskExecutionHistory(ctx, history); err != nil {
		s.log.ErrorContext(ctx, "Failed to create task history", logger.ErrorField(err), logger.IntField("schedule_id", int(task.ID)))
		return fmt.Errorf("failed to create task history: %w", err)
	}

	select {
	case s.semaphore <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	timeout := task.Job.TimeoutDuration(s.cfg.Scheduler.TimeoutDuration)
	s.wg.Add(1)
	utils.GoSafe(func() {
		defer s.wg.Done()
		defer func() {
			<-s.semaphore
		}()

		taskCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := s.taskExecutor.Execute(taskCtx, history); err != nil {
			s.log.ErrorContextWithAlert(taskCtx, "Failed to execute task", logger.ErrorField(err), logger.IntField("schedule_id", int(task.ID)))
		}
	})
	return nil
}

func (s *schedulerService) GetJobSchedule(ctx context.Context, param model.GetJobParam) ([]model.Job, error) {
	return s.jobRepo.Get(ctx, &param)
}

func (s *schedulerService) RunJobTask(ctx context.Context, jobID uint) error {
	s.log.InfoContext(ctx, "Running job task", logger.IntField("job_id", int(jobID)))
	jobs, err := s.jobRepo.Get(ctx, &model.GetJobParam{IDs: []uint{jobID}})
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to find job", logger.ErrorField(err), logger.IntField("job_id", int(jobID)))
		return fmt.Errorf("failed to find job: %w", err)
	}
	if len(jobs) == 0 || len(jobs[0].Schedules) == 0 {
		s.log.WarnContext(ctx, "Job or schedule not found", logger.IntField("job_id", int(jobID)))
		return fmt.Errorf("%w: %d", ErrJobNotFound, jobID)
	}

	return s.executeJob(ctx, jobs[0].Schedules[0])
}
