package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

type Job struct {
	ID          uint                   `gorm:"primaryKey" json:"id"`
	Name        string                 `gorm:"type:varchar(255);not null" json:"name"`
	Description string                 `gorm:"type:text" json:"description"`
	Type        string                 `gorm:"type:varchar(50);not null" json:"type"`
	Payload     datatypes.JSON         `gorm:"type:jsonb;not null" json:"payload"`
	Timeout     int                    `gorm:"default:60" json:"timeout"`
	CreatedAt   time.Time              `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time              `gorm:"autoUpdateTime" json:"updated_at"`
	Schedules   []TaskSchedule         `gorm:"foreignKey:JobID" json:"schedules,omitempty"`
	Histories   []TaskExecutionHistory `gorm:"foreignKey:JobID" json:"histories,omitempty"`
}

func (Job) TableName() string {
	return "jobs"
}

// TimeoutDuration falls back to fallback when the job has no timeout set.
func (j Job) TimeoutDuration(fallback time.Duration) time.Duration {
	if j.Timeout <= 0 {
		return fallback
	}
	return time.Duration(j.Timeout) * time.Second
}

type TaskSchedule struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	JobID          uint         `gorm:"not null" json:"job_id"`
	CronExpression string       `gorm:"type:varchar(100)" json:"cron_expression"`
	NextExecution  sql.NullTime `json:"next_execution"`
	LastExecution  sql.NullTime `json:"last_execution"`
	IsActive       bool         `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"autoUpdateTime" json:"updated_at"`

	Job Job `gorm:"foreignKey:JobID;references:ID" json:"-"`
}

func (TaskSchedule) TableName() string {
	return "task_schedules"
}

type TaskExecutionStatus string

const (
	StatusRunning   TaskExecutionStatus = "running"
	StatusCompleted TaskExecutionStatus = "completed"
	StatusFailed    TaskExecutionStatus = "failed"
	StatusTimeout   TaskExecutionStatus = "timeout"
)

type TaskExecutionHistory struct {
	ID           uint                `gorm:"primaryKey" json:"id"`
	JobID        uint                `gorm:"not null" json:"job_id"`
	ScheduleID   uint                `gorm:"not null" json:"schedule_id"`
	StartedAt    time.Time           `gorm:"not null" json:"started_at"`
	CompletedAt  sql.NullTime        `json:"completed_at"`
	Status       TaskExecutionStatus `gorm:"type:varchar(50);not null" json:"status"`
	ExitCode     sql.NullInt32       `json:"exit_code"`
	Output       sql.NullString      `gorm:"type:text" json:"output"`
	ErrorMessage sql.NullString      `gorm:"type:text" json:"error_message"`
	CreatedAt    time.Time           `gorm:"autoCreateTime" json:"created_at"`
}

func (TaskExecutionHistory) TableName() string {
	return "task_execution_history"
}

type GetJobParam struct {
	IDs             []uint                        `json:"ids"`
	Types           []string                      `json:"types"`
	IsActive        *bool                         `json:"is_active"`
	Limit           *int                          `json:"limit"`
	WithTaskHistory *GetTaskExecutionHistoryParam `json:"with_task_history"`
}

type GetTaskExecutionHistoryParam struct {
	Limit *int `json:"limit"`
}
