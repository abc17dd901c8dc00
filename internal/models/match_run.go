package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MatchRunStatus string

const (
	StatusQueued     MatchRunStatus = "queued"
	StatusProcessing MatchRunStatus = "processing"
	StatusCompleted  MatchRunStatus = "completed"
	StatusFailed     MatchRunStatus = "failed"
)

// MatchRun is an asynchronous match pass over a frozen copy of the session.
type MatchRun struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Status         MatchRunStatus `gorm:"not null;default:'queued';index" json:"status"`
	JobDescription string         `gorm:"type:text;not null" json:"-"`
	ResumeCount    int            `gorm:"not null" json:"resume_count"`
	RankedCount    int            `json:"ranked_count"`
	FailedCount    int            `json:"failed_count"`
	ErrorMessage   *string        `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`

	// Relations
	Resumes []MatchRunResume `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"-"`
}

func (MatchRun) TableName() string {
	return "match_runs"
}

func (r *MatchRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// MatchRunResume is one resume of a run, in upload order. The result
// columns stay empty until the run completes.
type MatchRunResume struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	RunID         uuid.UUID `gorm:"type:uuid;not null;index:idx_run_position,unique" json:"-"`
	Position      int       `gorm:"not null;index:idx_run_position,unique" json:"-"`
	Filename      string    `gorm:"type:text;not null" json:"filename"`
	Content       string    `gorm:"type:text;not null" json:"-"`
	Rank          *int      `json:"rank,omitempty"`
	Score         *float64  `json:"score,omitempty"`
	Prediction    *string   `gorm:"type:text" json:"prediction,omitempty"`
	MatchedSkills []string  `gorm:"type:text;serializer:json" json:"matched_skills,omitempty"`
	MissingSkills []string  `gorm:"type:text;serializer:json" json:"missing_skills,omitempty"`
	FailureReason *string   `gorm:"type:text" json:"failure_reason,omitempty"`
}

func (MatchRunResume) TableName() string {
	return "match_run_resumes"
}
