package models

import (
	"time"

	"alfredoptarigan/hiresense/internal/scoring"
)

type JobDescriptionResponse struct {
	Source   string `json:"source"`
	Filename string `json:"filename,omitempty"`
	Content  string `json:"content"`
}

type UploadedResume struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type FailedResume struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

type UploadResumesResponse struct {
	Message  string           `json:"message"`
	Uploaded []UploadedResume `json:"uploaded"`
	Failed   []FailedResume   `json:"failed,omitempty"`
}

type MatchResponse struct {
	RankedResumes []scoring.Ranked `json:"ranked_resumes"`
	Failed        []FailedResume   `json:"failed,omitempty"`
}

type InsightsResponse struct {
	Filename      string   `json:"filename"`
	MatchedSkills []string `json:"matched_skills"`
	MissingSkills []string `json:"missing_skills"`
}

type MatchRunCreatedResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type MatchRunResponse struct {
	ID           string         `json:"id"`
	Status       string         `json:"status"`
	ResumeCount  int            `json:"resume_count"`
	CreatedAt    time.Time      `json:"created_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	Result       *MatchResponse `json:"result,omitempty"`
	ErrorMessage *string        `json:"error_message,omitempty"`
}

// RunResult is the outcome of one resume inside a run, keyed by position.
type RunResult struct {
	Position      int
	Rank          int
	Score         float64
	Prediction    scoring.Label
	MatchedSkills []string
	MissingSkills []string
	FailureReason string
}
