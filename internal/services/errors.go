package services

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat   = errors.New("unsupported file format")
	ErrPrerequisiteMissing = errors.New("prerequisite missing")
	ErrExtractionFailure   = errors.New("failed to extract text")
	ErrTooManyResumes      = errors.New("too many resumes")
)

// Prerequisite names what a session operation needs before it can run.
type Prerequisite string

const (
	NeedJobDescription Prerequisite = "job description"
	NeedResumes        Prerequisite = "resumes"
	NeedMatchResults   Prerequisite = "match results"
)

// PrerequisiteError matches ErrPrerequisiteMissing with errors.Is.
type PrerequisiteError struct {
	Missing Prerequisite
}

func (e *PrerequisiteError) Error() string {
	switch e.Missing {
	case NeedJobDescription:
		return "Job Description not uploaded."
	case NeedResumes:
		return "No resumes uploaded."
	case NeedMatchResults:
		return "Run the /match/ endpoint first. Data is present, but scores are missing."
	}
	return fmt.Sprintf("missing %s", e.Missing)
}

func (e *PrerequisiteError) Is(target error) bool {
	return target == ErrPrerequisiteMissing
}

func missing(p Prerequisite) error {
	return &PrerequisiteError{Missing: p}
}

// FailedFile reports a file skipped during a batch operation.
type FailedFile struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}
