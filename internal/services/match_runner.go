package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/hiresense/internal/models"
	"alfredoptarigan/hiresense/internal/repositories"
)

// MatchRunService persists match passes so they can run in the background.
type MatchRunService interface {
	Submit(jdText string, resumes []Candidate) (*models.MatchRun, error)
	ProcessRun(ctx context.Context, runID uuid.UUID) error
}

type matchRunService struct {
	runRepo    repositories.MatchRunRepository
	matcher    MatcherService
	maxResumes int
	log        *zap.Logger
}

func NewMatchRunService(
	runRepo repositories.MatchRunRepository,
	matcher MatcherService,
	maxResumes int,
	log *zap.Logger,
) MatchRunService {
	return &matchRunService{
		runRepo:    runRepo,
		matcher:    matcher,
		maxResumes: maxResumes,
		log:        log,
	}
}

// Submit stores a queued run holding a copy of the texts.
func (s *matchRunService) Submit(jdText string, resumes []Candidate) (*models.MatchRun, error) {
	if strings.TrimSpace(jdText) == "" {
		return nil, missing(NeedJobDescription)
	}
	if len(resumes) == 0 {
		return nil, missing(NeedResumes)
	}
	if s.maxResumes > 0 && len(resumes) > s.maxResumes {
		return nil, fmt.Errorf("%w: %d uploaded, limit is %d", ErrTooManyResumes, len(resumes), s.maxResumes)
	}

	run := &models.MatchRun{
		ID:             uuid.New(),
		Status:         models.StatusQueued,
		JobDescription: jdText,
	}
	for i, r := range resumes {
		run.Resumes = append(run.Resumes, models.MatchRunResume{
			Position: i,
			Filename: r.Filename,
			Content:  r.Content,
		})
	}

	if err := s.runRepo.Create(run); err != nil {
		return nil, err
	}
	return run, nil
}

// ProcessRun claims a queued run, matches it and stores the outcome. A run
// some other worker already claimed is skipped.
func (s *matchRunService) ProcessRun(ctx context.Context, runID uuid.UUID) error {
	claimed, err := s.runRepo.Claim(runID)
	if err != nil {
		return err
	}
	if !claimed {
		s.log.Debug("Run already claimed", zap.Stringer("run_id", runID))
		return nil
	}

	s.log.Info("🔄 Starting match run", zap.Stringer("run_id", runID))

	run, err := s.runRepo.FindByID(runID)
	if err != nil {
		s.fail(runID, err)
		return fmt.Errorf("failed to load match run: %w", err)
	}

	candidates := make([]Candidate, len(run.Resumes))
	positions := make(map[string][]int, len(run.Resumes))
	for i, r := range run.Resumes {
		candidates[i] = Candidate{Filename: r.Filename, Content: r.Content}
		positions[r.Filename] = append(positions[r.Filename], r.Position)
	}

	outcome, err := s.matcher.MatchAll(ctx, run.JobDescription, candidates)
	if err != nil {
		s.fail(runID, err)
		return fmt.Errorf("failed to match run: %w", err)
	}

	// Filenames may repeat; hand out positions in upload order.
	next := func(name string) int {
		ps := positions[name]
		if len(ps) == 0 {
			return -1
		}
		positions[name] = ps[1:]
		return ps[0]
	}

	results := make([]models.RunResult, 0, len(run.Resumes))
	for i, r := range outcome.Ranked {
		results = append(results, models.RunResult{
			Position:      next(r.Filename),
			Rank:          i + 1,
			Score:         r.Score,
			Prediction:    r.Prediction,
			MatchedSkills: r.MatchedSkills,
			MissingSkills: r.MissingSkills,
		})
	}
	for _, f := range outcome.Failed {
		results = append(results, models.RunResult{
			Position:      next(f.Filename),
			FailureReason: f.Reason,
		})
	}

	if err := s.runRepo.SaveResults(runID, results); err != nil {
		s.fail(runID, err)
		return fmt.Errorf("failed to save results: %w", err)
	}

	s.log.Info("✅ Match run completed",
		zap.Stringer("run_id", runID),
		zap.Int("ranked", len(outcome.Ranked)),
		zap.Int("failed", len(outcome.Failed)),
	)
	return nil
}

func (s *matchRunService) fail(runID uuid.UUID, cause error) {
	msg := "internal error while matching"
	if IsClientError(cause) {
		msg = cause.Error()
	}
	if err := s.runRepo.UpdateError(runID, msg); err != nil {
		s.log.Error("❌ Failed to record run failure", zap.Stringer("run_id", runID), zap.Error(err))
	}
}
