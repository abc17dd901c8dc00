package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"alfredoptarigan/hiresense/internal/scoring"
	"alfredoptarigan/hiresense/internal/session"
)

// Candidate is a resume's text as the matcher sees it.
type Candidate struct {
	Filename string
	Content  string
}

// CandidatesFrom converts session resumes, keeping their order.
func CandidatesFrom(resumes []session.Resume) []Candidate {
	out := make([]Candidate, len(resumes))
	for i, r := range resumes {
		out[i] = Candidate{Filename: r.Filename, Content: r.Content}
	}
	return out
}

type MatchOutcome struct {
	Ranked []scoring.Ranked `json:"ranked_resumes"`
	Failed []FailedFile     `json:"failed,omitempty"`
}

type MatcherOptions struct {
	BatchSize  int
	Timeout    time.Duration
	MaxResumes int
}

type MatcherService interface {
	MatchAll(ctx context.Context, jdText string, resumes []Candidate) (*MatchOutcome, error)
	Insights(ctx context.Context, jdText, resumeText string) (*scoring.SkillMatchResult, error)
	Analytics(snap session.Snapshot) (*scoring.Summary, error)
	Report(ctx context.Context, jdText string, resumes []Candidate) ([]ReportRow, error)
}

type matcherService struct {
	classifier *scoring.Classifier
	skills     *scoring.SkillMatcher
	opts       MatcherOptions
	log        *zap.Logger
}

func NewMatcherService(
	classifier *scoring.Classifier,
	skills *scoring.SkillMatcher,
	opts MatcherOptions,
	log *zap.Logger,
) MatcherService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 16
	}
	return &matcherService{
		classifier: classifier,
		skills:     skills,
		opts:       opts,
		log:        log,
	}
}

// perResume collects what the two passes produced for one resume.
type perResume struct {
	pred    scoring.Prediction
	predErr error
	skills  scoring.SkillMatchResult
	skErr   error
}

// MatchAll scores every resume against the job description and ranks the
// ones that scored. A resume that fails either pass is reported in Failed
// and the rest of the batch carries on.
func (s *matcherService) MatchAll(ctx context.Context, jdText string, resumes []Candidate) (*MatchOutcome, error) {
	if strings.TrimSpace(jdText) == "" {
		return nil, missing(NeedJobDescription)
	}
	if len(resumes) == 0 {
		return nil, missing(NeedResumes)
	}
	if s.opts.MaxResumes > 0 && len(resumes) > s.opts.MaxResumes {
		return nil, fmt.Errorf("%w: %d uploaded, limit is %d", ErrTooManyResumes, len(resumes), s.opts.MaxResumes)
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	rows := make([]perResume, len(resumes))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.skillPass(gctx, jdText, resumes, rows)
	})
	g.Go(func() error {
		return s.classifierPass(gctx, jdText, resumes, rows)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("match aborted: %w", err)
	}

	outcome := &MatchOutcome{Ranked: make([]scoring.Ranked, 0, len(resumes))}
	for i, r := range rows {
		name := resumes[i].Filename
		switch {
		case r.predErr != nil:
			outcome.Failed = append(outcome.Failed, FailedFile{Filename: name, Reason: "scoring failed"})
			s.log.Warn("⚠️  Resume skipped by classifier", zap.String("filename", name), zap.Error(r.predErr))
		case r.skErr != nil:
			outcome.Failed = append(outcome.Failed, FailedFile{Filename: name, Reason: "skill extraction failed"})
			s.log.Warn("⚠️  Resume skipped by skill matcher", zap.String("filename", name), zap.Error(r.skErr))
		default:
			outcome.Ranked = append(outcome.Ranked, scoring.NewRanked(name, scoring.Combine(r.pred, r.skills)))
		}
	}
	scoring.Rank(outcome.Ranked)

	s.log.Info("✅ Match completed",
		zap.Int("resumes", len(resumes)),
		zap.Int("ranked", len(outcome.Ranked)),
		zap.Int("failed", len(outcome.Failed)),
		zap.Duration("took", time.Since(start)),
	)
	return outcome, nil
}

func (s *matcherService) skillPass(ctx context.Context, jdText string, resumes []Candidate, rows []perResume) error {
	jobSkills, err := s.skills.JobSkills(ctx, jdText)
	if err != nil {
		return err
	}

	for i, r := range resumes {
		res, err := s.skills.MatchAgainst(ctx, jobSkills, r.Content)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			rows[i].skErr = err
			continue
		}
		rows[i].skills = res
	}
	return nil
}

// classifierPass runs the batched path chunk by chunk. When a chunk fails
// it is retried one resume at a time so a single bad input only fails
// itself.
func (s *matcherService) classifierPass(ctx context.Context, jdText string, resumes []Candidate, rows []perResume) error {
	for lo := 0; lo < len(resumes); lo += s.opts.BatchSize {
		hi := min(lo+s.opts.BatchSize, len(resumes))

		texts := make([]string, hi-lo)
		for i := range texts {
			texts[i] = resumes[lo+i].Content
		}

		preds, err := s.classifier.PredictBatch(ctx, texts, jdText)
		if err == nil {
			for i, p := range preds {
				rows[lo+i].pred = p
			}
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		s.log.Warn("⚠️  Batch prediction failed, retrying one by one",
			zap.Int("from", lo), zap.Int("to", hi), zap.Error(err))

		for i := lo; i < hi; i++ {
			p, err := s.classifier.PredictOne(ctx, resumes[i].Content, jdText)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				rows[i].predErr = err
				continue
			}
			rows[i].pred = p
		}
	}
	return nil
}

func (s *matcherService) Insights(ctx context.Context, jdText, resumeText string) (*scoring.SkillMatchResult, error) {
	if strings.TrimSpace(jdText) == "" {
		return nil, missing(NeedJobDescription)
	}

	res, err := s.skills.Match(ctx, jdText, resumeText)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Analytics summarizes the scores of the last match pass.
func (s *matcherService) Analytics(snap session.Snapshot) (*scoring.Summary, error) {
	if snap.JobDescription == nil {
		return nil, missing(NeedJobDescription)
	}
	if len(snap.Resumes) == 0 {
		return nil, missing(NeedResumes)
	}

	scored := make([]scoring.ScoredResume, len(snap.Resumes))
	anyScored := false
	for i, r := range snap.Resumes {
		scored[i] = scoring.ScoredResume{
			Scored:        r.Scored(),
			MatchedSkills: r.MatchedSkills,
			MissingSkills: r.MissingSkills,
		}
		if r.Scored() {
			scored[i].Score = *r.Score
			anyScored = true
		}
	}
	if !anyScored {
		return nil, missing(NeedMatchResults)
	}

	summary := scoring.Summarize(scored)
	return &summary, nil
}

// Report re-scores the session and returns ranked report rows.
func (s *matcherService) Report(ctx context.Context, jdText string, resumes []Candidate) ([]ReportRow, error) {
	outcome, err := s.MatchAll(ctx, jdText, resumes)
	if err != nil {
		return nil, err
	}

	rows := make([]ReportRow, len(outcome.Ranked))
	for i, r := range outcome.Ranked {
		rows[i] = ReportRow{
			Rank:          i + 1,
			Filename:      r.Filename,
			Score:         r.Score,
			MatchedSkills: r.MatchedSkills,
			MissingSkills: r.MissingSkills,
		}
	}
	return rows, nil
}

// IsClientError reports whether err is the caller's fault rather than an
// internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrPrerequisiteMissing) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrExtractionFailure) ||
		errors.Is(err, ErrTooManyResumes)
}
