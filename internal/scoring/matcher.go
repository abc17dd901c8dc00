package scoring

import (
	"context"
	"fmt"
)

// SkillMatchResult holds the skill sets for one (job description, resume)
// pair. MatchedSkills and MissingSkills partition JobSkills. All slices are
// sorted.
type SkillMatchResult struct {
	JobSkills     []string `json:"jd_skills"`
	ResumeSkills  []string `json:"resume_skills"`
	MatchedSkills []string `json:"matched_skills"`
	MissingSkills []string `json:"missing_skills"`
}

// Coverage is the fraction of job skills the resume covers. A job
// description without extractable skills counts as fully covered.
func (r SkillMatchResult) Coverage() float64 {
	if len(r.JobSkills) == 0 {
		return 1.0
	}
	return float64(len(r.MatchedSkills)) / float64(len(r.JobSkills))
}

type SkillMatcher struct {
	extractor SkillExtractor
}

func NewSkillMatcher(extractor SkillExtractor) *SkillMatcher {
	return &SkillMatcher{extractor: extractor}
}

// Match extracts skills from both texts and classifies every job skill as
// matched or missing.
func (m *SkillMatcher) Match(ctx context.Context, jdText, resumeText string) (SkillMatchResult, error) {
	jobSkills, err := m.JobSkills(ctx, jdText)
	if err != nil {
		return SkillMatchResult{}, err
	}
	return m.MatchAgainst(ctx, jobSkills, resumeText)
}

// JobSkills extracts the job description's skill set once so it can be
// reused across many resumes.
func (m *SkillMatcher) JobSkills(ctx context.Context, jdText string) ([]string, error) {
	skills, err := m.extractor.Extract(ctx, jdText)
	if err != nil {
		return nil, fmt.Errorf("failed to extract job description skills: %w", err)
	}
	return skills, nil
}

// MatchAgainst matches a resume against already extracted job skills.
func (m *SkillMatcher) MatchAgainst(ctx context.Context, jobSkills []string, resumeText string) (SkillMatchResult, error) {
	resumeSkills, err := m.extractor.Extract(ctx, resumeText)
	if err != nil {
		return SkillMatchResult{}, fmt.Errorf("failed to extract resume skills: %w", err)
	}

	matched, missing := ExpandGeneric(jobSkills, resumeSkills)

	return SkillMatchResult{
		JobSkills:     sortedKeys(toSet(jobSkills)),
		ResumeSkills:  resumeSkills,
		MatchedSkills: matched,
		MissingSkills: missing,
	}, nil
}
