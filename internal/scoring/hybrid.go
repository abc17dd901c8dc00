package scoring

import "context"

// Blend weights of the hybrid score. They sum to one.
const (
	WeightML     = 0.7
	WeightSkills = 0.3
)

// HybridScore blends the classifier's fit probability with the skill
// coverage ratio. The result stays in [0,1] when both inputs do.
func HybridScore(mlProbability, skillMatchRatio float64) float64 {
	return WeightML*mlProbability + WeightSkills*skillMatchRatio
}

// Result is the full verdict for one resume.
type Result struct {
	Prediction
	HybridFitScore float64          `json:"hybrid_fit_score"`
	Skills         SkillMatchResult `json:"skills"`
}

type Scorer struct {
	matcher *SkillMatcher
}

func NewScorer(matcher *SkillMatcher) *Scorer {
	return &Scorer{matcher: matcher}
}

// Score computes the hybrid score of a resume given the classifier's fit
// probability for the same pair.
func (s *Scorer) Score(ctx context.Context, resumeText, jdText string, mlProbability float64) (float64, error) {
	skills, err := s.matcher.Match(ctx, jdText, resumeText)
	if err != nil {
		return 0, err
	}
	return HybridScore(mlProbability, skills.Coverage()), nil
}

// Combine merges a prediction with an already computed skill match.
func Combine(pred Prediction, skills SkillMatchResult) Result {
	return Result{
		Prediction:     pred,
		HybridFitScore: HybridScore(pred.FitProbability, skills.Coverage()),
		Skills:         skills,
	}
}
