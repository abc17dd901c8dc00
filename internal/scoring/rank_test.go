package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func names(rows []Ranked) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Filename
	}
	return out
}

func TestRankStableOnTies(t *testing.T) {
	rows := []Ranked{
		{Filename: "A", Hybrid: 0.8},
		{Filename: "B", Hybrid: 0.8},
		{Filename: "C", Hybrid: 0.6},
	}
	Rank(rows)
	assert.Equal(t, []string{"A", "B", "C"}, names(rows))

	rows = []Ranked{
		{Filename: "C", Hybrid: 0.6},
		{Filename: "A", Hybrid: 0.8},
		{Filename: "D", Hybrid: 0.95},
		{Filename: "B", Hybrid: 0.8},
	}
	Rank(rows)
	assert.Equal(t, []string{"D", "A", "B", "C"}, names(rows))

	Rank(rows)
	assert.Equal(t, []string{"D", "A", "B", "C"}, names(rows))
}

func TestNewRanked(t *testing.T) {
	r := NewRanked("cv.pdf", Result{
		Prediction:     Prediction{Label: LabelFit, FitProbability: 0.9},
		HybridFitScore: 0.876543,
		Skills: SkillMatchResult{
			MatchedSkills: []string{"go"},
			MissingSkills: []string{"aws"},
		},
	})

	assert.Equal(t, "cv.pdf", r.Filename)
	assert.Equal(t, 87.65, r.Score)
	assert.Equal(t, LabelFit, r.Prediction)
	assert.Equal(t, []string{"go"}, r.MatchedSkills)
	assert.Equal(t, []string{"aws"}, r.MissingSkills)
	assert.Equal(t, 0.876543, r.Hybrid)
}

func TestRoundPercent(t *testing.T) {
	assert.Equal(t, 100.0, RoundPercent(1))
	assert.Equal(t, 0.0, RoundPercent(0))
	assert.Equal(t, 33.33, RoundPercent(1.0/3))
	assert.Equal(t, 66.67, RoundPercent(2.0/3))
}
