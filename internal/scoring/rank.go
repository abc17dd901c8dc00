package scoring

import (
	"math"
	"sort"
)

// Ranked is one resume's row in a ranking.
type Ranked struct {
	Filename      string   `json:"filename"`
	Score         float64  `json:"score"`
	Prediction    Label    `json:"prediction"`
	MatchedSkills []string `json:"matched_skills"`
	MissingSkills []string `json:"missing_skills"`
	Hybrid        float64  `json:"-"`
}

// NewRanked builds a ranking row from a scoring result.
func NewRanked(filename string, res Result) Ranked {
	return Ranked{
		Filename:      filename,
		Score:         RoundPercent(res.HybridFitScore),
		Prediction:    res.Label,
		MatchedSkills: res.Skills.MatchedSkills,
		MissingSkills: res.Skills.MissingSkills,
		Hybrid:        res.HybridFitScore,
	}
}

// Rank sorts rows by hybrid score, highest first. Equal scores keep their
// input order, so ranking an already ranked slice changes nothing.
func Rank(rows []Ranked) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Hybrid > rows[j].Hybrid
	})
}

// RoundPercent converts a [0,1] score to a percentage with two decimals.
func RoundPercent(score float64) float64 {
	return math.Round(score*100*100) / 100
}
