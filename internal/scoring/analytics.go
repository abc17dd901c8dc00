package scoring

import (
	"fmt"
	"math"
	"sort"
)

const (
	histogramBins  = 5
	histogramWidth = 20.0
	topSkillsLimit = 8
)

type HistogramBin struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

type SkillCount struct {
	Skill string `json:"skill"`
	Count int    `json:"count"`
}

type SkillGap struct {
	Matched int `json:"matched"`
	Missing int `json:"missing"`
}

type Summary struct {
	ScoreDistribution []HistogramBin `json:"score_distribution"`
	TopSkills         []SkillCount   `json:"top_skills"`
	OverallSkillGap   SkillGap       `json:"overall_skill_gap"`
	TotalCandidates   int            `json:"total_candidates"`
}

// ScoredResume is the analytics view of a resume after a match pass.
// Unscored resumes count toward TotalCandidates only.
type ScoredResume struct {
	Score         float64
	Scored        bool
	MatchedSkills []string
	MissingSkills []string
}

// Summarize builds the dashboard numbers: a five-bin score histogram over
// [0,100], the most frequent matched skills and the aggregate skill gap.
func Summarize(resumes []ScoredResume) Summary {
	counts := make([]int, histogramBins)
	skillCounts := make(map[string]int)
	var firstSeen []string
	var gap SkillGap

	for _, r := range resumes {
		if r.Scored {
			counts[histogramBin(r.Score)]++
		}

		for _, s := range r.MatchedSkills {
			if _, seen := skillCounts[s]; !seen {
				firstSeen = append(firstSeen, s)
			}
			skillCounts[s]++
		}
		gap.Matched += len(r.MatchedSkills)
		gap.Missing += len(r.MissingSkills)
	}

	dist := make([]HistogramBin, histogramBins)
	for i := range dist {
		lo := int(float64(i) * histogramWidth)
		dist[i] = HistogramBin{
			Range: fmt.Sprintf("%d-%d%%", lo, lo+int(histogramWidth)),
			Count: counts[i],
		}
	}

	top := make([]SkillCount, 0, len(firstSeen))
	for _, s := range firstSeen {
		top = append(top, SkillCount{Skill: s, Count: skillCounts[s]})
	}
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Count > top[j].Count
	})
	if len(top) > topSkillsLimit {
		top = top[:topSkillsLimit]
	}

	return Summary{
		ScoreDistribution: dist,
		TopSkills:         top,
		OverallSkillGap:   gap,
		TotalCandidates:   len(resumes),
	}
}

// histogramBin clamps the score into [0,100]; 100 lands in the top bin
// and NaN in the lowest.
func histogramBin(score float64) int {
	if math.IsNaN(score) {
		score = 0
	}
	score = math.Max(0, math.Min(100, score))
	idx := int(math.Floor(score / histogramWidth))
	if idx >= histogramBins {
		idx = histogramBins - 1
	}
	return idx
}
