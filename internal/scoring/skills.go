package scoring

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// SkillLabel is the entity label the extraction models emit for skills.
// Labels are matched by substring so "SKILLS", "B-SKILL" style names all
// qualify.
const SkillLabel = "SKILL"

// NoiseTerms are over-broad labels the extraction model tends to emit.
var NoiseTerms = map[string]struct{}{
	"code":                 {},
	"management":           {},
	"computer skills":      {},
	"software development": {},
}

// Entity is one tagged span.
type Entity struct {
	Text  string
	Label string
}

// EntityTagger runs named-entity recognition over free text.
type EntityTagger interface {
	Tag(ctx context.Context, text string) ([]Entity, error)
}

// SkillExtractor turns free text into a set of skill labels.
type SkillExtractor interface {
	Extract(ctx context.Context, text string) ([]string, error)
}

type skillExtractor struct {
	tagger EntityTagger
	noise  map[string]struct{}
}

func NewSkillExtractor(tagger EntityTagger) SkillExtractor {
	return &skillExtractor{
		tagger: tagger,
		noise:  NoiseTerms,
	}
}

// Extract implements SkillExtractor. The result is lower-cased, deduplicated
// and sorted.
func (s *skillExtractor) Extract(ctx context.Context, text string) ([]string, error) {
	text = CleanText(text)
	if text == "" {
		return []string{}, nil
	}

	entities, err := s.tagger.Tag(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to tag skills: %w", err)
	}

	set := make(map[string]struct{}, len(entities))
	for _, ent := range entities {
		if !strings.Contains(strings.ToUpper(ent.Label), SkillLabel) {
			continue
		}

		skill := strings.ToLower(strings.TrimSpace(ent.Text))
		if skill == "" {
			continue
		}
		if _, noisy := s.noise[skill]; noisy {
			continue
		}
		set[skill] = struct{}{}
	}

	return sortedKeys(set), nil
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
