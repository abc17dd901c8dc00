package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/hiresense/internal/scoring"
)

// IndexedVector is one resume embedding stored for a similarity run.
type IndexedVector struct {
	Position int
	Filename string
	Vector   []float32
}

// VectorMatch is a search hit. Score is a cosine similarity in [0,1].
type VectorMatch struct {
	Position int
	Filename string
	Score    float64
}

// VectorIndex stores embeddings grouped by run so concurrent requests do
// not see each other's points.
type VectorIndex interface {
	Init(ctx context.Context) error
	Upsert(ctx context.Context, runID string, items []IndexedVector) error
	Search(ctx context.Context, runID string, query []float32, limit int) ([]VectorMatch, error)
	DeleteRun(ctx context.Context, runID string) error
}

// LegacyScore is a cosine-similarity verdict for one resume.
type LegacyScore struct {
	Filename string  `json:"filename"`
	Score    float64 `json:"score"`
}

type LegacySimilarityService interface {
	Rank(ctx context.Context, jdText string, resumes []Candidate) ([]LegacyScore, error)
}

type legacySimilarityService struct {
	encoder EmbeddingEncoder
	index   VectorIndex
	log     *zap.Logger
}

func NewLegacySimilarityService(encoder EmbeddingEncoder, index VectorIndex, log *zap.Logger) LegacySimilarityService {
	return &legacySimilarityService{
		encoder: encoder,
		index:   index,
		log:     log,
	}
}

// Rank embeds normalized texts and orders resumes by cosine similarity to
// the job description. Ties keep upload order.
func (s *legacySimilarityService) Rank(ctx context.Context, jdText string, resumes []Candidate) ([]LegacyScore, error) {
	if strings.TrimSpace(jdText) == "" {
		return nil, missing(NeedJobDescription)
	}
	if len(resumes) == 0 {
		return nil, missing(NeedResumes)
	}

	query, err := s.encoder.Embed(ctx, scoring.Normalize(jdText))
	if err != nil {
		return nil, fmt.Errorf("failed to embed job description: %w", err)
	}

	items := make([]IndexedVector, len(resumes))
	for i, r := range resumes {
		vec, err := s.encoder.Embed(ctx, scoring.Normalize(r.Content))
		if err != nil {
			return nil, fmt.Errorf("failed to embed %s: %w", r.Filename, err)
		}
		items[i] = IndexedVector{Position: i, Filename: r.Filename, Vector: vec}
	}

	runID := uuid.NewString()
	if err := s.index.Upsert(ctx, runID, items); err != nil {
		return nil, err
	}
	defer func() {
		if err := s.index.DeleteRun(context.WithoutCancel(ctx), runID); err != nil {
			s.log.Warn("⚠️  Failed to clean up similarity run", zap.String("run_id", runID), zap.Error(err))
		}
	}()

	matches, err := s.index.Search(ctx, runID, query, len(items))
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(resumes))
	for _, m := range matches {
		if m.Position >= 0 && m.Position < len(scores) {
			scores[m.Position] = m.Score
		}
	}

	out := make([]LegacyScore, len(resumes))
	for i, r := range resumes {
		out[i] = LegacyScore{Filename: r.Filename, Score: scoring.RoundPercent(scores[i])}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out, nil
}

type memoryIndex struct {
	mu   sync.RWMutex
	runs map[string][]IndexedVector
}

// NewMemoryIndex is the in-process VectorIndex used when no Qdrant URL is
// configured.
func NewMemoryIndex() VectorIndex {
	return &memoryIndex{runs: make(map[string][]IndexedVector)}
}

func (m *memoryIndex) Init(context.Context) error { return nil }

func (m *memoryIndex) Upsert(_ context.Context, runID string, items []IndexedVector) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs[runID] = append(m.runs[runID], items...)
	return nil
}

func (m *memoryIndex) Search(_ context.Context, runID string, query []float32, limit int) ([]VectorMatch, error) {
	m.mu.RLock()
	items := m.runs[runID]
	m.mu.RUnlock()

	matches := make([]VectorMatch, len(items))
	for i, it := range items {
		matches[i] = VectorMatch{
			Position: it.Position,
			Filename: it.Filename,
			Score:    scoring.Cosine(query, it.Vector),
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (m *memoryIndex) DeleteRun(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.runs, runID)
	return nil
}

func clampUnit(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
