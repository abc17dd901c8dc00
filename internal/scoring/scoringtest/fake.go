// Package scoringtest provides deterministic stand-ins for the model
// backends so scoring and orchestration can be tested without artifacts.
package scoringtest

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"

	"alfredoptarigan/hiresense/internal/scoring"
)

// Special token ids used by WordEncoder, laid out like a RoBERTa pair:
// <s> A </s></s> B </s>.
const (
	BOS int64 = 0
	PAD int64 = 1
	EOS int64 = 2
)

// WordEncoder hashes whitespace-separated words to ids and truncates the
// pair to MaxLength, trimming the longer segment first. The second segment
// gets type id 1.
type WordEncoder struct {
	MaxLength int
}

func (e WordEncoder) EncodePair(first, second string) (scoring.Encoding, error) {
	a, b := wordIDs(first), wordIDs(second)

	budget := e.MaxLength - 4
	if budget < 0 {
		budget = 0
	}
	for len(a)+len(b) > budget {
		if len(a) >= len(b) {
			a = a[:len(a)-1]
		} else {
			b = b[:len(b)-1]
		}
	}

	ids := make([]int64, 0, len(a)+len(b)+4)
	ids = append(ids, BOS)
	ids = append(ids, a...)
	ids = append(ids, EOS, EOS)
	ids = append(ids, b...)
	ids = append(ids, EOS)

	mask := make([]int64, len(ids))
	types := make([]int64, len(ids))
	for i := range mask {
		mask[i] = 1
		if i >= len(a)+2 {
			types[i] = 1
		}
	}
	return scoring.Encoding{InputIDs: ids, AttentionMask: mask, TypeIDs: types}, nil
}

func wordIDs(text string) []int64 {
	words := strings.Fields(strings.ToLower(text))
	ids := make([]int64, len(words))
	for i, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		ids[i] = int64(h.Sum32()%30000) + 10
	}
	return ids
}

// KeywordModel scores a row by how many of its attended ids belong to the
// keyword set. Padding never changes the output.
type KeywordModel struct {
	Keywords []string
	Err      error

	mu        sync.Mutex
	SeqLens   []int
	Calls     int
	LastBatch scoring.Batch
}

func (m *KeywordModel) Logits(ctx context.Context, batch scoring.Batch) ([][]float32, error) {
	m.mu.Lock()
	m.Calls++
	m.SeqLens = append(m.SeqLens, batch.SeqLen())
	m.LastBatch = batch
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if batch.Size() == 0 {
		return nil, scoring.ErrEmptyBatch
	}

	keys := make(map[int64]struct{})
	for _, id := range wordIDs(strings.Join(m.Keywords, " ")) {
		keys[id] = struct{}{}
	}

	out := make([][]float32, batch.Size())
	for i, row := range batch.InputIDs {
		var hits, tokens float32
		for j, id := range row {
			if batch.AttentionMask[i][j] == 0 {
				continue
			}
			tokens++
			if _, ok := keys[id]; ok {
				hits++
			}
		}
		out[i] = []float32{1 - hits, hits - 1 + tokens/1000}
	}
	return out, nil
}

// FailingEncoder fails for texts containing Poison.
type FailingEncoder struct {
	scoring.PairEncoder
	Poison string
}

var ErrPoisoned = errors.New("poisoned input")

func (e FailingEncoder) EncodePair(first, second string) (scoring.Encoding, error) {
	if e.Poison != "" && strings.Contains(first, e.Poison) {
		return scoring.Encoding{}, ErrPoisoned
	}
	return e.PairEncoder.EncodePair(first, second)
}

// NewClassifier wires WordEncoder and model into a scoring.Classifier.
func NewClassifier(model scoring.SequenceModel) *scoring.Classifier {
	return scoring.NewClassifier(WordEncoder{MaxLength: scoring.DefaultMaxLength}, model, scoring.ClassifierOptions{
		MaxLength: scoring.DefaultMaxLength,
		PadID:     PAD,
	})
}
