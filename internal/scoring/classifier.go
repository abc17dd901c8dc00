package scoring

import (
	"context"
	"fmt"
	"math"
)

// DefaultMaxLength is the token budget of the fine-tuned classifier.
const DefaultMaxLength = 512

type Label string

const (
	LabelNoFit Label = "No Fit"
	LabelFit   Label = "Fit"
)

// fitClass is the index of the "Fit" class in the model output.
const fitClass = 1

// Encoding is one tokenized (resume, job description) pair, special tokens
// included and already truncated to the model's maximum length. TypeIDs
// marks the segment of each token (0 for the resume, 1 for the job
// description); it may be empty for models that take no segment input.
type Encoding struct {
	InputIDs      []int64
	AttentionMask []int64
	TypeIDs       []int64
}

// PairEncoder tokenizes two text segments jointly.
type PairEncoder interface {
	EncodePair(first, second string) (Encoding, error)
}

// Batch is a rectangular block of padded encodings.
type Batch struct {
	InputIDs      [][]int64
	AttentionMask [][]int64
	TypeIDs       [][]int64
}

func (b Batch) Size() int { return len(b.InputIDs) }

func (b Batch) SeqLen() int {
	if len(b.InputIDs) == 0 {
		return 0
	}
	return len(b.InputIDs[0])
}

// SequenceModel returns one row of class logits per batch row.
type SequenceModel interface {
	Logits(ctx context.Context, batch Batch) ([][]float32, error)
}

type ClassifierOptions struct {
	MaxLength int
	PadID     int64
}

// Prediction is the classifier's verdict for one pair.
type Prediction struct {
	Label          Label     `json:"prediction"`
	FitProbability float64   `json:"fit_probability"`
	Probabilities  []float64 `json:"-"`
}

// Classifier scores (resume, job description) pairs with a binary
// sequence classification model. It holds no per-call state.
type Classifier struct {
	encoder PairEncoder
	model   SequenceModel
	opts    ClassifierOptions
}

func NewClassifier(encoder PairEncoder, model SequenceModel, opts ClassifierOptions) *Classifier {
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}
	return &Classifier{
		encoder: encoder,
		model:   model,
		opts:    opts,
	}
}

// PredictOne classifies a single pair, padded to the fixed maximum length.
func (c *Classifier) PredictOne(ctx context.Context, resumeText, jdText string) (Prediction, error) {
	enc, err := c.encode(resumeText, jdText)
	if err != nil {
		return Prediction{}, err
	}

	preds, err := c.run(ctx, []Encoding{enc}, c.opts.MaxLength)
	if err != nil {
		return Prediction{}, err
	}
	return preds[0], nil
}

// PredictBatch classifies every resume against the same job description in
// one model call. Rows are padded to the longest sequence in the batch;
// the attention mask keeps results equal to PredictOne per resume.
func (c *Classifier) PredictBatch(ctx context.Context, resumeTexts []string, jdText string) ([]Prediction, error) {
	if len(resumeTexts) == 0 {
		return []Prediction{}, nil
	}

	encs := make([]Encoding, 0, len(resumeTexts))
	longest := 0
	for i, text := range resumeTexts {
		enc, err := c.encode(text, jdText)
		if err != nil {
			return nil, fmt.Errorf("resume %d: %w", i, err)
		}
		if len(enc.InputIDs) > longest {
			longest = len(enc.InputIDs)
		}
		encs = append(encs, enc)
	}

	return c.run(ctx, encs, longest)
}

func (c *Classifier) encode(resumeText, jdText string) (Encoding, error) {
	enc, err := c.encoder.EncodePair(resumeText, jdText)
	if err != nil {
		return Encoding{}, fmt.Errorf("failed to tokenize pair: %w", err)
	}
	if len(enc.InputIDs) > c.opts.MaxLength {
		enc.InputIDs = enc.InputIDs[:c.opts.MaxLength]
	}
	if len(enc.AttentionMask) > len(enc.InputIDs) {
		enc.AttentionMask = enc.AttentionMask[:len(enc.InputIDs)]
	}
	if len(enc.TypeIDs) > len(enc.InputIDs) {
		enc.TypeIDs = enc.TypeIDs[:len(enc.InputIDs)]
	}
	return enc, nil
}

func (c *Classifier) run(ctx context.Context, encs []Encoding, seqLen int) ([]Prediction, error) {
	batch := PadBatch(encs, seqLen, c.opts.PadID)

	logits, err := c.model.Logits(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("failed to run classifier: %w", err)
	}
	if len(logits) != len(encs) {
		return nil, fmt.Errorf("classifier returned %d rows for %d inputs", len(logits), len(encs))
	}

	preds := make([]Prediction, len(logits))
	for i, row := range logits {
		pred, err := predictionFromLogits(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		preds[i] = pred
	}
	return preds, nil
}

// PadBatch right-pads every encoding to seqLen. Padding positions get
// padID, a zero attention mask and segment 0.
func PadBatch(encs []Encoding, seqLen int, padID int64) Batch {
	batch := Batch{
		InputIDs:      make([][]int64, len(encs)),
		AttentionMask: make([][]int64, len(encs)),
		TypeIDs:       make([][]int64, len(encs)),
	}

	for i, enc := range encs {
		ids := make([]int64, seqLen)
		mask := make([]int64, seqLen)
		n := copy(ids, enc.InputIDs)
		for j := n; j < seqLen; j++ {
			ids[j] = padID
		}

		if len(enc.AttentionMask) == 0 {
			for j := 0; j < n; j++ {
				mask[j] = 1
			}
		} else {
			copy(mask[:n], enc.AttentionMask)
		}

		types := make([]int64, seqLen)
		copy(types[:n], enc.TypeIDs)

		batch.InputIDs[i] = ids
		batch.AttentionMask[i] = mask
		batch.TypeIDs[i] = types
	}
	return batch
}

func predictionFromLogits(logits []float32) (Prediction, error) {
	if len(logits) <= fitClass {
		return Prediction{}, fmt.Errorf("expected at least %d logits, got %d", fitClass+1, len(logits))
	}

	probs := Softmax(logits)
	best := 0
	for i := range probs {
		if probs[i] > probs[best] {
			best = i
		}
	}

	label := LabelNoFit
	if best == fitClass {
		label = LabelFit
	}

	return Prediction{
		Label:          label,
		FitProbability: probs[fitClass],
		Probabilities:  probs,
	}, nil
}

// Softmax converts logits into a probability distribution.
func Softmax(logits []float32) []float64 {
	probs := make([]float64, len(logits))
	if len(logits) == 0 {
		return probs
	}

	maxLogit := math.Inf(-1)
	for _, l := range logits {
		maxLogit = math.Max(maxLogit, float64(l))
	}

	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(float64(l) - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
