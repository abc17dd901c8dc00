package inference

import (
	"context"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"alfredoptarigan/hiresense/internal/scoring"
)

// SequenceClassifier runs an exported sequence classification graph.
// The session is read-only after load and safe for concurrent Run calls.
type SequenceClassifier struct {
	session    *ort.DynamicAdvancedSession
	numLabels  int
	tokenTypes bool
}

func newSequenceClassifier(a *Artifact, numLabels int) (*SequenceClassifier, error) {
	inputs := []string{"input_ids", "attention_mask"}
	if a.Config.NeedsTokenTypeIDs() {
		inputs = append(inputs, "token_type_ids")
	}

	session, err := ort.NewDynamicAdvancedSession(a.ModelPath, inputs, []string{"logits"}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %q: %v", scoring.ErrModelUnavailable, a.ModelPath, err)
	}

	return &SequenceClassifier{
		session:    session,
		numLabels:  numLabels,
		tokenTypes: a.Config.NeedsTokenTypeIDs(),
	}, nil
}

// Logits implements scoring.SequenceModel.
func (s *SequenceClassifier) Logits(ctx context.Context, batch scoring.Batch) ([][]float32, error) {
	if batch.Size() == 0 {
		return nil, scoring.ErrEmptyBatch
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, cols := int64(batch.Size()), int64(batch.SeqLen())
	shape := ort.NewShape(rows, cols)

	ids, err := ort.NewTensor(shape, flatten(batch.InputIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to build input_ids tensor: %w", err)
	}
	defer ids.Destroy()

	mask, err := ort.NewTensor(shape, flatten(batch.AttentionMask))
	if err != nil {
		return nil, fmt.Errorf("failed to build attention_mask tensor: %w", err)
	}
	defer mask.Destroy()

	inputs := []ort.Value{ids, mask}
	if s.tokenTypes {
		types, err := ort.NewTensor(shape, batchTypeIDs(batch))
		if err != nil {
			return nil, fmt.Errorf("failed to build token_type_ids tensor: %w", err)
		}
		defer types.Destroy()
		inputs = append(inputs, types)
	}

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(rows, int64(s.numLabels)))
	if err != nil {
		return nil, fmt.Errorf("failed to allocate logits tensor: %w", err)
	}
	defer out.Destroy()

	if err := s.session.Run(inputs, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("onnxruntime run failed: %w", err)
	}

	flat := out.GetData()
	logits := make([][]float32, rows)
	for i := range logits {
		row := make([]float32, s.numLabels)
		copy(row, flat[i*s.numLabels:(i+1)*s.numLabels])
		logits[i] = row
	}
	return logits, nil
}

// batchTypeIDs flattens the segment ids, falling back to zeros when the
// batch carries none.
func batchTypeIDs(batch scoring.Batch) []int64 {
	n := batch.Size() * batch.SeqLen()
	flat := flatten(batch.TypeIDs)
	if len(flat) != n {
		return make([]int64, n)
	}
	return flat
}

func (s *SequenceClassifier) Close() error {
	return s.session.Destroy()
}
