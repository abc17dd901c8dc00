package inference

import (
	"context"
	"fmt"
	"strings"

	ort "github.com/yalue/onnxruntime_go"

	"alfredoptarigan/hiresense/internal/scoring"
)

// nerChunkRunes keeps each window comfortably under the token budget.
const nerChunkRunes = 1200

// TokenClassifier tags entities with an exported token classification
// graph using BIO labels such as "B-SKILL" / "I-SKILL" / "O".
type TokenClassifier struct {
	session    *ort.DynamicAdvancedSession
	tokenizer  *Tokenizer
	chunker    scoring.TextChunker
	labels     []string
	tokenTypes bool
}

func newTokenClassifier(a *Artifact, tok *Tokenizer, labels []string) (*TokenClassifier, error) {
	inputs := []string{"input_ids", "attention_mask"}
	if a.Config.NeedsTokenTypeIDs() {
		inputs = append(inputs, "token_type_ids")
	}

	session, err := ort.NewDynamicAdvancedSession(a.ModelPath, inputs, []string{"logits"}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %q: %v", scoring.ErrModelUnavailable, a.ModelPath, err)
	}

	return &TokenClassifier{
		session:    session,
		tokenizer:  tok,
		chunker:    scoring.NewTextChunker(),
		labels:     labels,
		tokenTypes: a.Config.NeedsTokenTypeIDs(),
	}, nil
}

// Tag implements scoring.EntityTagger.
func (t *TokenClassifier) Tag(ctx context.Context, text string) ([]scoring.Entity, error) {
	var entities []scoring.Entity
	for _, chunk := range t.chunker.ChunkText(text, nerChunkRunes, 0) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ents, err := t.tagChunk(chunk)
		if err != nil {
			return nil, err
		}
		entities = append(entities, ents...)
	}
	return entities, nil
}

func (t *TokenClassifier) tagChunk(text string) ([]scoring.Entity, error) {
	enc, spans, err := t.tokenizer.EncodeWithOffsets(text)
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize: %w", err)
	}
	if len(enc.InputIDs) == 0 {
		return nil, nil
	}

	seqLen := int64(len(enc.InputIDs))
	shape := ort.NewShape(1, seqLen)

	ids, err := ort.NewTensor(shape, enc.InputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build input_ids tensor: %w", err)
	}
	defer ids.Destroy()

	mask, err := ort.NewTensor(shape, enc.AttentionMask)
	if err != nil {
		return nil, fmt.Errorf("failed to build attention_mask tensor: %w", err)
	}
	defer mask.Destroy()

	inputs := []ort.Value{ids, mask}
	if t.tokenTypes {
		types, err := ort.NewTensor(shape, typeIDs(enc))
		if err != nil {
			return nil, fmt.Errorf("failed to build token_type_ids tensor: %w", err)
		}
		defer types.Destroy()
		inputs = append(inputs, types)
	}

	numLabels := len(t.labels)
	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, seqLen, int64(numLabels)))
	if err != nil {
		return nil, fmt.Errorf("failed to allocate logits tensor: %w", err)
	}
	defer out.Destroy()

	if err := t.session.Run(inputs, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("onnxruntime run failed: %w", err)
	}

	flat := out.GetData()
	tags := make([]string, len(enc.InputIDs))
	for i := range tags {
		tags[i] = t.labels[argmax(flat[i*numLabels:(i+1)*numLabels])]
	}

	return decodeBIO(text, tags, spans), nil
}

// decodeBIO groups consecutive B-/I- tokens of the same type into spans.
// An I- tag without an open span of its type starts a new one. Span
// offsets are byte offsets into text.
func decodeBIO(text string, tags []string, spans []TokenSpan) []scoring.Entity {
	var out []scoring.Entity
	open := ""
	start, end := 0, 0

	closeSpan := func() {
		if open == "" {
			return
		}
		if s, e := clamp(start, len(text)), clamp(end, len(text)); e > s {
			if ent := strings.TrimSpace(strings.ToValidUTF8(text[s:e], "")); ent != "" {
				out = append(out, scoring.Entity{Text: ent, Label: open})
			}
		}
		open = ""
	}

	for i, tag := range tags {
		if i >= len(spans) || spans[i].Special || spans[i].End <= spans[i].Start {
			continue
		}

		prefix, kind := splitTag(tag)
		switch {
		case kind == "":
			closeSpan()
		case prefix == "I" && kind == open:
			end = spans[i].End
		default:
			closeSpan()
			open, start, end = kind, spans[i].Start, spans[i].End
		}
	}
	closeSpan()

	return out
}

func splitTag(tag string) (prefix, kind string) {
	if tag == "" || tag == "O" {
		return "", ""
	}
	if len(tag) > 2 && tag[1] == '-' {
		return tag[:1], tag[2:]
	}
	// unprefixed labels continue a run of the same label
	return "I", tag
}

func argmax(xs []float32) int {
	best := 0
	for i := range xs {
		if xs[i] > xs[best] {
			best = i
		}
	}
	return best
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func (t *TokenClassifier) Close() error {
	return t.session.Destroy()
}
