package inference

import (
	"fmt"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"

	"alfredoptarigan/hiresense/internal/scoring"
)

// Tokenizer wraps a Hugging Face tokenizer.json. Truncation is applied to
// the combined pair, longest segment first; padding is left to callers.
type Tokenizer struct {
	tk        *tokenizer.Tokenizer
	maxLength int
}

func NewTokenizer(path string, maxLength int) (*Tokenizer, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load tokenizer %q: %v", scoring.ErrModelUnavailable, path, err)
	}

	tk.WithTruncation(&tokenizer.TruncationParams{
		MaxLength: maxLength,
		Strategy:  tokenizer.LongestFirst,
		Stride:    0,
	})
	tk.WithPadding(nil)

	return &Tokenizer{tk: tk, maxLength: maxLength}, nil
}

// EncodePair implements scoring.PairEncoder.
func (t *Tokenizer) EncodePair(first, second string) (scoring.Encoding, error) {
	en, err := t.tk.EncodePair(first, second, true)
	if err != nil {
		return scoring.Encoding{}, err
	}
	return toEncoding(en.Ids, en.AttentionMask, en.TypeIds), nil
}

// TokenSpan is one token of a single-segment encoding with its byte
// offsets in the source text. Special tokens have Special set.
type TokenSpan struct {
	Start, End int
	Special    bool
}

// EncodeWithOffsets encodes one segment and keeps the offsets the token
// classifier needs to cut entity text back out of the source.
func (t *Tokenizer) EncodeWithOffsets(text string) (scoring.Encoding, []TokenSpan, error) {
	en, err := t.tk.EncodeSingle(text, true)
	if err != nil {
		return scoring.Encoding{}, nil, err
	}

	spans := make([]TokenSpan, len(en.Ids))
	for i := range spans {
		if i < len(en.Offsets) && len(en.Offsets[i]) == 2 {
			spans[i].Start, spans[i].End = en.Offsets[i][0], en.Offsets[i][1]
		}
		if i < len(en.SpecialTokenMask) && en.SpecialTokenMask[i] == 1 {
			spans[i].Special = true
		}
	}

	return toEncoding(en.Ids, en.AttentionMask, en.TypeIds), spans, nil
}

func toEncoding(ids, mask, types []int) scoring.Encoding {
	enc := scoring.Encoding{
		InputIDs:      make([]int64, len(ids)),
		AttentionMask: make([]int64, len(ids)),
		TypeIDs:       make([]int64, len(ids)),
	}
	for i, id := range ids {
		enc.InputIDs[i] = int64(id)
		enc.AttentionMask[i] = 1
		if i < len(mask) {
			enc.AttentionMask[i] = int64(mask[i])
		}
		if i < len(types) {
			enc.TypeIDs[i] = int64(types[i])
		}
	}
	return enc
}

// typeIDs returns the segment ids of enc, zeros when the tokenizer gave none.
func typeIDs(enc scoring.Encoding) []int64 {
	out := make([]int64, len(enc.InputIDs))
	copy(out, enc.TypeIDs)
	return out
}
