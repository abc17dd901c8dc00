package inference

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"alfredoptarigan/hiresense/internal/scoring"
)

// File names of an exported model directory.
const (
	ModelFile     = "model.onnx"
	TokenizerFile = "tokenizer.json"
	ConfigFile    = "config.json"
)

// Artifact is a resolved model directory.
type Artifact struct {
	Dir           string
	ModelPath     string
	TokenizerPath string
	Config        ModelConfig
}

// ModelConfig is the subset of a transformers config.json the runtime
// needs.
type ModelConfig struct {
	ModelType  string            `json:"model_type"`
	ID2Label   map[string]string `json:"id2label"`
	PadTokenID *int64            `json:"pad_token_id"`
}

// Labels returns id2label as a slice indexed by class id.
func (c ModelConfig) Labels() ([]string, error) {
	if len(c.ID2Label) == 0 {
		return nil, fmt.Errorf("config has no id2label")
	}

	ids := make([]int, 0, len(c.ID2Label))
	for k := range c.ID2Label {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("invalid label id %q: %w", k, err)
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)

	labels := make([]string, len(ids))
	for i, id := range ids {
		if id != i {
			return nil, fmt.Errorf("label ids are not contiguous: missing %d", i)
		}
		labels[i] = c.ID2Label[strconv.Itoa(id)]
	}
	return labels, nil
}

// PadID falls back to the RoBERTa pad id when the config omits it.
func (c ModelConfig) PadID() int64 {
	if c.PadTokenID != nil {
		return *c.PadTokenID
	}
	return 1
}

// NeedsTokenTypeIDs reports whether the exported graph expects segment ids.
func (c ModelConfig) NeedsTokenTypeIDs() bool {
	switch c.ModelType {
	case "bert", "electra":
		return true
	}
	return false
}

// ResolveArtifact checks that dir holds a complete export. Any problem is
// reported as scoring.ErrModelUnavailable.
func ResolveArtifact(dir string) (*Artifact, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: model directory not configured", scoring.ErrModelUnavailable)
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: model directory %q not found", scoring.ErrModelUnavailable, dir)
	}

	a := &Artifact{
		Dir:           dir,
		ModelPath:     filepath.Join(dir, ModelFile),
		TokenizerPath: filepath.Join(dir, TokenizerFile),
	}

	for _, p := range []string{a.ModelPath, a.TokenizerPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%w: %s missing in %q", scoring.ErrModelUnavailable, filepath.Base(p), dir)
		}
	}

	raw, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %s missing in %q", scoring.ErrModelUnavailable, ConfigFile, dir)
	}
	if err := json.Unmarshal(raw, &a.Config); err != nil {
		return nil, fmt.Errorf("%w: invalid %s: %v", scoring.ErrModelUnavailable, ConfigFile, err)
	}

	return a, nil
}
