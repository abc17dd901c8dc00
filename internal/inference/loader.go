package inference

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"alfredoptarigan/hiresense/internal/scoring"
)

type Options struct {
	ClassifierDir string
	SkillDir      string
	LibraryPath   string
	MaxLength     int

	// Gazetteer replaces the NER export with the built-in skill dictionary.
	Gazetteer bool
}

// Models owns the ONNX sessions loaded at startup.
type Models struct {
	Classifier  *scoring.Classifier
	SkillTagger scoring.EntityTagger

	closers []func() error
}

// Load loads everything the matcher needs. On error the sessions opened
// so far are released.
func Load(opts Options, log *zap.Logger) (*Models, error) {
	m := &Models{}

	if err := m.LoadClassifier(opts, log); err != nil {
		m.Close()
		return nil, err
	}

	if opts.Gazetteer {
		m.SkillTagger = scoring.NewGazetteerTagger()
		log.Info("✅ Skill extraction uses the built-in dictionary")
		return m, nil
	}

	if err := m.LoadSkillTagger(opts, log); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

// LoadClassifier loads the relevance classifier export. Any failure wraps
// scoring.ErrModelUnavailable.
func (m *Models) LoadClassifier(opts Options, log *zap.Logger) error {
	a, err := ResolveArtifact(opts.ClassifierDir)
	if err != nil {
		return err
	}

	labels, err := a.Config.Labels()
	if err != nil {
		return fmt.Errorf("%w: %v", scoring.ErrModelUnavailable, err)
	}
	if len(labels) != 2 {
		return fmt.Errorf("%w: expected a binary classifier, got %d labels", scoring.ErrModelUnavailable, len(labels))
	}

	tok, err := NewTokenizer(a.TokenizerPath, opts.MaxLength)
	if err != nil {
		return err
	}

	if err := acquireRuntime(opts.LibraryPath); err != nil {
		return err
	}
	m.closers = append(m.closers, releaseRuntime)

	model, err := newSequenceClassifier(a, len(labels))
	if err != nil {
		return err
	}
	m.closers = append(m.closers, model.Close)

	m.Classifier = scoring.NewClassifier(tok, model, scoring.ClassifierOptions{
		MaxLength: opts.MaxLength,
		PadID:     a.Config.PadID(),
	})

	log.Info("✅ Relevance classifier loaded",
		zap.String("dir", a.Dir),
		zap.Strings("labels", labels),
		zap.Int("max_length", opts.MaxLength),
	)
	return nil
}

// LoadSkillTagger loads the skill NER export.
func (m *Models) LoadSkillTagger(opts Options, log *zap.Logger) error {
	a, err := ResolveArtifact(opts.SkillDir)
	if err != nil {
		return err
	}

	labels, err := a.Config.Labels()
	if err != nil {
		return fmt.Errorf("%w: %v", scoring.ErrModelUnavailable, err)
	}

	tok, err := NewTokenizer(a.TokenizerPath, opts.MaxLength)
	if err != nil {
		return err
	}

	if err := acquireRuntime(opts.LibraryPath); err != nil {
		return err
	}
	m.closers = append(m.closers, releaseRuntime)

	tagger, err := newTokenClassifier(a, tok, labels)
	if err != nil {
		return err
	}
	m.closers = append(m.closers, tagger.Close)
	m.SkillTagger = tagger

	log.Info("✅ Skill extraction model loaded",
		zap.String("dir", a.Dir),
		zap.Int("labels", len(labels)),
	)
	return nil
}

// Close releases sessions in reverse load order.
func (m *Models) Close() error {
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	m.closers = nil
	return errors.Join(errs...)
}
