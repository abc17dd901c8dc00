package main

import (
	"github.com/spf13/cobra"

	"alfredoptarigan/hiresense/internal/config"
	"alfredoptarigan/hiresense/internal/inference"
	"alfredoptarigan/hiresense/internal/logger"
)

const app = "hiresense-sanitycheck"

var (
	modelDir     string
	skillDir     string
	skillBackend string
	runtimeLib   string
	maxLength    int
	debug        bool

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "Offline checks for the HireSense scoring models",
		SilenceUsage: true,
	}
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cfg := config.Load()

	rootCmd.PersistentFlags().StringVar(&modelDir, "model-dir", cfg.Model.Dir, "relevance classifier export directory")
	rootCmd.PersistentFlags().StringVar(&skillDir, "skill-model-dir", cfg.Model.SkillDir, "skill NER export directory")
	rootCmd.PersistentFlags().StringVar(&skillBackend, "skill-backend", cfg.Model.SkillBackend, "onnx or gazetteer")
	rootCmd.PersistentFlags().StringVar(&runtimeLib, "onnxruntime-lib", cfg.Model.RuntimeLib, "path to the onnxruntime shared library")
	rootCmd.PersistentFlags().IntVar(&maxLength, "max-length", cfg.Model.MaxLength, "classifier token budget")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "verbose/debug output")
}

func loadModels() (*inference.Models, error) {
	zl, err := logger.New(false, debug)
	if err != nil {
		return nil, err
	}
	defer func() { _ = zl.Sync() }()

	models, err := inference.Load(inference.Options{
		ClassifierDir: modelDir,
		SkillDir:      skillDir,
		LibraryPath:   runtimeLib,
		MaxLength:     maxLength,
		Gazetteer:     skillBackend == config.SkillBackendGazetteer,
	}, zl)
	if err != nil {
		return nil, err
	}
	return models, nil
}
