package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"alfredoptarigan/hiresense/internal/scoring"
	"alfredoptarigan/hiresense/internal/services"
)

var scoreCmd = &cobra.Command{
	Use:   "score <resume-file> <jd-file>",
	Short: "Score one resume file against one job description file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		resume, err := readDocument(args[0])
		if err != nil {
			return err
		}
		jd, err := readDocument(args[1])
		if err != nil {
			return err
		}

		models, err := loadModels()
		if err != nil {
			return err
		}
		defer models.Close()

		pred, err := models.Classifier.PredictOne(cmd.Context(), resume, jd)
		if err != nil {
			return err
		}

		matcher := scoring.NewSkillMatcher(scoring.NewSkillExtractor(models.SkillTagger))
		skills, err := matcher.Match(cmd.Context(), jd, resume)
		if err != nil {
			return err
		}
		res := scoring.Combine(pred, skills)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Prediction:       %s\n", res.Label)
		fmt.Fprintf(out, "Fit probability:  %.4f\n", res.FitProbability)
		fmt.Fprintf(out, "Skill coverage:   %.2f\n", skills.Coverage())
		fmt.Fprintf(out, "Hybrid score:     %s\n", services.FormatPercent(scoring.RoundPercent(res.HybridFitScore)))
		fmt.Fprintf(out, "JD skills:        %s\n", strings.Join(skills.JobSkills, ", "))
		fmt.Fprintf(out, "Resume skills:    %s\n", strings.Join(skills.ResumeSkills, ", "))
		fmt.Fprintf(out, "Matched skills:   %s\n", strings.Join(skills.MatchedSkills, ", "))
		fmt.Fprintf(out, "Missing skills:   %s\n", strings.Join(skills.MissingSkills, ", "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}

func readDocument(path string) (string, error) {
	format, err := services.DetectFormat("", path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	text, err := services.NewTextExtractor().ExtractFile(path, format)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return text, nil
}
