package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"alfredoptarigan/hiresense/internal/scoring"
)

type sanityCase struct {
	name     string
	jd       string
	resume   string
	expected scoring.Label
}

var sanityCases = []sanityCase{
	{
		name:     "Obvious Good Fit",
		jd:       "We are seeking a senior software engineer with strong Python and SQL skills. Experience with cloud platforms like AWS is required.",
		resume:   "Experienced Python developer with 8 years of experience. Proficient in SQL database management and certified in AWS solutions architecture.",
		expected: scoring.LabelFit,
	},
	{
		name:     "Obvious Bad Fit",
		jd:       "We are looking for an experienced Digital Marketing Manager to lead our online strategy. Must have SEO and SEM experience.",
		resume:   "Passionate Python and Java developer with experience building web applications and working with databases.",
		expected: scoring.LabelNoFit,
	},
}

var errSanityFailed = errors.New("sanity check failed")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the built-in fit / no-fit cases against the classifier",
	RunE: func(cmd *cobra.Command, _ []string) error {
		models, err := loadModels()
		if err != nil {
			return err
		}
		defer models.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "--- Running sanity check on %s ---\n", modelDir)

		allPassed := true
		for _, tc := range sanityCases {
			fmt.Fprintf(out, "\nRunning Test: %s...\n", tc.name)
			pred, err := models.Classifier.PredictOne(cmd.Context(), tc.resume, tc.jd)
			if err != nil {
				return err
			}

			if pred.Label == tc.expected {
				fmt.Fprintf(out, "  ✅ PASS: predicted '%s' (fit probability %.4f)\n", pred.Label, pred.FitProbability)
			} else {
				fmt.Fprintf(out, "  ❌ FAIL: expected '%s', got '%s' (fit probability %.4f)\n", tc.expected, pred.Label, pred.FitProbability)
				allPassed = false
			}
		}

		fmt.Fprintln(out, "\n--- Sanity Check Complete ---")
		if !allPassed {
			fmt.Fprintln(out, "❌ The model's predictions are not logical. Do not deploy it.")
			return errSanityFailed
		}
		fmt.Fprintln(out, "✅🎉 All sanity checks passed!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
