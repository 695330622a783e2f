package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gwi.com/toolchat/internal/config"
	"gwi.com/toolchat/internal/core"
	"gwi.com/toolchat/internal/store"
)

func newReframeCmd(cfg config.Config, llm core.Completer) *cobra.Command {
	return &cobra.Command{
		Use:   "reframe <thought...>",
		Short: "Analyze a worry and suggest a calmer way to see it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.GeminiAPIKey == "" {
				return missingKey(cmd, core.ReframeOnboarding)
			}

			db := store.NewMemoryStore()
			defer db.Close()

			fmt.Fprintln(cmd.ErrOrStderr(), "  ↳ Untangling your thoughts...")
			svc := core.NewReframeService(db, llm)
			a, err := svc.Analyze(commandContext(cmd), uuid.NewString(), cfg.GeminiAPIKey, strings.Join(args, " "))
			if err != nil {
				return err
			}
			printAnalysis(cmd.OutOrStdout(), a.Result)
			return nil
		},
	}
}

func printAnalysis(w io.Writer, r store.AnalysisResult) {
	fmt.Fprintf(w, "\n%s\n\n", r.Summary)
	fmt.Fprintf(w, "%s %s\n   %s\n\n", r.Distortion.Emoji, r.Distortion.Name, r.Distortion.Description)
	fmt.Fprintf(w, "Reality check: %s (%s)\n   %s\n\n", r.Probability.Estimate, r.Probability.Severity, r.Probability.Comparison)
	fmt.Fprintf(w, "A better way to see it:\n   %s\n   Next step: %s\n\n", r.Reframe.Rational, r.Reframe.Action)
	fmt.Fprintf(w, "Confidence boost:\n   %s\n   \"%s\"\n\n", r.ConfidenceBoost.Message, r.ConfidenceBoost.Mantra)
	fmt.Fprintf(w, "Diagnosis: %s\n", r.Diagnosis)
}
