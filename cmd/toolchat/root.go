package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gwi.com/toolchat/internal/config"
	"gwi.com/toolchat/internal/core"
	"gwi.com/toolchat/internal/store"
	"gwi.com/toolchat/internal/tools"
)

const cliHint = "Set GEMINI_API_KEY (or add it to .env) to use toolchat from the terminal."

func newRootCmd(cfg config.Config, llm core.Completer) *cobra.Command {
	root := &cobra.Command{
		Use:           "toolchat",
		Short:         "🔎 toolchat: tool-calling assistants in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newAskCmd(cfg, llm),
		newReframeCmd(cfg, llm),
		newPersonasCmd(cfg),
	)
	return root
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// missingKey prints the onboarding text and returns the error the command exits with.
func missingKey(cmd *cobra.Command, onboarding string) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s\n\n%s\n", strings.TrimSpace(onboarding), cliHint)
	return fmt.Errorf("%w: GEMINI_API_KEY is not set", core.ErrMissingAPIKey)
}

func newPersonasCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "List the chat personas and their tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			personas, err := config.LoadPersonas(cfg.PersonasPath)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, p := range personas {
				fmt.Fprintf(tw, "%s\t%s %s\t%s\n", p.ID, p.Icon, p.Title, strings.Join(p.Tools, ", "))
			}
			fmt.Fprintf(tw, "%s\t🧠 Stop Overthinking\t(structured, use `toolchat reframe`)\n", store.AnalysisApp)
			return tw.Flush()
		},
	}
}

func toolOptions(cfg config.Config) tools.Options {
	return tools.Options{
		Timeout:    cfg.ToolTimeout,
		MaxResults: cfg.SearchMaxResults,
		Lang:       cfg.WikipediaLang,
	}
}
