package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gwi.com/toolchat/internal/config"
	"gwi.com/toolchat/internal/core"
	"gwi.com/toolchat/internal/store"
	"gwi.com/toolchat/internal/tools"
)

var exitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

func newAskCmd(cfg config.Config, llm core.Completer) *cobra.Command {
	var personaID string

	cmd := &cobra.Command{
		Use:   "ask [message...]",
		Short: "Ask a persona one question, or chat with it when no message is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			personas, err := config.LoadPersonas(cfg.PersonasPath)
			if err != nil {
				return err
			}
			db := store.NewMemoryStore()
			defer db.Close()

			chat, err := core.NewChatService(db, llm, personas, tools.NewDefaultSet(toolOptions(cfg)))
			if err != nil {
				return err
			}
			persona, err := chat.Persona(personaID)
			if err != nil {
				return err
			}
			if cfg.GeminiAPIKey == "" {
				return missingKey(cmd, persona.Onboarding)
			}

			c := &chatREPL{
				chat:    chat,
				persona: persona,
				session: uuid.NewString(),
				apiKey:  cfg.GeminiAPIKey,
				out:     cmd.OutOrStdout(),
				errOut:  cmd.ErrOrStderr(),
			}
			ctx := commandContext(cmd)
			if len(args) > 0 {
				return c.send(ctx, strings.Join(args, " "))
			}
			return c.run(ctx, cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVarP(&personaID, "persona", "p", "ask", "Persona id (see `toolchat personas`)")
	return cmd
}

type chatREPL struct {
	chat    *core.ChatService
	persona config.Persona
	session string
	apiKey  string
	out     io.Writer
	errOut  io.Writer
}

func (c *chatREPL) send(ctx context.Context, message string) error {
	fmt.Fprintf(c.errOut, "  ↳ %s\n", c.persona.Spinner)
	turn, err := c.chat.PostMessage(ctx, c.session, c.apiKey, c.persona.ID, message)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "\n%s %s\n%s\n\n", c.persona.AssistantAvatar, c.persona.Title, turn.Content)
	return nil
}

// run reads one message per line until EOF or an exit command. A failed turn
// is reported and the user may retry.
func (c *chatREPL) run(ctx context.Context, in io.Reader) error {
	fmt.Fprintf(c.out, "%s %s (type 'exit' to quit)\n\n", c.persona.Icon, c.persona.Heading)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(c.out, "%s You: ", c.persona.UserAvatar)
		if !scanner.Scan() {
			fmt.Fprintln(c.out, "\nGoodbye!")
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if exitCommands[strings.ToLower(line)] {
			fmt.Fprintln(c.out, "Goodbye!")
			return nil
		}

		if err := c.send(ctx, line); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(c.errOut, "An error occurred: %v\n", err)
		}
	}
}
