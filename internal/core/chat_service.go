package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"gwi.com/toolchat/internal/config"
	"gwi.com/toolchat/internal/store"
	"gwi.com/toolchat/internal/tools"
)

type chatApp struct {
	persona config.Persona
	tools   []tools.Tool
}

// ChatService runs every persona-driven chat app on the same pipeline.
type ChatService struct {
	dbStore  store.Store
	llm      Completer
	personas []config.Persona
	apps     map[string]chatApp
}

func NewChatService(db store.Store, llm Completer, personas []config.Persona, toolset *tools.Set) (*ChatService, error) {
	apps := make(map[string]chatApp, len(personas))
	for _, p := range personas {
		if p.ID == store.AnalysisApp {
			return nil, fmt.Errorf("persona id %q is reserved for the overthinking app", p.ID)
		}
		selected, err := toolset.Select(p.Tools)
		if err != nil {
			return nil, fmt.Errorf("persona %q: %w", p.ID, err)
		}
		apps[p.ID] = chatApp{persona: p, tools: selected}
	}

	return &ChatService{
		dbStore:  db,
		llm:      llm,
		personas: personas,
		apps:     apps,
	}, nil
}

// Personas lists the chat apps in configuration order.
func (s *ChatService) Personas() []config.Persona {
	return s.personas
}

func (s *ChatService) Persona(app string) (config.Persona, error) {
	a, ok := s.apps[app]
	if !ok {
		return config.Persona{}, fmt.Errorf("%w: %q", ErrUnknownApp, app)
	}
	return a.persona, nil
}

func (s *ChatService) History(ctx context.Context, sessionID, app string) ([]store.Turn, error) {
	if _, ok := s.apps[app]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownApp, app)
	}
	return s.dbStore.Turns(ctx, sessionID, app)
}

// PostMessage asks the app's persona about content. Both turns are recorded
// only when the model answered; on error the history is left as it was.
func (s *ChatService) PostMessage(ctx context.Context, sessionID, apiKey, app, content string) (*store.Turn, error) {
	a, ok := s.apps[app]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownApp, app)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	history, err := s.dbStore.Turns(ctx, sessionID, app)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	answer, err := s.llm.Complete(ctx, apiKey, CompletionRequest{
		SystemPrompt: a.persona.SystemPrompt,
		History:      history,
		Message:      content,
		Tools:        a.tools,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get model answer: %w", err)
	}

	userTurn := &store.Turn{Role: store.RoleUser, Content: content}
	modelTurn := &store.Turn{Role: store.RoleAssistant, Content: answer}
	if err := s.dbStore.AppendTurns(ctx, sessionID, app, userTurn, modelTurn); err != nil {
		return nil, fmt.Errorf("failed to store turns: %w", err)
	}
	log.Printf("Chat %s: answered turn %d", app, len(history)/2+1)
	return modelTurn, nil
}

func (s *ChatService) Reset(ctx context.Context, sessionID, app string) error {
	if _, ok := s.apps[app]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownApp, app)
	}
	return s.dbStore.Reset(ctx, sessionID, app)
}
