package core

import (
	"context"
	"fmt"
	"log"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"gwi.com/toolchat/internal/store"
	"gwi.com/toolchat/internal/tools"
)

// CompletionRequest is one user message plus everything the model needs to answer it.
type CompletionRequest struct {
	SystemPrompt string
	History      []store.Turn
	Message      string
	Tools        []tools.Tool
	// ResponseMIMEType asks for structured output, e.g. "application/json".
	ResponseMIMEType string
}

// Completer returns the model's final answer for a request. The API key
// belongs to the caller's session.
type Completer interface {
	Complete(ctx context.Context, apiKey string, req CompletionRequest) (string, error)
}

// LLMService is the Gemini Completer.
type LLMService struct {
	modelName     string
	maxIterations int
	debug         bool
}

func NewLLMService(modelName string, maxIterations int, debug bool) *LLMService {
	return &LLMService{
		modelName:     modelName,
		maxIterations: maxIterations,
		debug:         debug,
	}
}

func (s *LLMService) Complete(ctx context.Context, apiKey string, req CompletionRequest) (string, error) {
	if apiKey == "" {
		return "", ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create GenAI client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Printf("Error closing GenAI client: %v", err)
		}
	}()

	model := client.GenerativeModel(s.modelName)
	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemPrompt)},
		}
	}
	if req.ResponseMIMEType != "" {
		model.GenerationConfig.ResponseMIMEType = req.ResponseMIMEType
	}
	if len(req.Tools) > 0 {
		model.Tools = []*genai.Tool{functionDeclarations(req.Tools)}
	}

	chatSession := model.StartChat()
	chatSession.History = historyContents(req.History)

	if s.debug {
		log.Printf("Gemini %s: %d prior turns, %d tools", s.modelName, len(req.History), len(req.Tools))
	}
	return runAgent(ctx, chatSession, newToolRunner(req.Tools, s.debug), req.Message, s.maxIterations)
}

// historyContents maps stored turns onto Gemini's user/model roles.
func historyContents(turns []store.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == store.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(t.Content)},
		})
	}
	return contents
}
