package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/sync/errgroup"
	"gwi.com/toolchat/internal/tools"
)

const (
	iterationLimitAnswer = "Agent stopped due to iteration limit or time limit."
	emptyResponseAnswer  = "I'm sorry, I couldn't generate a response at this time. Please try again."
	nonTextAnswer        = "I received an empty or non-text response, please try rephrasing your question."
)

// messageSender is the part of *genai.ChatSession the agent loop needs.
type messageSender interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// toolRunner executes the function calls of one model turn.
type toolRunner struct {
	tools map[string]tools.Tool
	names []string
	debug bool
}

func newToolRunner(list []tools.Tool, debug bool) toolRunner {
	r := toolRunner{tools: make(map[string]tools.Tool, len(list)), debug: debug}
	for _, t := range list {
		r.tools[t.Name()] = t
		r.names = append(r.names, t.Name())
	}
	return r
}

// runAgent sends message and keeps answering the model's function calls
// until it replies with text or maxIterations rounds of calls have run.
func runAgent(ctx context.Context, cs messageSender, runner toolRunner, message string, maxIterations int) (string, error) {
	resp, err := cs.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}

	for iteration := 0; ; iteration++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			return responseText(resp), nil
		}
		if iteration >= maxIterations {
			log.Printf("Agent stopped after %d tool rounds", iteration)
			return iterationLimitAnswer, nil
		}

		parts, err := runner.run(ctx, calls)
		if err != nil {
			return "", err
		}
		resp, err = cs.SendMessage(ctx, parts...)
		if err != nil {
			return "", fmt.Errorf("gemini chat SendMessage (tool results) failed: %w", err)
		}
	}
}

// run executes calls concurrently and returns one FunctionResponse per
// call, in call order. Tool failures are reported to the model, not to
// the caller; only a cancelled context aborts the turn.
func (r toolRunner) run(ctx context.Context, calls []genai.FunctionCall) ([]genai.Part, error) {
	parts := make([]genai.Part, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			parts[i] = r.call(gctx, call)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("tool calls interrupted: %w", err)
	}
	return parts, nil
}

func (r toolRunner) call(ctx context.Context, call genai.FunctionCall) genai.Part {
	t, ok := r.tools[call.Name]
	if !ok {
		return toolError(call.Name, fmt.Sprintf("%s is not a valid tool, try one of [%s].", call.Name, strings.Join(r.names, ", ")))
	}

	param := t.Param()
	input, ok := call.Args[param.Name].(string)
	if !ok {
		return toolError(call.Name, fmt.Sprintf("missing string argument %q", param.Name))
	}

	if r.debug {
		log.Printf("Tool call %s(%q)", call.Name, input)
	}
	out, err := t.Run(ctx, input)
	if err != nil {
		log.Printf("Tool %s failed: %v", call.Name, err)
		return toolError(call.Name, err.Error())
	}
	return genai.FunctionResponse{Name: call.Name, Response: map[string]any{"output": out}}
}

func toolError(name, msg string) genai.Part {
	return genai.FunctionResponse{Name: name, Response: map[string]any{"error": msg}}
}

// functionDeclarations describes tools to Gemini: one string argument each.
func functionDeclarations(list []tools.Tool) *genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(list))
	for _, t := range list {
		param := t.Param()
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					param.Name: {Type: genai.TypeString, Description: param.Description},
				},
				Required: []string{param.Name},
			},
		})
	}
	return &genai.Tool{FunctionDeclarations: decls}
}

func firstCandidateParts(resp *genai.GenerateContentResponse) []genai.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	var calls []genai.FunctionCall
	for _, part := range firstCandidateParts(resp) {
		if fc, ok := part.(genai.FunctionCall); ok {
			calls = append(calls, fc)
		}
	}
	return calls
}

func responseText(resp *genai.GenerateContentResponse) string {
	parts := firstCandidateParts(resp)
	if len(parts) == 0 {
		log.Println("Gemini response was empty or had no valid candidates/parts.")
		return emptyResponseAnswer
	}
	text := textFromParts(parts)
	if text == "" {
		log.Println("Gemini response part was not text or was empty after processing.")
		return nonTextAnswer
	}
	return text
}
