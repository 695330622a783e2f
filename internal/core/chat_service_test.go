package core

import (
	"context"
	"errors"
	"testing"

	"gwi.com/toolchat/internal/config"
	"gwi.com/toolchat/internal/store"
	"gwi.com/toolchat/internal/tools"
)

type fakeCompleter struct {
	answer string
	err    error

	calls   int
	lastKey string
	lastReq CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, apiKey string, req CompletionRequest) (string, error) {
	f.calls++
	f.lastKey = apiKey
	f.lastReq = req
	return f.answer, f.err
}

func testPersonas() []config.Persona {
	return []config.Persona{
		{ID: "ask", SystemPrompt: "You are a research assistant.", Tools: []string{"duckduckgo_search", "wikipedia"}},
		{ID: "movies", SystemPrompt: "You are a Cinema Expert.", Tools: []string{"wikipedia"}},
	}
}

func newTestChatService(t *testing.T, llm Completer) (*ChatService, store.Store) {
	t.Helper()
	db := store.NewMemoryStore()
	set := tools.NewSet(&fakeTool{name: "duckduckgo_search"}, &fakeTool{name: "wikipedia"})
	svc, err := NewChatService(db, llm, testPersonas(), set)
	if err != nil {
		t.Fatalf("new chat service: %v", err)
	}
	return svc, db
}

func TestChatService_PostMessage(t *testing.T) {
	llm := &fakeCompleter{answer: "Try *Heat*."}
	svc, _ := newTestChatService(t, llm)
	ctx := context.Background()

	turn, err := svc.PostMessage(ctx, "s1", "key-1", "movies", "  a heist film?  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.Role != store.RoleAssistant || turn.Content != "Try *Heat*." {
		t.Errorf("unexpected turn: %+v", turn)
	}
	if llm.lastKey != "key-1" || llm.lastReq.SystemPrompt != "You are a Cinema Expert." || llm.lastReq.Message != "a heist film?" {
		t.Errorf("unexpected request: key=%q req=%+v", llm.lastKey, llm.lastReq)
	}
	if len(llm.lastReq.Tools) != 1 || llm.lastReq.Tools[0].Name() != "wikipedia" {
		t.Errorf("persona tools not applied: %v", llm.lastReq.Tools)
	}
	if len(llm.lastReq.History) != 0 {
		t.Errorf("expected empty history on first turn, got %d", len(llm.lastReq.History))
	}

	llm.answer = "Also *Ronin*."
	if _, err := svc.PostMessage(ctx, "s1", "key-1", "movies", "more?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(llm.lastReq.History) != 2 || llm.lastReq.History[0].Content != "a heist film?" {
		t.Errorf("expected prior turns in request, got %+v", llm.lastReq.History)
	}

	history, err := svc.History(ctx, "s1", "movies")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 4 || history[3].Content != "Also *Ronin*." {
		t.Errorf("unexpected history: %+v", history)
	}
	if other, _ := svc.History(ctx, "s1", "ask"); len(other) != 0 {
		t.Errorf("apps must not share history, got %d turns", len(other))
	}
}

func TestChatService_FailureLeavesHistoryUnchanged(t *testing.T) {
	llm := &fakeCompleter{answer: "first"}
	svc, _ := newTestChatService(t, llm)
	ctx := context.Background()

	if _, err := svc.PostMessage(ctx, "s1", "k", "ask", "one"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	llm.err = errors.New("429 quota exceeded")
	if _, err := svc.PostMessage(ctx, "s1", "k", "ask", "two"); err == nil {
		t.Fatal("expected error")
	}

	history, _ := svc.History(ctx, "s1", "ask")
	if len(history) != 2 {
		t.Errorf("failed turn must not be recorded, got %d turns", len(history))
	}
}

func TestChatService_Rejections(t *testing.T) {
	llm := &fakeCompleter{answer: "x"}
	svc, _ := newTestChatService(t, llm)
	ctx := context.Background()

	if _, err := svc.PostMessage(ctx, "s1", "k", "poetry", "hi"); !errors.Is(err, ErrUnknownApp) {
		t.Errorf("expected ErrUnknownApp, got %v", err)
	}
	if _, err := svc.PostMessage(ctx, "s1", "k", "ask", "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
	if _, err := svc.PostMessage(ctx, "s1", "", "ask", "hi"); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
	if llm.calls != 0 {
		t.Errorf("model must not be called for rejected input, got %d calls", llm.calls)
	}
	if _, err := svc.Persona("poetry"); !errors.Is(err, ErrUnknownApp) {
		t.Errorf("expected ErrUnknownApp, got %v", err)
	}
}

func TestChatService_Reset(t *testing.T) {
	svc, _ := newTestChatService(t, &fakeCompleter{answer: "x"})
	ctx := context.Background()

	_, _ = svc.PostMessage(ctx, "s1", "k", "ask", "one")
	_, _ = svc.PostMessage(ctx, "s1", "k", "movies", "two")

	if err := svc.Reset(ctx, "s1", "ask"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if h, _ := svc.History(ctx, "s1", "ask"); len(h) != 0 {
		t.Errorf("expected ask cleared, got %d", len(h))
	}
	if h, _ := svc.History(ctx, "s1", "movies"); len(h) != 2 {
		t.Errorf("expected movies kept, got %d", len(h))
	}
}

func TestNewChatService_UnknownTool(t *testing.T) {
	personas := []config.Persona{{ID: "x", SystemPrompt: "p", Tools: []string{"calculator"}}}
	if _, err := NewChatService(store.NewMemoryStore(), &fakeCompleter{}, personas, tools.NewSet()); err == nil {
		t.Error("expected error for unknown tool")
	}
}

func TestNewChatService_ReservedID(t *testing.T) {
	personas := []config.Persona{{ID: store.AnalysisApp, SystemPrompt: "p"}}
	if _, err := NewChatService(store.NewMemoryStore(), &fakeCompleter{}, personas, tools.NewSet()); err == nil {
		t.Errorf("expected persona id %q rejected", store.AnalysisApp)
	}
}
