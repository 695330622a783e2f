package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"gwi.com/toolchat/internal/config"
	"gwi.com/toolchat/internal/core"
)

type fakeCompleter struct {
	answers []string
	err     error
	reqs    []core.CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, _ string, req core.CompletionRequest) (string, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.answers) == 0 {
		return "", errors.New("no answer scripted")
	}
	a := f.answers[0]
	f.answers = f.answers[1:]
	return a, nil
}

func testConfig(key string) config.Config {
	return config.Config{
		GeminiModel:       "test-model",
		GeminiAPIKey:      key,
		MaxToolIterations: 3,
		SearchMaxResults:  3,
		WikipediaLang:     "en",
	}
}

func execute(t *testing.T, cfg config.Config, llm core.Completer, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(cfg, llm)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestAsk_OneShot(t *testing.T) {
	llm := &fakeCompleter{answers: []string{"Watch **Heat**."}}
	out, errOut, err := execute(t, testConfig("k"), llm, "", "ask", "--persona", "movies", "a", "heist", "film")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Watch **Heat**.") || !strings.Contains(out, "🎬") {
		t.Errorf("unexpected output %q", out)
	}
	if !strings.Contains(errOut, "Grabbing the popcorn and searching...") {
		t.Errorf("expected persona spinner text, got %q", errOut)
	}
	if len(llm.reqs) != 1 || llm.reqs[0].Message != "a heist film" || len(llm.reqs[0].Tools) != 2 {
		t.Errorf("unexpected request: %+v", llm.reqs)
	}
}

func TestAsk_REPLKeepsHistoryAndSurvivesErrors(t *testing.T) {
	llm := &fakeCompleter{answers: []string{"first answer", "second answer"}}
	out, errOut, err := execute(t, testConfig("k"), llm, "hello\n\nagain\nquit\nnever sent\n", "ask")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "first answer") || !strings.Contains(out, "second answer") || !strings.Contains(out, "Goodbye!") {
		t.Errorf("unexpected output %q", out)
	}
	if len(llm.reqs) != 2 || len(llm.reqs[1].History) != 2 {
		t.Fatalf("expected second request to carry the first exchange, got %+v", llm.reqs)
	}
	if strings.Contains(errOut, "An error occurred") {
		t.Errorf("unexpected error output %q", errOut)
	}

	failing := &fakeCompleter{err: errors.New("quota exceeded")}
	_, errOut, err = execute(t, testConfig("k"), failing, "hello\nagain\n", "ask")
	if err != nil {
		t.Fatalf("a failed turn should not end the session: %v", err)
	}
	if strings.Count(errOut, "An error occurred: ") != 2 {
		t.Errorf("expected both failures reported, got %q", errOut)
	}
}

func TestAsk_DefaultPersonaCanReadPages(t *testing.T) {
	llm := &fakeCompleter{answers: []string{"done"}}
	if _, _, err := execute(t, testConfig("k"), llm, "", "ask", "what", "changed?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var names []string
	for _, tool := range llm.reqs[0].Tools {
		names = append(names, tool.Name())
	}
	if strings.Join(names, ",") != "duckduckgo_search,wikipedia,web_fetch" {
		t.Errorf("unexpected tools for the ask persona: %v", names)
	}
}

func TestAsk_MissingKeyShowsOnboarding(t *testing.T) {
	llm := &fakeCompleter{}
	_, errOut, err := execute(t, testConfig(""), llm, "", "ask", "--persona", "movies", "hi")
	if !errors.Is(err, core.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if !strings.Contains(errOut, "Cinema Expert") || !strings.Contains(errOut, "GEMINI_API_KEY") {
		t.Errorf("expected onboarding text, got %q", errOut)
	}
	if len(llm.reqs) != 0 {
		t.Error("model must not be called without a key")
	}
}

func TestAsk_UnknownPersona(t *testing.T) {
	_, _, err := execute(t, testConfig("k"), &fakeCompleter{}, "", "ask", "--persona", "poetry", "hi")
	if !errors.Is(err, core.ErrUnknownApp) {
		t.Errorf("expected ErrUnknownApp, got %v", err)
	}
}

func TestReframe(t *testing.T) {
	llm := &fakeCompleter{answers: []string{"```json\n" + `{"summary": "You worry the demo will crash.",
 "distortion": {"name": "Catastrophizing", "emoji": "🌪️", "description": "Jumping to the worst case."},
 "probability": {"estimate": 5, "severity": "Very Unlikely", "comparison": "Like finding a four-leaf clover."},
 "reframe": {"rational": "The demo ran fine twice today.", "action": "Keep a backup recording."},
 "confidence_boost": {"message": "You know this code.", "mantra": "Ready and rehearsed."},
 "diagnosis": "Pre-demo jitters"}` + "\n```"}}

	out, _, err := execute(t, testConfig("k"), llm, "", "reframe", "the", "demo", "will", "crash")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Catastrophizing", "5% (Very Unlikely)", "Keep a backup recording.", `"Ready and rehearsed."`, "Diagnosis: Pre-demo jitters"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output %q", want, out)
		}
	}
	if llm.reqs[0].ResponseMIMEType != "application/json" || llm.reqs[0].Message != "the demo will crash" {
		t.Errorf("unexpected request: %+v", llm.reqs[0])
	}

	llm = &fakeCompleter{answers: []string{"no json here"}}
	if _, _, err := execute(t, testConfig("k"), llm, "", "reframe", "worry"); !errors.Is(err, core.ErrMalformedAnalysis) {
		t.Errorf("expected ErrMalformedAnalysis, got %v", err)
	}

	if _, errOut, err := execute(t, testConfig(""), llm, "", "reframe", "worry"); !errors.Is(err, core.ErrMissingAPIKey) || !strings.Contains(errOut, "Names the pattern") {
		t.Errorf("expected onboarding without a key, got %v / %q", err, errOut)
	}
}

func TestPersonas(t *testing.T) {
	out, _, err := execute(t, testConfig(""), &fakeCompleter{}, "", "personas")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"ask", "movies", "AI Movie Recommender", "duckduckgo_search, wikipedia", "overthinking"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output %q", want, out)
		}
	}
}
