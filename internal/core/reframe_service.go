package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gwi.com/toolchat/internal/store"
)

const reframeSystemInstruction = `You are a warm, practical cognitive-behavioural coach who helps people stop overthinking.
The user describes a worry. Analyse it and reply with ONLY a JSON object, no prose, with exactly these keys:
{
  "summary": "one sentence restating the worry",
  "distortion": {"name": "the main cognitive distortion", "emoji": "one emoji", "description": "how it shows up in this worry"},
  "probability": {"estimate": "a realistic percentage such as \"5%\"", "severity": "one of: Very Unlikely, Unlikely, Possible, Likely, Very Likely", "comparison": "a relatable everyday event with a similar likelihood"},
  "reframe": {"rational": "a balanced, rational way to see the situation", "action": "one small concrete next step"},
  "confidence_boost": {"message": "an encouraging message", "mantra": "a short mantra of at most eight words"},
  "diagnosis": "a short, kind label for this thinking pattern"
}`

// ReframeOnboarding is shown instead of the tool until a key is set.
const ReframeOnboarding = `This tool helps you step out of a spiral of worry.

**What it does:**
* **Names the pattern:** Spots the cognitive distortion behind the thought.
* **Reality check:** Estimates how likely the feared outcome really is.
* **Reframe:** Offers a balanced view, one small next step and a mantra to keep.

**To get started:**

Please enter your **Google API Key** in the sidebar.`

// Severity labels, lowest to highest.
var SeverityLabels = []string{"Very Unlikely", "Unlikely", "Possible", "Likely", "Very Likely"}

const NeutralSeverityColor = "#9e9e9e"

var severityColors = map[string]string{
	"very unlikely": "#2e7d32",
	"unlikely":      "#7cb342",
	"possible":      "#f9a825",
	"likely":        "#ef6c00",
	"very likely":   "#c62828",
}

// SeverityColor maps a severity label to its colour; unknown labels are grey.
func SeverityColor(label string) string {
	if c, ok := severityColors[strings.ToLower(strings.TrimSpace(label))]; ok {
		return c
	}
	return NeutralSeverityColor
}

var analysisKeys = []string{"summary", "distortion", "probability", "reframe", "confidence_boost", "diagnosis"}

// analysisSections must be non-empty JSON objects.
var analysisSections = []string{"distortion", "probability", "reframe", "confidence_boost"}

// ParseAnalysis decodes the model's JSON answer, tolerating a surrounding
// markdown code fence. Every top-level key must be present.
func ParseAnalysis(raw string) (store.AnalysisResult, error) {
	body := stripCodeFence(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return store.AnalysisResult{}, fmt.Errorf("%w: %v", ErrMalformedAnalysis, err)
	}
	var missing []string
	for _, key := range analysisKeys {
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return store.AnalysisResult{}, fmt.Errorf("%w: missing %s", ErrMalformedAnalysis, strings.Join(missing, ", "))
	}
	for _, key := range analysisSections {
		var section map[string]json.RawMessage
		if err := json.Unmarshal(fields[key], &section); err != nil || len(section) == 0 {
			return store.AnalysisResult{}, fmt.Errorf("%w: %s must be a non-empty object", ErrMalformedAnalysis, key)
		}
	}

	var result store.AnalysisResult
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return store.AnalysisResult{}, fmt.Errorf("%w: %v", ErrMalformedAnalysis, err)
	}
	return result, nil
}

// stripCodeFence removes a markdown fence around the answer. A fence only
// counts when it opens before the JSON does, so backticks inside string
// values are left alone.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	if jsonStart := strings.IndexAny(s, "{["); jsonStart >= 0 && jsonStart < start {
		return s
	}
	s = s[start+3:]
	// Drop a language tag such as "json" on the opening fence line.
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// ReframeService is the overthinking app: structured analyses instead of chat.
type ReframeService struct {
	dbStore store.Store
	llm     Completer
}

func NewReframeService(db store.Store, llm Completer) *ReframeService {
	return &ReframeService{dbStore: db, llm: llm}
}

// Analyze asks the model to reframe thought and records the result.
func (s *ReframeService) Analyze(ctx context.Context, sessionID, apiKey, thought string) (*store.Analysis, error) {
	thought = strings.TrimSpace(thought)
	if thought == "" {
		return nil, ErrEmptyMessage
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	raw, err := s.llm.Complete(ctx, apiKey, CompletionRequest{
		SystemPrompt:     reframeSystemInstruction,
		Message:          thought,
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get model analysis: %w", err)
	}

	result, err := ParseAnalysis(raw)
	if err != nil {
		return nil, err
	}

	analysis := &store.Analysis{Input: thought, Result: result}
	if err := s.dbStore.AppendAnalysis(ctx, sessionID, analysis); err != nil {
		return nil, fmt.Errorf("failed to store analysis: %w", err)
	}
	return analysis, nil
}

// History returns the session's analyses, newest first.
func (s *ReframeService) History(ctx context.Context, sessionID string) ([]store.Analysis, error) {
	analyses, err := s.dbStore.Analyses(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(analyses)-1; i < j; i, j = i+1, j-1 {
		analyses[i], analyses[j] = analyses[j], analyses[i]
	}
	return analyses, nil
}

func (s *ReframeService) Reset(ctx context.Context, sessionID string) error {
	return s.dbStore.Reset(ctx, sessionID, store.AnalysisApp)
}
