package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one user message or one assistant answer in a session's chat.
type Turn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"-"`
	App       string    `json:"app"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Analysis pairs a worry the user typed with the reframing the model returned.
type Analysis struct {
	ID        string         `json:"id"`
	SessionID string         `json:"-"`
	Input     string         `json:"input"`
	Result    AnalysisResult `json:"result"`
	CreatedAt time.Time      `json:"created_at"`
}

type AnalysisResult struct {
	Summary         string          `json:"summary"`
	Distortion      Distortion      `json:"distortion"`
	Probability     Probability     `json:"probability"`
	Reframe         Reframe         `json:"reframe"`
	ConfidenceBoost ConfidenceBoost `json:"confidence_boost"`
	Diagnosis       string          `json:"diagnosis"`
}

type Distortion struct {
	Name        string `json:"name"`
	Emoji       string `json:"emoji"`
	Description string `json:"description"`
}

type Probability struct {
	Estimate   string `json:"estimate"`
	Severity   string `json:"severity"`
	Comparison string `json:"comparison"`
}

// UnmarshalJSON accepts the estimate as a string ("15%") or a bare number (15).
func (p *Probability) UnmarshalJSON(data []byte) error {
	var raw struct {
		Estimate   json.RawMessage `json:"estimate"`
		Severity   string          `json:"severity"`
		Comparison string          `json:"comparison"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Severity, p.Comparison, p.Estimate = raw.Severity, raw.Comparison, ""
	if len(raw.Estimate) == 0 || string(raw.Estimate) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw.Estimate, &s); err == nil {
		p.Estimate = s
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw.Estimate, &n); err != nil {
		return fmt.Errorf("probability estimate: %w", err)
	}
	p.Estimate = strconv.FormatFloat(n, 'f', -1, 64) + "%"
	return nil
}

type Reframe struct {
	Rational string `json:"rational"`
	Action   string `json:"action"`
}

type ConfidenceBoost struct {
	Message string `json:"message"`
	Mantra  string `json:"mantra"`
}
