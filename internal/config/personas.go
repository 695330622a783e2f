package config

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed personas.yaml
var defaultPersonas []byte

var personaIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}$`)

// Persona is everything that distinguishes one chat app from another.
type Persona struct {
	ID              string   `yaml:"id"`
	Title           string   `yaml:"title"`
	Icon            string   `yaml:"icon"`
	Heading         string   `yaml:"heading"`
	SystemPrompt    string   `yaml:"system_prompt"`
	Onboarding      string   `yaml:"onboarding"`
	Placeholder     string   `yaml:"placeholder"`
	Spinner         string   `yaml:"spinner"`
	UserAvatar      string   `yaml:"user_avatar"`
	AssistantAvatar string   `yaml:"assistant_avatar"`
	Tools           []string `yaml:"tools"`
}

type personaFile struct {
	Personas []Persona `yaml:"personas"`
}

// LoadPersonas reads personas from path, or the embedded defaults when path is empty.
func LoadPersonas(path string) ([]Persona, error) {
	data := defaultPersonas
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read personas file %s: %w", path, err)
		}
		data = b
	}
	return ParsePersonas(data)
}

// ParsePersonas decodes and validates a personas document.
func ParsePersonas(data []byte) ([]Persona, error) {
	var pf personaFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse personas: %w", err)
	}
	if len(pf.Personas) == 0 {
		return nil, fmt.Errorf("no personas defined")
	}

	seen := make(map[string]bool, len(pf.Personas))
	for i := range pf.Personas {
		p := &pf.Personas[i]
		if !personaIDPattern.MatchString(p.ID) {
			return nil, fmt.Errorf("persona %d: invalid id %q", i, p.ID)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("persona %q defined twice", p.ID)
		}
		seen[p.ID] = true
		if p.SystemPrompt == "" {
			return nil, fmt.Errorf("persona %q: system_prompt is required", p.ID)
		}
		p.applyDefaults()
	}
	return pf.Personas, nil
}

func (p *Persona) applyDefaults() {
	if p.Title == "" {
		p.Title = p.ID
	}
	if p.Heading == "" {
		p.Heading = p.Title
	}
	if p.Placeholder == "" {
		p.Placeholder = "Ask me anything..."
	}
	if p.Spinner == "" {
		p.Spinner = "Thinking..."
	}
	if p.UserAvatar == "" {
		p.UserAvatar = "👤"
	}
	if p.AssistantAvatar == "" {
		p.AssistantAvatar = "🤖"
	}
}
