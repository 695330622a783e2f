// Package tools holds the external lookups the model may call before it
// answers: a web search, a Wikipedia summary lookup and a page reader.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

const userAgent = "toolchat/1.0 (+https://gwi.com; lookup tool)"

// Param describes the single string argument a tool reads from a call.
type Param struct {
	Name        string
	Description string
}

// Tool is a lookup the model can request by name.
type Tool interface {
	Name() string
	Description() string
	Param() Param
	Run(ctx context.Context, input string) (string, error)
}

// Set is a registry of the tools available to personas.
type Set struct {
	tools map[string]Tool
}

func NewSet(tools ...Tool) *Set {
	s := &Set{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		s.tools[t.Name()] = t
	}
	return s
}

func (s *Set) Get(name string) (Tool, bool) {
	t, ok := s.tools[name]
	return t, ok
}

// Names returns the registered tool names, sorted.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select resolves a persona's tool list. Unknown names are an error.
func (s *Set) Select(names []string) ([]Tool, error) {
	selected := make([]Tool, 0, len(names))
	for _, name := range names {
		t, ok := s.tools[name]
		if !ok {
			return nil, fmt.Errorf("unknown tool %q (available: %s)", name, strings.Join(s.Names(), ", "))
		}
		selected = append(selected, t)
	}
	return selected, nil
}

// Options carries the settings shared by the HTTP-backed tools.
type Options struct {
	Timeout    time.Duration
	MaxResults int
	Lang       string
}

// NewDefaultSet builds every built-in tool with opts.
func NewDefaultSet(opts Options) *Set {
	return NewSet(
		NewDuckDuckGo(opts),
		NewWikipedia(opts),
		NewWebFetch(opts, 0),
	)
}
