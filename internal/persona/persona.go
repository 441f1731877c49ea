package persona

import (
	"fmt"
	"strings"
)

// DefaultID is the persona every conversation falls back to when no mode has
// been selected. A registry without it is a deployment mistake, so
// NewRegistry refuses to start without one.
const DefaultID = "default"

// reservedCommands are control commands handled by the turn processor before
// persona lookup. A persona must not shadow them.
var reservedCommands = map[string]bool{
	"clear": true,
}

// Persona bundles a system prompt with its activation command and generation
// parameters. Values are immutable after registry construction and shared
// read-only across all conversations.
type Persona struct {
	ID           string  `json:"id"`
	Command      string  `json:"command"`
	DisplayName  string  `json:"display_name"`
	Description  string  `json:"description"`
	SystemPrompt string  `json:"system_prompt"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
}

// Registry is a static catalog of personas indexed by id and by activation
// command. It is built once at startup and never mutated.
type Registry struct {
	ordered   []Persona
	byID      map[string]Persona
	byCommand map[string]Persona
}

// NewRegistry validates the persona list and builds the lookup indexes.
// It fails on a missing "default" persona, duplicate ids, duplicate or
// reserved commands, and out-of-range generation parameters.
func NewRegistry(personas []Persona) (*Registry, error) {
	r := &Registry{
		byID:      make(map[string]Persona, len(personas)),
		byCommand: make(map[string]Persona, len(personas)),
	}

	for _, p := range personas {
		if p.ID == "" {
			return nil, fmt.Errorf("persona with empty id (command %q)", p.Command)
		}
		cmd := strings.ToLower(strings.TrimSpace(p.Command))
		if cmd == "" {
			return nil, fmt.Errorf("persona %q: empty command", p.ID)
		}
		if reservedCommands[cmd] {
			return nil, fmt.Errorf("persona %q: command %q is reserved", p.ID, cmd)
		}
		if _, dup := r.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate persona id %q", p.ID)
		}
		if prev, dup := r.byCommand[cmd]; dup {
			return nil, fmt.Errorf("personas %q and %q share command %q", prev.ID, p.ID, cmd)
		}
		if p.SystemPrompt == "" {
			return nil, fmt.Errorf("persona %q: empty system prompt", p.ID)
		}
		if p.Temperature < 0 || p.Temperature > 2 {
			return nil, fmt.Errorf("persona %q: temperature %v out of range [0, 2]", p.ID, p.Temperature)
		}
		if p.MaxTokens <= 0 {
			return nil, fmt.Errorf("persona %q: max tokens must be positive, got %d", p.ID, p.MaxTokens)
		}

		p.Command = cmd
		r.byID[p.ID] = p
		r.byCommand[cmd] = p
		r.ordered = append(r.ordered, p)
	}

	if _, ok := r.byID[DefaultID]; !ok {
		return nil, fmt.Errorf("no persona with id %q configured", DefaultID)
	}

	return r, nil
}

// FindByID returns the persona with the given id.
func (r *Registry) FindByID(id string) (Persona, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// FindByCommand returns the persona activated by the given command token
// (without the leading slash). Matching is case-insensitive.
func (r *Registry) FindByCommand(cmd string) (Persona, bool) {
	p, ok := r.byCommand[strings.ToLower(cmd)]
	return p, ok
}

// Default returns the fallback persona. NewRegistry guarantees it exists.
func (r *Registry) Default() Persona {
	return r.byID[DefaultID]
}

// All returns the personas in registration order.
func (r *Registry) All() []Persona {
	out := make([]Persona, len(r.ordered))
	copy(out, r.ordered)
	return out
}
