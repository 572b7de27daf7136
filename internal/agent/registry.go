// Package agent defines the command/result model and the static registry
// mapping command names to agent functions.
package agent

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

var (
	// ErrDuplicateAgent is returned when a name is registered twice.
	ErrDuplicateAgent = errors.New("agent already registered")
	// ErrUnknownCommand is returned when no agent matches the command name.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrRegistryFrozen is returned for registrations after startup.
	ErrRegistryFrozen = errors.New("registry frozen")
)

// Registry maps command names to agent functions. Registration happens once
// at process initialization; Freeze ends the registration phase, after which
// the registry is read-only and lookups cannot race registrations.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Func
	frozen bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		agents: make(map[string]Func),
	}
}

// Register adds an agent under a unique, case-sensitive name.
func (r *Registry) Register(name string, fn Func) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: cannot register %q", ErrRegistryFrozen, name)
	}
	if name == "" {
		return errors.New("agent name must not be empty")
	}
	if fn == nil {
		return fmt.Errorf("agent %q: function must not be nil", name)
	}
	if _, exists := r.agents[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAgent, name)
	}

	r.agents[name] = fn
	log.Printf("[Registry] Registered agent: %s", name)
	return nil
}

// Freeze marks the end of the registration phase.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
	log.Printf("[Registry] Frozen with %d agents", len(r.agents))
}

// Resolve returns the agent registered under name.
func (r *Registry) Resolve(name string) (Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, exists := r.agents[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return fn, nil
}

// Names returns the registered command names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
