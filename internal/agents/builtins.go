// Package agents contains the built-in agent implementations registered at
// process startup.
package agents

import (
	"agentd/internal/agent"
)

// RegisterBuiltins adds the stock agents to the registry. Called once from
// main before the registry is frozen.
func RegisterBuiltins(reg *agent.Registry) error {
	if err := reg.Register("echo", Echo); err != nil {
		return err
	}
	if err := reg.Register("recall", Recall); err != nil {
		return err
	}
	if err := reg.Register("research", Research); err != nil {
		return err
	}
	return nil
}
