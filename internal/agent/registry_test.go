package agent

import (
	"context"
	"errors"
	"sort"
	"testing"

	"agentd/internal/memory"
)

func noopAgent(ctx context.Context, params map[string]any, mem memory.Handle) (map[string]any, error) {
	return map[string]any{"ok": true}, nil
}

func TestRegisterAndResolve(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register("noop", noopAgent); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	fn, err := reg.Resolve("noop")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	payload, err := fn(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("agent returned error: %v", err)
	}
	if payload["ok"] != true {
		t.Errorf("unexpected payload: %v", payload)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register("noop", noopAgent); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	err := reg.Register("noop", noopAgent)
	if !errors.Is(err, ErrDuplicateAgent) {
		t.Errorf("expected ErrDuplicateAgent, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register("", noopAgent); err == nil {
		t.Error("expected error for empty name")
	}
	if err := reg.Register("nilfn", nil); err == nil {
		t.Error("expected error for nil function")
	}
}

func TestResolveUnknown(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Resolve("missing")
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestResolveIsCaseSensitive(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register("Echo", noopAgent); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := reg.Resolve("echo"); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand for lowercase lookup, got %v", err)
	}
}

func TestFreezeRejectsRegistration(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register("noop", noopAgent); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	reg.Freeze()

	err := reg.Register("late", noopAgent)
	if !errors.Is(err, ErrRegistryFrozen) {
		t.Errorf("expected ErrRegistryFrozen, got %v", err)
	}
	// Existing registrations still resolve after freezing.
	if _, err := reg.Resolve("noop"); err != nil {
		t.Errorf("Resolve after Freeze failed: %v", err)
	}
}

func TestNamesAndCount(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"b", "a", "c"} {
		if err := reg.Register(name, noopAgent); err != nil {
			t.Fatalf("Register %s failed: %v", name, err)
		}
	}

	if got := reg.Count(); got != 3 {
		t.Errorf("Count = %d, want 3", got)
	}
	names := reg.Names()
	sort.Strings(names)
	want := []string{"a", "b", "c"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names = %v, want %v", names, want)
			break
		}
	}
}
