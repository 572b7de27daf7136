// Package orchestrator is the single public dispatch entry point: it maps a
// command to its registered agent, runs it on the executor under a deadline,
// and normalizes the outcome into a tagged Result.
package orchestrator

import (
	"context"
	"errors"
	"log"
	"time"

	"agentd/internal/agent"
	"agentd/internal/executor"
	"agentd/internal/memory"
)

// TaskExecutor is what the orchestrator needs from the worker pool. The
// concrete executor satisfies it; tests substitute counting fakes through
// the constructor instead of patching internals.
type TaskExecutor interface {
	Submit(ctx context.Context, fn agent.Func, params map[string]any, mem memory.Handle, deadline time.Duration) executor.Outcome
}

// MemoryProvider hands out invocation-scoped memory handles.
type MemoryProvider interface {
	NewHandle(sessionID string) memory.Handle
}

// Options tune optional orchestrator behavior.
type Options struct {
	// Cache serves repeat commands that opt in via params["use_cache"].
	// Nil disables caching.
	Cache ResultCache
	// EventBufferSize bounds the lifecycle event channel.
	EventBufferSize int
}

// Orchestrator resolves, executes, and normalizes commands. Safe for
// concurrent use by multiple callers.
type Orchestrator struct {
	registry        *agent.Registry
	exec            TaskExecutor
	mem             MemoryProvider
	defaultDeadline time.Duration
	cache           ResultCache
	events          *eventEmitter
}

// New constructs an orchestrator. All collaborators are injected; there is
// no process-wide instance.
func New(registry *agent.Registry, exec TaskExecutor, mem MemoryProvider, defaultDeadline time.Duration, opts Options) *Orchestrator {
	bufSize := opts.EventBufferSize
	if bufSize <= 0 {
		bufSize = 100
	}
	return &Orchestrator{
		registry:        registry,
		exec:            exec,
		mem:             mem,
		defaultDeadline: defaultDeadline,
		cache:           opts.Cache,
		events:          newEventEmitter(bufSize),
	}
}

// Events returns the lifecycle event stream for observers (websocket layer).
func (o *Orchestrator) Events() <-chan Event {
	return o.events.ch
}

// DroppedEventCount reports events dropped because no observer kept up.
func (o *Orchestrator) DroppedEventCount() uint64 {
	return o.events.dropped()
}

// Names lists the registered command names.
func (o *Orchestrator) Names() []string {
	return o.registry.Names()
}

// Dispatch runs one command to a normalized Result. Nothing escapes as a
// panic or error; callers always receive a Result. No automatic retries.
func (o *Orchestrator) Dispatch(ctx context.Context, cmd agent.Command) agent.Result {
	fn, err := o.registry.Resolve(cmd.Name)
	if err != nil {
		// Unknown commands never reach the executor.
		log.Printf("[Orchestrator] Unknown command: %s", cmd.Name)
		o.events.emit(Event{Type: EventFailed, Command: cmd.Name, Detail: err.Error()})
		return agent.Failure(agent.KindUnknownCommand, err.Error())
	}

	cacheKey := ""
	if o.cache != nil && boolParam(cmd.Params, "use_cache") {
		cacheKey = CacheKey(cmd)
		if res, ok := o.cache.Get(ctx, cacheKey); ok {
			log.Printf("[Orchestrator] Cache hit for %s", cmd.Name)
			o.events.emit(Event{Type: EventCompleted, Command: cmd.Name, Cached: true})
			return *res
		}
	}

	handle := o.mem.NewHandle(sessionParam(cmd.Params))
	deadline := o.deadlineFor(cmd.Params)

	o.events.emit(Event{Type: EventDispatched, Command: cmd.Name})
	outcome := o.exec.Submit(ctx, fn, cmd.Params, handle, deadline)
	result := o.normalize(cmd.Name, outcome)

	// Best-effort flush of whatever the agent wrote (it may still be
	// writing if it timed out); never blocks the caller.
	go func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := handle.Flush(flushCtx); err != nil {
			log.Printf("[Orchestrator] WARNING: short-term flush failed for %s: %v", cmd.Name, err)
		}
	}()

	if cacheKey != "" && result.Status == agent.StatusSuccess {
		o.cache.Set(ctx, cacheKey, result)
	}

	return result
}

// normalize maps the executor's raw Outcome onto the Result taxonomy.
func (o *Orchestrator) normalize(name string, outcome executor.Outcome) agent.Result {
	switch outcome.Kind {
	case executor.OutcomeSuccess:
		o.events.emit(Event{Type: EventCompleted, Command: name})
		return agent.Success(outcome.Payload)

	case executor.OutcomeTimeout:
		log.Printf("[Orchestrator] Command %s timed out", name)
		o.events.emit(Event{Type: EventTimeout, Command: name})
		return agent.Timeout()

	case executor.OutcomeQueueFull:
		o.events.emit(Event{Type: EventFailed, Command: name, Detail: outcome.Err.Error()})
		return agent.Failure(agent.KindQueueFull, outcome.Err.Error())

	default:
		detail := "unknown agent failure"
		kind := agent.KindAgentError
		if outcome.Err != nil {
			detail = outcome.Err.Error()
			if errors.Is(outcome.Err, memory.ErrStorage) {
				kind = agent.KindMemoryError
			}
		}
		log.Printf("[Orchestrator] Command %s failed: %s", name, detail)
		o.events.emit(Event{Type: EventFailed, Command: name, Detail: detail})
		return agent.Failure(kind, detail)
	}
}

// deadlineFor resolves the per-command deadline: params may override the
// process-wide default via "deadline_seconds".
func (o *Orchestrator) deadlineFor(params map[string]any) time.Duration {
	if params != nil {
		if v, ok := params["deadline_seconds"]; ok {
			if secs, ok := v.(float64); ok && secs > 0 {
				return time.Duration(secs * float64(time.Second))
			}
		}
	}
	return o.defaultDeadline
}

func sessionParam(params map[string]any) string {
	if params != nil {
		if v, ok := params["session_id"].(string); ok && v != "" {
			return v
		}
	}
	return "default"
}

func boolParam(params map[string]any, key string) bool {
	if params == nil {
		return false
	}
	v, ok := params[key].(bool)
	return ok && v
}
