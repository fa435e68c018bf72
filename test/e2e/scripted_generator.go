package e2e

import (
	"context"
	"fmt"
	"sync"

	"github.com/codeready-toolchain/deliberatorium/pkg/generator"
)

// ScriptedGenerator implements generator.Generator with per-agent control:
// an agent's calls can be made to fail, or its first call held until
// released.
type ScriptedGenerator struct {
	mu       sync.Mutex
	calls    map[string]int
	failures map[string]error
	gates    map[string]chan struct{}
	entered  map[string]chan struct{}
}

var _ generator.Generator = (*ScriptedGenerator)(nil)

// NewScriptedGenerator creates a generator that answers every call.
func NewScriptedGenerator() *ScriptedGenerator {
	return &ScriptedGenerator{
		calls:    make(map[string]int),
		failures: make(map[string]error),
		gates:    make(map[string]chan struct{}),
		entered:  make(map[string]chan struct{}),
	}
}

// FailFor makes every call for agent return err.
func (g *ScriptedGenerator) FailFor(agent string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[agent] = err
}

// HoldFirst blocks the first call for agent until Release. The returned
// channel is closed once that call has started.
func (g *ScriptedGenerator) HoldFirst(agent string) <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gates[agent] = make(chan struct{})
	g.entered[agent] = make(chan struct{})
	return g.entered[agent]
}

// Release lets a held call for agent finish.
func (g *ScriptedGenerator) Release(agent string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gate, ok := g.gates[agent]; ok {
		close(gate)
		delete(g.gates, agent)
	}
}

// ReleaseAll releases every held call.
func (g *ScriptedGenerator) ReleaseAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for agent, gate := range g.gates {
		close(gate)
		delete(g.gates, agent)
	}
}

// Calls returns how many times agent was asked to speak.
func (g *ScriptedGenerator) Calls(agent string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[agent]
}

// Generate implements generator.Generator.
func (g *ScriptedGenerator) Generate(ctx context.Context, req generator.Request) (string, error) {
	name := req.Agent.Name

	g.mu.Lock()
	g.calls[name]++
	n := g.calls[name]
	failure := g.failures[name]
	var gate chan struct{}
	if n == 1 {
		gate = g.gates[name]
		if entered, ok := g.entered[name]; ok {
			close(entered)
			delete(g.entered, name)
		}
	}
	g.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if failure != nil {
		return "", failure
	}
	return fmt.Sprintf("%s on %s, turn %d (%d prior messages).", name, req.Topic, n, len(req.History)), nil
}
