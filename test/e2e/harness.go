// Package e2e provides end-to-end test infrastructure for deliberatorium:
// the real server stack in-process, driven by the real viewer stack.
package e2e

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/deliberatorium/pkg/api"
	"github.com/codeready-toolchain/deliberatorium/pkg/config"
	"github.com/codeready-toolchain/deliberatorium/pkg/debate"
	"github.com/codeready-toolchain/deliberatorium/pkg/events"
)

// TestApp boots a complete deliberatorium server for e2e testing.
type TestApp struct {
	Config      *config.Config
	Generator   *ScriptedGenerator
	ConnManager *events.ConnectionManager
	Debates     *debate.Service
	Server      *api.Server

	// Runtime
	BaseURL string // e.g. "http://127.0.0.1:54321"
	WSURL   string // e.g. "ws://127.0.0.1:54321/ws"

	t *testing.T
}

// testAppConfig holds options accumulated before creating the TestApp.
type testAppConfig struct {
	generator   *ScriptedGenerator
	turnDelay   time.Duration
	turnTimeout time.Duration
	onTimeout   config.TimeoutPolicy
	maxTurns    int
}

// TestAppOption configures the test app.
type TestAppOption func(*testAppConfig)

// WithGenerator sets a pre-scripted generator.
func WithGenerator(g *ScriptedGenerator) TestAppOption {
	return func(c *testAppConfig) { c.generator = g }
}

// WithTurnDelay sets the pause between a turn and the next-turn hint.
func WithTurnDelay(d time.Duration) TestAppOption {
	return func(c *testAppConfig) { c.turnDelay = d }
}

// WithTurnTimeout bounds each agent generation.
func WithTurnTimeout(d time.Duration) TestAppOption {
	return func(c *testAppConfig) { c.turnTimeout = d }
}

// WithTimeoutPolicy sets what happens after a failed turn.
func WithTimeoutPolicy(p config.TimeoutPolicy) TestAppOption {
	return func(c *testAppConfig) { c.onTimeout = p }
}

// WithMaxTurns caps the turns per debate.
func WithMaxTurns(n int) TestAppOption {
	return func(c *testAppConfig) { c.maxTurns = n }
}

// NewTestApp creates and starts a full server on a random local port.
// Shutdown is registered via t.Cleanup automatically.
func NewTestApp(t *testing.T, opts ...TestAppOption) *TestApp {
	t.Helper()

	tc := &testAppConfig{
		turnDelay:   20 * time.Millisecond,
		turnTimeout: 5 * time.Second,
		onTimeout:   config.TimeoutPolicySkip,
	}
	for _, opt := range opts {
		opt(tc)
	}
	if tc.generator == nil {
		tc.generator = NewScriptedGenerator()
	}

	// 1. Configuration: built-in defaults from an empty config dir.
	cfg, err := config.Initialize(context.Background(), t.TempDir())
	require.NoError(t, err)
	cfg.Turns.Delay = tc.turnDelay
	cfg.Turns.Timeout = tc.turnTimeout
	cfg.Turns.OnTimeout = tc.onTimeout
	cfg.Turns.MaxTurns = tc.maxTurns

	// 2. Event channel and debate service.
	connManager := events.NewConnectionManager(5 * time.Second)
	svc := debate.NewService(debate.NewRegistry(cfg.Turns.MaxTurns), events.NewPublisher(connManager),
		tc.generator, cfg.RosterCopy(), cfg.Turns)
	connManager.SetHandler(svc)

	// 3. HTTP server on random port.
	server := api.NewServer(cfg, svc, connManager)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		_ = server.Serve(ln)
	}()

	addr := ln.Addr().String()
	app := &TestApp{
		Config:      cfg,
		Generator:   tc.generator,
		ConnManager: connManager,
		Debates:     svc,
		Server:      server,
		BaseURL:     fmt.Sprintf("http://%s", addr),
		WSURL:       fmt.Sprintf("ws://%s/ws", addr),
		t:           t,
	}

	t.Cleanup(func() {
		tc.generator.ReleaseAll()
		svc.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	})

	return app
}
