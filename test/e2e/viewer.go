package e2e

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/deliberatorium/pkg/channel"
	"github.com/codeready-toolchain/deliberatorium/pkg/client"
	"github.com/codeready-toolchain/deliberatorium/pkg/controller"
	"github.com/codeready-toolchain/deliberatorium/pkg/transcript"
)

// Viewer is a complete viewer stack (HTTP client, event channel and session
// controller) connected to a TestApp.
type Viewer struct {
	Controller *controller.Controller
	Channel    *channel.Channel
	Client     *client.Client

	mu     sync.Mutex
	latest transcript.State
}

// NewViewer connects a viewer to app. It is closed via t.Cleanup.
func (app *TestApp) NewViewer(t *testing.T) *Viewer {
	t.Helper()

	cl, err := client.New(app.BaseURL, 5*time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ch, err := channel.Dial(ctx, channel.Options{
		URL:               app.WSURL,
		ConnectTimeout:    2 * time.Second,
		ReconnectAttempts: 2,
		ReconnectDelay:    50 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })

	v := &Viewer{
		Controller: controller.New(cl, ch),
		Channel:    ch,
		Client:     cl,
		latest:     transcript.Initial(),
	}
	v.Controller.OnChange(func(s transcript.State) {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.latest = s
	})
	return v
}

// Start begins a session on topic and returns its debate id.
func (v *Viewer) Start(t *testing.T, topic string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	id, err := v.Controller.StartSession(ctx, topic)
	require.NoError(t, err)
	return id
}

// State returns the latest observed state.
func (v *Viewer) State() transcript.State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.latest.Clone()
}

// WaitFor polls until pred holds for the latest state.
func (v *Viewer) WaitFor(t *testing.T, desc string, pred func(transcript.State) bool) transcript.State {
	t.Helper()
	require.Eventually(t, func() bool { return pred(v.State()) }, 5*time.Second, 10*time.Millisecond,
		"timed out waiting for %s", desc)
	return v.State()
}

// Senders returns the sender name of every entry, "user" for interventions.
func Senders(s transcript.State) []string {
	out := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		if e.Sender != nil {
			out[i] = e.Sender.Name
		} else {
			out[i] = "user"
		}
	}
	return out
}
