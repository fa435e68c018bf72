package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/deliberatorium/pkg/channel"
	"github.com/codeready-toolchain/deliberatorium/pkg/controller"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var topic string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Start a debate and follow it live",
		Long: `Start a debate on --topic and print each message as it arrives.

Lines typed on stdin are sent as interventions. Commands:
  /reset          drop the current debate locally
  /new <topic>    start another debate after a reset
  /quit           exit`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(topic) == "" {
				return errors.New("--topic is required")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, opts, topic, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&topic, "topic", "t", "", "debate topic")
	return cmd
}

func runWatch(ctx context.Context, opts *rootOptions, topic string, in io.Reader, out io.Writer) error {
	cl, err := opts.newClient()
	if err != nil {
		return err
	}
	wsURL, err := channel.WebSocketURL(opts.client.ServerURL)
	if err != nil {
		return err
	}

	ch, err := channel.Dial(ctx, channel.Options{
		URL:               wsURL,
		ConnectTimeout:    opts.client.ConnectTimeout,
		ReconnectAttempts: opts.client.ReconnectAttempts,
		ReconnectDelay:    opts.client.ReconnectDelay,
	})
	if err != nil {
		return err
	}
	defer ch.Close()

	r := newRenderer(out, isTerminal(out))
	ch.OnState(r.Connection)

	ctrl := controller.New(cl, ch)
	ctrl.OnChange(r.Render)

	if _, err := ctrl.StartSession(ctx, topic); err != nil {
		return err
	}

	lines := scanLines(ctx, in)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch.Done():
			if ch.State() == channel.StateFailed {
				return errors.New("lost connection to server")
			}
			return nil
		case line, ok := <-lines:
			if !ok {
				// stdin closed: keep following the debate until interrupted
				lines = nil
				continue
			}
			quit, err := handleLine(ctx, ctrl, r, line)
			if err != nil {
				r.Notice("error: %v", err)
			}
			if quit {
				return nil
			}
		}
	}
}

// handleLine applies one stdin line to the session.
func handleLine(ctx context.Context, ctrl *controller.Controller, r *renderer, line string) (bool, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false, nil
	case line == "/quit":
		return true, nil
	case line == "/reset":
		ctrl.Reset()
		r.Notice("debate reset; use /new <topic> to start another")
		return false, nil
	case strings.HasPrefix(line, "/new"):
		topic := strings.TrimSpace(strings.TrimPrefix(line, "/new"))
		if topic == "" {
			return false, errors.New("usage: /new <topic>")
		}
		ctrl.Reset()
		_, err := ctrl.StartSession(ctx, topic)
		return false, err
	case strings.HasPrefix(line, "/"):
		return false, fmt.Errorf("unknown command %q", line)
	default:
		ctrl.SetDraft(line)
		return false, ctrl.SendIntervention(ctx, ctrl.Draft())
	}
}

// scanLines streams lines from r until EOF or ctx is done.
func scanLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
