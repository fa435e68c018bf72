package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/deliberatorium/pkg/models"
)

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <debate-id>",
		Short: "Print the server-side transcript of a debate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := opts.newClient()
			if err != nil {
				return err
			}
			snap, err := cl.Debate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			writeSnapshot(cmd.OutOrStdout(), snap)
			return nil
		},
	}
}

func writeSnapshot(w io.Writer, snap *models.DebateSnapshot) {
	fmt.Fprintf(w, "== Debate %s: %s ==\n", snap.DebateID, snap.Topic)
	fmt.Fprintf(w, "Turn state: %s, turns taken: %d\n", snap.TurnState, snap.TurnsTaken)
	if snap.Speaking != nil {
		fmt.Fprintf(w, "Speaking: %s\n", snap.Speaking.Name)
	} else if snap.NextAgent != nil {
		fmt.Fprintf(w, "Next: %s\n", snap.NextAgent.Name)
	}
	for _, m := range snap.Messages {
		fmt.Fprintln(w, formatMessage(m))
	}
}
