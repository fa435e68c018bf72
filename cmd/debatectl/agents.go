package main

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/deliberatorium/pkg/models"
)

func newAgentsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the agents new debates are created with",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cl, err := opts.newClient()
			if err != nil {
				return err
			}
			agents, err := cl.Agents(cmd.Context())
			if err != nil {
				return err
			}
			writeAgentsTable(cmd.OutOrStdout(), agents)
			return nil
		},
	}
}

func writeAgentsTable(w io.Writer, agents []models.Agent) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateHeader = true
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 3, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 4, Align: text.AlignLeft, AlignHeader: text.AlignCenter, WidthMax: 60},
	})

	tw.AppendHeader(table.Row{"#", "Name", "Role", "Stance"})
	for i, a := range agents {
		tw.AppendRow(table.Row{i + 1, a.Name, a.Role, a.Bias})
	}
	if len(agents) == 0 {
		tw.AppendRow(table.Row{"-", "(no agents)", "-", "-"})
	}
	tw.Render()
}
