package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Veraticus/bucketeer/internal/cli"
)

func bucketsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buckets",
		Short: "List classification buckets",
		Long:  `Display all imported buckets in the order they are offered to the model.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			buckets, err := store.GetBuckets(ctx)
			if err != nil {
				return fmt.Errorf("failed to get buckets: %w", err)
			}

			if len(buckets) == 0 {
				fmt.Fprintln(out, cli.InfoStyle.Render("No buckets found. Use 'bucketeer import buckets <file>' to add some."))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				headerStyle.Render("#"),
				headerStyle.Render("Name"),
				headerStyle.Render("Description"))
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				strings.Repeat("-", 3),
				strings.Repeat("-", 24),
				strings.Repeat("-", 50))

			for i, b := range buckets {
				desc := strings.Join(strings.Fields(b.Description), " ")
				if desc == "" {
					desc = cli.SubtleStyle.Render("(no description)")
				} else if r := []rune(desc); len(r) > 70 {
					desc = string(r[:67]) + "..."
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, b.Name, desc)
			}

			return nil
		},
	}
}
