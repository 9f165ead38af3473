package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/bucketeer/internal/cli"
	"github.com/Veraticus/bucketeer/internal/config"
)

func presetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List evaluation presets from the config file",
		Long: `Presets live under "presets:" in the config file. Each one names the
input fields, the output fields with their criteria, the grammar and the
buckets to classify into.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listPresets(cmd.OutOrStdout(), viper.GetViper())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Show one preset as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showPreset(cmd.OutOrStdout(), viper.GetViper(), args[0])
		},
	})

	return cmd
}

func listPresets(w io.Writer, v *viper.Viper) error {
	names := config.PresetNames(v)
	if len(names) == 0 {
		_, err := fmt.Fprintln(w, cli.InfoStyle.Render("No presets configured. Add a \"presets:\" section to your config file."))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
		headerStyle.Render("Name"),
		headerStyle.Render("Grammar"),
		headerStyle.Render("Inputs"),
		headerStyle.Render("Outputs"))

	for _, name := range names {
		preset, err := config.LoadPreset(v, name)
		if err != nil {
			return err
		}
		grammar := preset.Grammar
		if grammar == "" {
			grammar = "score"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", name, grammar, len(preset.Inputs), len(preset.Outputs))
	}

	return tw.Flush()
}

func showPreset(w io.Writer, v *viper.Viper, name string) error {
	preset, err := config.LoadPreset(v, name)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, cli.FormatTitle(preset.Name))
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(preset); err != nil {
		return fmt.Errorf("failed to encode preset: %w", err)
	}
	return enc.Close()
}
