package cmd

import (
	"fmt"

	"github.com/abhisek/tierwise/internal/thresholds"
	"github.com/spf13/cobra"
)

var thresholdsCmd = &cobra.Command{
	Use:   "thresholds",
	Short: "Inspect and validate threshold tables",
}

var thresholdsValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a threshold file without loading it into a server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := thresholds.Load(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: ok\n", args[0])
		fmt.Fprintf(out, "  version: %s\n", cfg.Version)
		for _, name := range cfg.BandNames() {
			b, _ := cfg.Band(name)
			fmt.Fprintf(out, "  band %-4s decoding ≥ %d, literal %d, inferential %d, analytical %d\n",
				name, b.DecodingThreshold, b.Literal.Total, b.Inferential.Total, b.Analytical.Total)
		}
		return nil
	},
}

var thresholdsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active threshold table as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		th, err := loadThresholds(cfg)
		if err != nil {
			return err
		}
		data, err := th.Marshal()
		if err != nil {
			return fmt.Errorf("encode thresholds: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	thresholdsCmd.AddCommand(thresholdsValidateCmd)
	thresholdsCmd.AddCommand(thresholdsShowCmd)
}
