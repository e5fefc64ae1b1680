package cmd

import (
	"fmt"

	"github.com/abhisek/tierwise/internal/diagnosis"
	"github.com/abhisek/tierwise/internal/placement"
	"github.com/abhisek/tierwise/internal/report"
	"github.com/spf13/cobra"
)

var readingCmd = &cobra.Command{
	Use:     "reading",
	Short:   "Tier externally counted reading results",
	Example: "  tierwise reading --band 3-4 --errors 5 --literal 3/3 --inferential 1/3 --analytical 0/2",
	Args:    cobra.NoArgs,
	RunE:    runReading,
}

func init() {
	f := readingCmd.Flags()
	f.String("band", "", "Grade band, e.g. 3-4 (required)")
	f.Int("errors", 0, "Oral reading error count")
	f.String("literal", "0/0", "Literal questions correct/total")
	f.String("inferential", "0/0", "Inferential questions correct/total")
	f.String("analytical", "0/0", "Analytical questions correct/total")
	f.Bool("json", false, "Print the result as JSON")
	readingCmd.MarkFlagRequired("band")
}

func runReading(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	th, err := loadThresholds(cfg)
	if err != nil {
		return err
	}

	var levels diagnosis.Levels
	for _, l := range []struct {
		flag string
		dst  *diagnosis.LevelResult
	}{
		{"literal", &levels.Literal},
		{"inferential", &levels.Inferential},
		{"analytical", &levels.Analytical},
	} {
		v, _ := cmd.Flags().GetString(l.flag)
		if _, err := fmt.Sscanf(v, "%d/%d", &l.dst.Correct, &l.dst.Total); err != nil {
			return fmt.Errorf("--%s=%q: want correct/total", l.flag, v)
		}
	}

	band, _ := cmd.Flags().GetString("band")
	errs, _ := cmd.Flags().GetInt("errors")
	if errs < 0 {
		return fmt.Errorf("--errors must not be negative")
	}

	engine := placement.New(placement.Static(th), placement.WithLogger(logger))
	res, err := engine.Reading(placement.ReadingInput{GradeBand: band, ErrorCount: errs}, levels)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	return report.Fprint(cmd.OutOrStdout(), report.Reading(res))
}
