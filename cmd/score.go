package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/abhisek/tierwise/internal/placement"
	"github.com/abhisek/tierwise/internal/report"
	"github.com/abhisek/tierwise/internal/session"
	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score [submission.json]",
	Short: "Score a submission file or a stored attempt",
	Long: "Score a finalized submission (as written by 'take --out') against the active thresholds.\n" +
		"With --attempt, rescore a stored attempt from its current grades without saving.",
	Args: cobra.MaximumNArgs(1),
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("grades", "", "JSON file mapping question id to correctness for free-text answers")
	f.Int("fluency-errors", -1, "Oral reading error count (reading submissions)")
	f.String("attempt", "", "Stored attempt id to rescore")
	f.Bool("json", false, "Print the result as JSON")
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	th, err := loadThresholds(cfg)
	if err != nil {
		return err
	}
	engine := placement.New(placement.Static(th), placement.WithLogger(logger))

	attemptID, _ := cmd.Flags().GetString("attempt")
	gradesPath, _ := cmd.Flags().GetString("grades")
	fluency, _ := cmd.Flags().GetInt("fluency-errors")

	var (
		sub     *session.Submission
		grades  map[string]bool
		reading *placement.ReadingInput
	)
	switch {
	case attemptID != "":
		ctx := context.Background()
		s, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.Close()
		a, err := s.Attempts().Get(ctx, attemptID)
		if err != nil {
			return fmt.Errorf("load attempt %s: %w", attemptID, err)
		}
		if grades, err = s.Grades().ForAttempt(ctx, attemptID); err != nil {
			return fmt.Errorf("load grades: %w", err)
		}
		sub = a.Submission
		if !a.FluencyPending {
			reading = a.Reading
		}
	case len(args) == 1:
		sub = new(session.Submission)
		if err := readJSON(args[0], sub); err != nil {
			return err
		}
	default:
		return fmt.Errorf("give a submission file or --attempt")
	}

	if gradesPath != "" {
		if err := readJSON(gradesPath, &grades); err != nil {
			return err
		}
	}
	if fluency >= 0 {
		reading = &placement.ReadingInput{GradeBand: sub.GradeBand, ErrorCount: fluency}
	}
	if reading == nil && sub.GradeBand != "" {
		return fmt.Errorf("submission has grade band %q: --fluency-errors is required", sub.GradeBand)
	}

	in := placement.Input(sub, grades)
	var res *placement.Result
	if reading != nil {
		res, err = engine.ScoreReading(in, *reading)
	} else {
		res, err = engine.Score(in)
	}
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	return report.Fprint(cmd.OutOrStdout(), report.Placement(res))
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
