package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abhisek/tierwise/internal/assess"
	"github.com/abhisek/tierwise/internal/config"
	"github.com/abhisek/tierwise/internal/placement"
	"github.com/abhisek/tierwise/internal/question"
	"github.com/abhisek/tierwise/internal/report"
	"github.com/abhisek/tierwise/internal/session"
	"github.com/abhisek/tierwise/internal/store"
	"github.com/spf13/cobra"
)

var takeCmd = &cobra.Command{
	Use:   "take <test>",
	Short: "Take a test interactively in the terminal",
	Long: "Deliver a test from the question bank one question at a time, with live\n" +
		"reinforcement after incorrect multiple-choice answers. An empty line skips a question;\n" +
		"end of input submits.",
	Args: cobra.ExactArgs(1),
	RunE: runTake,
}

func init() {
	f := takeCmd.Flags()
	f.String("band", "", "Grade band for reading assessments, e.g. 1-2")
	f.Duration("time-limit", 0, "Time limit, e.g. 20m (overrides TIERWISE_SESSION_LIMIT)")
	f.Int("fluency-errors", -1, "Oral reading error count; asked for when omitted on a reading test")
	f.String("out", "", "Write the finalized submission as JSON to this file")
	f.Bool("save", false, "Store the attempt in the database and run automatic grading")
}

func runTake(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	th, err := loadThresholds(cfg)
	if err != nil {
		return err
	}
	b, err := loadBank(cfg)
	if err != nil {
		return err
	}

	band, _ := cmd.Flags().GetString("band")
	if band != "" {
		if _, err := th.Band(band); err != nil {
			return err
		}
	}
	limit := cfg.SessionLimit
	if d, _ := cmd.Flags().GetDuration("time-limit"); d > 0 {
		limit = d
	}

	questions, err := b.QuestionsForTest(args[0])
	if err != nil {
		return fmt.Errorf("%w: %q (available: %s)", err, args[0], strings.Join(b.TestNames(), ", "))
	}

	s := session.New(questions, session.Options{
		TestName:      args[0],
		GradeBand:     band,
		Reinforcement: b,
		MaxPerSkill:   th.Reinforcement.MaxPerSkill,
		TimeLimit:     limit,
		Logger:        logger,
	})

	in := bufio.NewScanner(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	reason := deliver(s, in, out)
	sub, err := s.Finalize(reason)
	if err != nil {
		return err
	}
	if err := report.Fprint(out, report.Summary(session.BuildSummary(s))); err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("out"); path != "" {
		data, err := json.MarshalIndent(sub, "", "  ")
		if err != nil {
			return fmt.Errorf("encode submission: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write submission: %w", err)
		}
		fmt.Fprintf(out, "Submission written to %s\n", path)
	}

	fluency, _ := cmd.Flags().GetInt("fluency-errors")
	if band != "" && fluency < 0 {
		if fluency, err = askCount(in, out, "Oral reading errors: "); err != nil {
			return err
		}
	}
	if fluency < 0 {
		fluency = 0
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		a, err := saveAttempt(cmd.Context(), cfg, logger, sub, fluency, placement.Static(th))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Attempt %s stored.\n", a.ID)
		if a.Result == nil {
			fmt.Fprintf(out, "No placement yet: %s\n", a.ScoreError)
			return nil
		}
		return report.Fprint(out, report.Placement(a.Result))
	}

	engine := placement.New(placement.Static(th), placement.WithLogger(logger))
	input := placement.Input(sub, nil)
	var res *placement.Result
	if band != "" {
		res, err = engine.ScoreReading(input, placement.ReadingInput{GradeBand: band, ErrorCount: fluency})
	} else {
		res, err = engine.Score(input)
	}
	if err != nil {
		return err
	}
	return report.Fprint(out, report.Placement(res))
}

// deliver walks the student through the live sequence and returns why it
// ended.
func deliver(s *session.Session, in *bufio.Scanner, out io.Writer) session.SubmitReason {
	for i := 0; i < s.Len(); {
		if s.Expired() {
			fmt.Fprintln(out, "Time is up.")
			return session.SubmitTimeout
		}
		q, err := s.Question(i)
		if err != nil {
			break
		}
		printQuestion(out, i, s.Len(), q, s.Remaining())

		if !in.Scan() {
			break
		}
		s.RecordAnswer(q.ID, strings.TrimSpace(in.Text()))
		step, err := s.Advance(i)
		if err != nil {
			break
		}
		if step.Advisory != "" {
			fmt.Fprintln(out, step.Advisory)
		}
		i = step.Next
	}
	if s.Expired() {
		return session.SubmitTimeout
	}
	return session.SubmitManual
}

func printQuestion(out io.Writer, i, n int, q question.Question, remaining time.Duration) {
	header := fmt.Sprintf("\nQuestion %d of %d", i+1, n)
	if q.IsAdaptive {
		header += " (extra practice)"
	}
	if remaining > 0 {
		header += fmt.Sprintf("  [%s left]", remaining.Round(time.Second))
	}
	fmt.Fprintln(out, header)
	fmt.Fprintln(out, q.Prompt)
	for _, c := range q.Choices {
		fmt.Fprintln(out, "  "+c)
	}
	fmt.Fprint(out, "> ")
}

func askCount(in *bufio.Scanner, out io.Writer, prompt string) (int, error) {
	fmt.Fprint(out, prompt)
	if !in.Scan() {
		return 0, fmt.Errorf("no value given")
	}
	n, err := strconv.Atoi(strings.TrimSpace(in.Text()))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%q is not a non-negative count", in.Text())
	}
	return n, nil
}

// saveAttempt stores sub and waits for automatic grading so the printed
// result includes LLM grades.
func saveAttempt(ctx context.Context, cfg *config.Config, logger *slog.Logger, sub *session.Submission, fluency int, source placement.ConfigSource) (*store.Attempt, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	engine := placement.New(source, placement.WithLogger(logger))
	var attempts *assess.Service
	gs, err := newGradingService(ctx, cfg, st, logger, func(ctx context.Context, id string) {
		attempts.Settled(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	attempts = assess.New(st.Attempts(), gs, engine, assess.WithLogger(logger))

	a, err := attempts.Submit(ctx, sub, &fluency)
	if err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, cfg.LLM.Timeout+5*time.Second)
	defer cancel()
	if err := gs.Shutdown(waitCtx); err != nil {
		logger.Warn("automatic grading did not finish", "error", err)
	}
	return attempts.Get(ctx, a.ID)
}
