package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/tierwise/internal/placement"
	"github.com/abhisek/tierwise/internal/question"
	"github.com/abhisek/tierwise/internal/session"
	"github.com/abhisek/tierwise/internal/tier"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSubmission(id string) *session.Submission {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &session.Submission{
		SessionID: id,
		TestName:  "fractions-check",
		Questions: []question.Question{
			{ID: "q1", Prompt: "1/2 + 1/4?", Kind: question.KindMultipleChoice, Skill: "fractions", Choices: []string{"3/4", "2/6"}, AnswerKey: "3/4"},
			{ID: "q2", Prompt: "Explain why 2/4 = 1/2.", Kind: question.KindShortAnswer, Skill: "fractions"},
		},
		Answers:     session.AnswerSet{"q1": "3/4", "q2": "same part of the whole"},
		StartedAt:   started,
		SubmittedAt: started.Add(12 * time.Minute),
		Reason:      session.SubmitManual,
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}
	for _, tt := range tests {
		var got string
		if err := s.DB().QueryRow("PRAGMA " + tt.pragma).Scan(&got); err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestSequenceMonotonic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var prev int64
	for i := 0; i < 5; i++ {
		v, err := s.seq.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if v <= prev {
			t.Fatalf("sequence not increasing: %d after %d", v, prev)
		}
		prev = v
	}
	if prev != 5 {
		t.Errorf("fifth value = %d, want 5", prev)
	}
}

func TestSequenceSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reopen.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = s.seq.Next(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	v, err := s.seq.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestAttemptSaveGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Attempts()

	a := &Attempt{ID: "att-1", Submission: testSubmission("sess-1")}
	require.NoError(t, repo.Save(ctx, a))
	assert.NotZero(t, a.Sequence)

	got, err := repo.Get(ctx, "att-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.Submission.SessionID)
	assert.Equal(t, "3/4", got.Submission.Answers["q1"])
	assert.Len(t, got.Submission.Questions, 2)
	assert.Nil(t, got.Reading)
	assert.Nil(t, got.Result)
}

func TestAttemptReadingInputRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Attempts()

	a := &Attempt{
		ID:         "att-r",
		Submission: testSubmission("sess-r"),
		Reading:    &placement.ReadingInput{GradeBand: "3-4", ErrorCount: 0},
	}
	require.NoError(t, repo.Save(ctx, a))

	got, err := repo.Get(ctx, "att-r")
	require.NoError(t, err)
	require.NotNil(t, got.Reading)
	assert.Equal(t, "3-4", got.Reading.GradeBand)
	assert.Equal(t, 0, got.Reading.ErrorCount)
}

func TestAttemptUntieredUntilResult(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Attempts()

	a := &Attempt{
		ID:         "att-u",
		Submission: testSubmission("sess-u"),
		Reading:    &placement.ReadingInput{GradeBand: "11-12", ErrorCount: 1},
		ScoreError: `unknown grade band "11-12"`,
	}
	require.NoError(t, repo.Save(ctx, a))

	got, err := repo.Get(ctx, "att-u")
	require.NoError(t, err)
	assert.Nil(t, got.Result)
	assert.Equal(t, a.ScoreError, got.ScoreError)

	untiered, err := repo.ListUntiered(ctx, 0)
	require.NoError(t, err)
	require.Len(t, untiered, 1)
	assert.Equal(t, "att-u", untiered[0].ID)

	require.NoError(t, repo.SetScoreError(ctx, "att-u", "no thresholds loaded"))
	got, err = repo.Get(ctx, "att-u")
	require.NoError(t, err)
	assert.Equal(t, "no thresholds loaded", got.ScoreError)

	require.NoError(t, repo.UpdateResult(ctx, "att-u", &placement.Result{Score: 100, Tier: tier.Tier1}))
	got, err = repo.Get(ctx, "att-u")
	require.NoError(t, err)
	require.NotNil(t, got.Result)
	assert.Empty(t, got.ScoreError)

	untiered, err = repo.ListUntiered(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, untiered)

	assert.ErrorIs(t, repo.SetScoreError(ctx, "missing", "x"), ErrNotFound)
}

func TestAttemptFluencyPending(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Attempts()

	a := &Attempt{
		ID:             "att-f",
		Submission:     testSubmission("sess-f"),
		Reading:        &placement.ReadingInput{GradeBand: "3-4"},
		FluencyPending: true,
	}
	require.NoError(t, repo.Save(ctx, a))

	got, err := repo.Get(ctx, "att-f")
	require.NoError(t, err)
	require.NotNil(t, got.Reading)
	assert.Equal(t, "3-4", got.Reading.GradeBand)
	assert.True(t, got.FluencyPending)

	require.NoError(t, repo.SetErrorCount(ctx, "att-f", 6))
	got, err = repo.Get(ctx, "att-f")
	require.NoError(t, err)
	assert.False(t, got.FluencyPending)
	assert.Equal(t, 6, got.Reading.ErrorCount)

	require.NoError(t, repo.Save(ctx, &Attempt{ID: "att-g", Submission: testSubmission("sess-g")}))
	assert.ErrorIs(t, repo.SetErrorCount(ctx, "att-g", 1), ErrNotFound, "generic attempts carry no error count")
}

func TestAttemptGetNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Attempts().Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAttemptUpdateResult(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Attempts()

	require.NoError(t, repo.Save(ctx, &Attempt{ID: "att-2", Submission: testSubmission("sess-2")}))

	pending := &placement.Result{Score: 100, Tier: tier.Tier1, CorrectCount: 1, GradedTotal: 1, Pending: []string{"q2"}, IncompleteGrading: true}
	require.NoError(t, repo.UpdateResult(ctx, "att-2", pending))

	incomplete, err := repo.ListIncomplete(ctx, 0)
	require.NoError(t, err)
	require.Len(t, incomplete, 1)
	assert.Equal(t, "att-2", incomplete[0].ID)

	final := &placement.Result{Score: 50, Tier: tier.Tier3, CorrectCount: 1, GradedTotal: 2}
	require.NoError(t, repo.UpdateResult(ctx, "att-2", final))

	got, err := repo.Get(ctx, "att-2")
	require.NoError(t, err)
	require.NotNil(t, got.Result)
	assert.Equal(t, 50, got.Result.Score)
	assert.Equal(t, tier.Tier3, got.Result.Tier)

	incomplete, err = repo.ListIncomplete(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, incomplete)
}

func TestAttemptUpdateResultNotFound(t *testing.T) {
	s := openTestStore(t)
	err := s.Attempts().UpdateResult(context.Background(), "missing", &placement.Result{Tier: tier.Tier1})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGradesManualOverridesLLM(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Grades()

	save := func(q string, correct bool, source string) {
		t.Helper()
		require.NoError(t, repo.Save(ctx, &Grade{AttemptID: "att-3", QuestionID: q, Correct: correct, Source: source}))
	}
	save("q2", true, SourceManual)
	save("q2", false, SourceLLM) // later LLM grade must not win
	save("q3", false, SourceLLM)
	save("q3", true, SourceLLM)
	save("q4", true, SourceLLM)
	save("q4", false, SourceManual)

	got, err := repo.ForAttempt(ctx, "att-3")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"q2": true, "q3": true, "q4": false}, got)

	all, err := repo.List(ctx, "att-3")
	require.NoError(t, err)
	require.Len(t, all, 6)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i].Sequence, all[i-1].Sequence)
	}
}

func TestGradeRejectsUnknownSource(t *testing.T) {
	s := openTestStore(t)
	err := s.Grades().Save(context.Background(), &Grade{AttemptID: "a", QuestionID: "q", Source: "peer"})
	assert.Error(t, err)
}

func TestLLMUsage(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Events()

	require.NoError(t, repo.AppendLLMRequest(ctx, LLMRequestEventData{
		Provider: "anthropic", Model: "claude-haiku", Purpose: "grade-answer",
		AttemptID: "att-4", InputTokens: 120, OutputTokens: 30, LatencyMs: 800, Success: true,
	}))
	require.NoError(t, repo.AppendLLMRequest(ctx, LLMRequestEventData{
		Provider: "anthropic", Model: "claude-haiku", Purpose: "grade-answer",
		AttemptID: "att-4", LatencyMs: 30000, ErrorMessage: "timeout",
	}))
	require.NoError(t, repo.AppendLLMRequest(ctx, LLMRequestEventData{
		Provider: "openai", Model: "gpt-4o-mini", Purpose: "grade-answer",
		AttemptID: "att-5", InputTokens: 10, OutputTokens: 5, Success: true,
	}))

	u, err := repo.LLMUsage(ctx, "att-4")
	require.NoError(t, err)
	assert.Equal(t, LLMUsage{Requests: 2, Failures: 1, InputTokens: 120, OutputTokens: 30}, u)

	u, err = repo.LLMUsage(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, u.Requests)
	assert.Equal(t, 130, u.InputTokens)
}

func TestEmptyLLMUsage(t *testing.T) {
	s := openTestStore(t)
	u, err := s.Events().LLMUsage(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, LLMUsage{}, u)
}

func TestResolve(t *testing.T) {
	got := Resolve([]Grade{
		{QuestionID: "a", Correct: false, Source: SourceLLM},
		{QuestionID: "a", Correct: true, Source: SourceLLM},
		{QuestionID: "b", Correct: false, Source: SourceManual},
		{QuestionID: "b", Correct: true, Source: SourceManual},
	})
	if !got["a"] || !got["b"] {
		t.Errorf("latest grade per source should win, got %v", got)
	}
}

func TestDefaultDBPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TIERWISE_DB", "")
	t.Setenv("XDG_DATA_HOME", dir)

	got, err := DefaultDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tierwise", "tierwise.db"), got)

	t.Setenv("TIERWISE_DB", "postgres://localhost/tierwise")
	got, err = DefaultDBPath()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/tierwise", got)
}
