package grading

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/abhisek/tierwise/internal/llm"
	"github.com/abhisek/tierwise/internal/session"
	"github.com/abhisek/tierwise/internal/store"
)

// Service persists grades and runs asynchronous LLM pre-grading.
// It owns the per-attempt WaitGroups so the store stays a pure
// persistence layer.
type Service struct {
	grades        store.GradeRepo
	grader        AnswerGrader
	logger        *slog.Logger
	timeout       time.Duration
	minConfidence float64
	settled       func(ctx context.Context, attemptID string)

	mu      sync.Mutex
	pending map[string]*attemptJobs
	all     sync.WaitGroup
}

// attemptJobs tracks in-flight jobs for one attempt. The entry is removed
// once n drops to zero.
type attemptJobs struct {
	wg sync.WaitGroup
	n  int
}

// Option configures a Service.
type Option func(*Service)

// WithGrader enables automatic grading. Without one, AutoGrade is a no-op
// and every free-text answer waits for a manual grade.
func WithGrader(g AnswerGrader) Option {
	return func(s *Service) { s.grader = g }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithTimeout bounds each grading call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithMinConfidence drops LLM verdicts below c, leaving the answer for a
// human.
func WithMinConfidence(c float64) Option {
	return func(s *Service) { s.minConfidence = c }
}

// WithSettled registers a callback run after each AutoGrade batch finishes.
func WithSettled(fn func(ctx context.Context, attemptID string)) Option {
	return func(s *Service) { s.settled = fn }
}

// NewService creates a Service backed by grades.
func NewService(grades store.GradeRepo, opts ...Option) *Service {
	s := &Service{
		grades:  grades,
		timeout: 30 * time.Second,
		pending: make(map[string]*attemptJobs),
	}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Enabled reports whether automatic grading is configured.
func (s *Service) Enabled() bool { return s.grader != nil }

// Submit persists a grade. source is store.SourceManual or store.SourceLLM.
func (s *Service) Submit(ctx context.Context, attemptID, questionID string, correct bool, source string) error {
	return s.save(ctx, &store.Grade{
		AttemptID:  attemptID,
		QuestionID: questionID,
		Correct:    correct,
		Source:     source,
	})
}

func (s *Service) save(ctx context.Context, g *store.Grade) error {
	if err := s.grades.Save(ctx, g); err != nil {
		return fmt.Errorf("save grade for %s/%s: %w", g.AttemptID, g.QuestionID, err)
	}
	return nil
}

// Grades returns the effective grade per question for an attempt.
func (s *Service) Grades(ctx context.Context, attemptID string) (map[string]bool, error) {
	return s.grades.ForAttempt(ctx, attemptID)
}

// Items lists the answered free-text questions of a submission. Blank
// answers are left out; they stay pending until graded by hand.
func Items(sub *session.Submission) []Item {
	var out []Item
	for _, q := range sub.Questions {
		if q.IsMultipleChoice() {
			continue
		}
		answer := strings.TrimSpace(sub.Answers[q.ID])
		if answer == "" {
			continue
		}
		out = append(out, Item{
			QuestionID: q.ID,
			Prompt:     q.Prompt,
			Kind:       q.Kind,
			Skill:      q.Skill,
			Level:      q.Level,
			Reference:  q.AnswerKey,
			Answer:     answer,
		})
	}
	return out
}

// AutoGrade dispatches one grading job per item and returns immediately.
// Jobs run detached from the caller's context so an ended HTTP request
// does not cancel them. It returns the number of jobs dispatched.
func (s *Service) AutoGrade(attemptID string, items []Item) int {
	if s.grader == nil || len(items) == 0 {
		return 0
	}

	s.mu.Lock()
	jobs, ok := s.pending[attemptID]
	if !ok {
		jobs = &attemptJobs{}
		s.pending[attemptID] = jobs
	}
	jobs.n += len(items)
	jobs.wg.Add(len(items))
	s.all.Add(len(items) + 1)
	s.mu.Unlock()

	batch := &sync.WaitGroup{}
	batch.Add(len(items))
	for _, item := range items {
		go func() {
			defer s.all.Done()
			defer jobs.wg.Done()
			defer batch.Done()
			s.grade(attemptID, item)
		}()
	}

	go func() {
		defer s.all.Done()
		batch.Wait()

		s.mu.Lock()
		jobs.n -= len(items)
		if jobs.n == 0 && s.pending[attemptID] == jobs {
			delete(s.pending, attemptID)
		}
		s.mu.Unlock()

		if s.settled != nil {
			s.settled(context.Background(), attemptID)
		}
	}()
	return len(items)
}

// Wait blocks until all grading jobs dispatched for attemptID have finished.
func (s *Service) Wait(attemptID string) {
	s.mu.Lock()
	jobs, ok := s.pending[attemptID]
	s.mu.Unlock()
	if ok {
		jobs.wg.Wait()
	}
}

// Shutdown waits for every in-flight job, or until ctx is done.
func (s *Service) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.all.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) grade(attemptID string, item Item) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	ctx = llm.WithAttempt(ctx, attemptID)

	log := s.logger.With("attempt_id", attemptID, "question_id", item.QuestionID)

	v, err := s.grader.GradeAnswer(ctx, item)
	if err != nil {
		log.Error("grading error", "error", err)
		return
	}
	if v.Confidence < s.minConfidence {
		log.Info("low-confidence verdict left for manual grading", "confidence", v.Confidence)
		return
	}

	if err := s.save(ctx, &store.Grade{
		AttemptID:  attemptID,
		QuestionID: item.QuestionID,
		Correct:    v.Correct,
		Source:     store.SourceLLM,
		Rationale:  v.Rationale,
	}); err != nil {
		log.Error("failed to save grade", "error", err)
	}
}
