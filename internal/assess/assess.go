// Package assess ties finalized sessions to stored attempts: it scores a
// submission, persists it, dispatches automatic grading and rescores as
// grades arrive.
package assess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/tierwise/internal/grading"
	"github.com/abhisek/tierwise/internal/notify"
	"github.com/abhisek/tierwise/internal/placement"
	"github.com/abhisek/tierwise/internal/question"
	"github.com/abhisek/tierwise/internal/session"
	"github.com/abhisek/tierwise/internal/store"
)

var (
	// ErrUnknownQuestion is returned when a grade names a question that is
	// not part of the attempt.
	ErrUnknownQuestion = errors.New("question not in attempt")

	// ErrNotGradable is returned for manual grades on multiple-choice
	// questions, which are always graded against their key.
	ErrNotGradable = errors.New("multiple-choice questions are graded automatically")

	// ErrNotReading is returned when an error count is recorded for an
	// attempt without a grade band.
	ErrNotReading = errors.New("attempt is not a reading assessment")

	// ErrInvalidErrorCount is returned for a negative oral reading error
	// count.
	ErrInvalidErrorCount = errors.New("error count must not be negative")
)

// Service owns the attempt lifecycle after a session is submitted.
type Service struct {
	attempts  store.AttemptRepo
	grading   *grading.Service
	engine    *placement.Engine
	publisher notify.Publisher
	logger    *slog.Logger

	// rescoring is serialized so a slow rescore never overwrites a newer one.
	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher announces every stored placement.
func WithPublisher(p notify.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service.
func New(attempts store.AttemptRepo, gs *grading.Service, engine *placement.Engine, opts ...Option) *Service {
	s := &Service{
		attempts:  attempts,
		grading:   gs,
		engine:    engine,
		publisher: notify.Nop{},
	}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Submit stores a finalized submission as a new attempt, scores it and
// starts automatic grading of its free-text answers. errorCount is the
// oral reading error count and is used only when the submission carries a
// grade band; nil stores a reading attempt that waits for RecordFluency.
//
// The attempt is stored even when it cannot be tiered against the active
// thresholds. Its ScoreError then says why, and Rescore or RetryUntiered
// tier it once the thresholds are fixed. Only storage failures are
// returned as errors.
func (s *Service) Submit(ctx context.Context, sub *session.Submission, errorCount *int) (*store.Attempt, error) {
	a := &store.Attempt{
		ID:         uuid.New().String(),
		Submission: sub,
	}
	if sub.GradeBand != "" {
		a.Reading = &placement.ReadingInput{GradeBand: sub.GradeBand}
		if errorCount != nil {
			a.Reading.ErrorCount = *errorCount
		} else {
			a.FluencyPending = true
		}
	}

	log := s.logger.With("attempt_id", a.ID, "session_id", sub.SessionID)
	res, err := s.score(a, nil)
	if err != nil {
		a.ScoreError = err.Error()
	} else {
		a.Result = res
	}

	if err := s.attempts.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("save attempt: %w", err)
	}
	if res != nil {
		log.Info("attempt stored",
			"score", res.Score,
			"tier", notify.EffectiveTier(res).String(),
			"pending", len(res.Pending),
			"awaiting_fluency", a.FluencyPending)
	} else {
		log.Warn("attempt stored without a placement", "error", a.ScoreError)
	}

	if n := s.grading.AutoGrade(a.ID, grading.Items(sub)); n > 0 {
		log.Info("automatic grading dispatched", "items", n)
	}
	s.publish(ctx, a)
	return a, nil
}

// Get returns a stored attempt.
func (s *Service) Get(ctx context.Context, id string) (*store.Attempt, error) {
	return s.attempts.Get(ctx, id)
}

// Grade records a manual grade and returns the rescored placement.
func (s *Service) Grade(ctx context.Context, attemptID, questionID string, correct bool) (*placement.Result, error) {
	a, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	q, ok := findQuestion(a.Submission, questionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	if q.IsMultipleChoice() {
		return nil, fmt.Errorf("%w: %s", ErrNotGradable, questionID)
	}
	if err := s.grading.Submit(ctx, attemptID, questionID, correct, store.SourceManual); err != nil {
		return nil, err
	}
	return s.Rescore(ctx, attemptID)
}

// Rescore recomputes an attempt's placement from its current grades,
// stores it and publishes it.
func (s *Service) Rescore(ctx context.Context, attemptID string) (*placement.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	grades, err := s.grading.Grades(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("load grades: %w", err)
	}
	res, err := s.score(a, grades)
	if err != nil {
		if serr := s.attempts.SetScoreError(ctx, attemptID, err.Error()); serr != nil {
			s.logger.Error("score error not recorded", "attempt_id", attemptID, "error", serr)
		}
		return nil, err
	}
	if err := s.attempts.UpdateResult(ctx, attemptID, res); err != nil {
		return nil, fmt.Errorf("update result: %w", err)
	}
	a.Result, a.ScoreError = res, ""
	s.logger.Info("attempt rescored",
		"attempt_id", attemptID,
		"score", res.Score,
		"tier", notify.EffectiveTier(res).String(),
		"pending", len(res.Pending))
	s.publish(ctx, a)
	return res, nil
}

// RecordFluency stores the oral reading error count of a reading attempt
// that was submitted without one and returns the rescored placement.
func (s *Service) RecordFluency(ctx context.Context, attemptID string, errorCount int) (*placement.Result, error) {
	if errorCount < 0 {
		return nil, ErrInvalidErrorCount
	}
	a, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if a.Reading == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotReading, attemptID)
	}
	if err := s.attempts.SetErrorCount(ctx, attemptID, errorCount); err != nil {
		return nil, fmt.Errorf("record error count: %w", err)
	}
	s.logger.Info("oral reading errors recorded", "attempt_id", attemptID, "error_count", errorCount)
	return s.Rescore(ctx, attemptID)
}

// RetryUntiered rescores stored attempts that could not be tiered, e.g.
// after a threshold reload restored a grade band. It returns how many were
// tiered.
func (s *Service) RetryUntiered(ctx context.Context, limit int) (int, error) {
	untiered, err := s.attempts.ListUntiered(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list untiered attempts: %w", err)
	}
	tiered := 0
	for _, a := range untiered {
		if _, err := s.Rescore(ctx, a.ID); err != nil {
			s.logger.Warn("attempt still untiered", "attempt_id", a.ID, "error", err)
			continue
		}
		tiered++
	}
	if len(untiered) > 0 {
		s.logger.Info("retried untiered attempts", "attempts", len(untiered), "tiered", tiered)
	}
	return tiered, nil
}

// Settled is the grading callback run once an automatic grading batch
// finishes.
func (s *Service) Settled(ctx context.Context, attemptID string) {
	if _, err := s.Rescore(ctx, attemptID); err != nil {
		s.logger.Error("rescore after automatic grading failed", "attempt_id", attemptID, "error", err)
	}
}

// Resume redispatches automatic grading for stored attempts that are still
// waiting on grades, e.g. after a restart. It returns the number of jobs
// dispatched.
func (s *Service) Resume(ctx context.Context, limit int) (int, error) {
	if !s.grading.Enabled() {
		return 0, nil
	}
	pending, err := s.attempts.ListIncomplete(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list incomplete attempts: %w", err)
	}
	total := 0
	for _, a := range pending {
		grades, err := s.grading.Grades(ctx, a.ID)
		if err != nil {
			return total, fmt.Errorf("load grades for %s: %w", a.ID, err)
		}
		var items []grading.Item
		for _, it := range grading.Items(a.Submission) {
			if _, ok := grades[it.QuestionID]; !ok {
				items = append(items, it)
			}
		}
		total += s.grading.AutoGrade(a.ID, items)
	}
	if total > 0 {
		s.logger.Info("resumed automatic grading", "attempts", len(pending), "items", total)
	}
	return total, nil
}

func (s *Service) score(a *store.Attempt, grades map[string]bool) (*placement.Result, error) {
	in := placement.Input(a.Submission, grades)
	if a.FluencyPending {
		return s.engine.ScoreAwaitingFluency(in, a.Reading.GradeBand)
	}
	if a.Reading != nil {
		return s.engine.ScoreReading(in, *a.Reading)
	}
	return s.engine.Score(in)
}

// publish never fails the caller; the placement is already stored.
// Attempts without a placement, or still waiting on their oral reading
// count, are not announced.
func (s *Service) publish(ctx context.Context, a *store.Attempt) {
	if a.Result == nil || a.Result.AwaitingFluency {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err := s.publisher.Publish(ctx, notify.Placement{
		AttemptID: a.ID,
		SessionID: a.Submission.SessionID,
		TestName:  a.Submission.TestName,
		Tier:      notify.EffectiveTier(a.Result),
		Final:     !a.Result.IncompleteGrading,
		Result:    a.Result,
	})
	if err != nil {
		s.logger.Warn("placement not published", "attempt_id", a.ID, "error", err)
	}
}

func findQuestion(sub *session.Submission, id string) (question.Question, bool) {
	for _, q := range sub.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return question.Question{}, false
}
