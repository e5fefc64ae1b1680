package session

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/tierwise/internal/question"
	"github.com/abhisek/tierwise/internal/skilltag"
)

// New creates an active session over the authored question sequence.
// The input slice is copied; later mutation by the caller has no effect.
func New(questions []question.Question, opts Options) *Session {
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxPerSkill := opts.MaxPerSkill
	if maxPerSkill <= 0 {
		maxPerSkill = DefaultMaxReinforcementPerSkill
	}

	s := &Session{
		ID:            id,
		TestName:      opts.TestName,
		GradeBand:     opts.GradeBand,
		StartedAt:     now(),
		sequence:      slices.Clone(questions),
		present:       make(map[string]bool, len(questions)),
		answers:       make(AnswerSet),
		counters:      make(map[string]*SkillCounter),
		used:          make(map[string]bool),
		evaluated:     make(map[string]bool),
		phase:         PhaseActive,
		reinforcement: opts.Reinforcement,
		maxPerSkill:   maxPerSkill,
		observer:      opts.Observer,
		logger:        logger.With(slog.String("session_id", id)),
		now:           now,
	}
	for _, q := range s.sequence {
		s.present[q.ID] = true
	}
	if opts.TimeLimit > 0 {
		s.Deadline = s.StartedAt.Add(opts.TimeLimit)
	}
	return s
}

// Phase reports the lifecycle phase.
func (s *Session) Phase() Phase { return s.phase }

// Len returns the length of the live sequence, including injected items.
func (s *Session) Len() int { return len(s.sequence) }

// Questions returns a copy of the live sequence.
func (s *Session) Questions() []question.Question {
	return slices.Clone(s.sequence)
}

// Question returns the question at position index.
func (s *Session) Question(index int) (question.Question, error) {
	if index < 0 || index >= len(s.sequence) {
		return question.Question{}, &ErrIndexOutOfRange{Index: index, Length: len(s.sequence)}
	}
	return s.sequence[index], nil
}

// Answers returns a copy of the current answer set.
func (s *Session) Answers() AnswerSet { return s.answers.Clone() }

// Counter returns the live counter for a skill, matched after normalization.
func (s *Session) Counter(skill string) (SkillCounter, bool) {
	c, ok := s.counters[skilltag.Normalize(skill)]
	if !ok {
		return SkillCounter{}, false
	}
	return *c, true
}

// Counters returns all skill counters sorted by skill.
func (s *Session) Counters() []SkillCounter {
	out := make([]SkillCounter, 0, len(s.counters))
	for _, c := range s.counters {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Skill < out[j].Skill })
	return out
}

// Expired reports whether the deadline has passed.
func (s *Session) Expired() bool {
	return !s.Deadline.IsZero() && !s.now().Before(s.Deadline)
}

// Remaining returns the time left before the deadline. Zero when there is
// no deadline or it has passed.
func (s *Session) Remaining() time.Duration {
	if s.Deadline.IsZero() {
		return 0
	}
	if d := s.Deadline.Sub(s.now()); d > 0 {
		return d
	}
	return 0
}

// RecordAnswer stores the latest value for a question. It never evaluates.
// Answers to ids not in the live sequence are dropped with a warning.
func (s *Session) RecordAnswer(questionID, value string) error {
	if err := s.checkActive(); err != nil {
		return err
	}
	if !s.present[questionID] {
		s.logger.Warn("dropping answer for unknown question",
			slog.String("question_id", questionID))
		return nil
	}
	s.answers[questionID] = value
	return nil
}

// Advance evaluates the question at index, when eligible, and moves the
// student to the next position.
//
// Only multiple-choice questions with an answer key are evaluated, and each
// question is evaluated at most once. An incorrect answer may splice one
// reinforcement question at index+1 so the student sees it next.
func (s *Session) Advance(index int) (Step, error) {
	if err := s.checkActive(); err != nil {
		return Step{}, err
	}
	if index < 0 || index >= len(s.sequence) {
		return Step{}, &ErrIndexOutOfRange{Index: index, Length: len(s.sequence)}
	}

	q := s.sequence[index]
	step := Step{Next: index + 1}

	if q.IsMultipleChoice() && q.AnswerKey != "" && !s.evaluated[q.ID] {
		s.evaluated[q.ID] = true
		skill := q.SkillKey()
		c := s.counter(skill)

		if question.CheckAnswer(s.answers[q.ID], q) {
			c.Correct++
		} else {
			c.Incorrect++
			if injected, ok := s.reinforce(index, skill, c); ok {
				step.Injected = &injected
				step.Advisory = fmt.Sprintf("Extra practice added for %s.", skill)
			}
		}
	}

	step.Done = step.Next >= len(s.sequence)
	return step, nil
}

// Finalize freezes the session and returns its submission.
func (s *Session) Finalize(reason SubmitReason) (*Submission, error) {
	if err := s.checkActive(); err != nil {
		return nil, err
	}
	s.phase = PhaseFinalized

	answers := make(AnswerSet, len(s.answers))
	for id, v := range s.answers {
		if s.present[id] {
			answers[id] = v
		}
	}

	sub := &Submission{
		SessionID:   s.ID,
		TestName:    s.TestName,
		GradeBand:   s.GradeBand,
		Questions:   slices.Clone(s.sequence),
		Answers:     answers,
		Skills:      s.Counters(),
		StartedAt:   s.StartedAt,
		SubmittedAt: s.now(),
		Reason:      reason,
	}
	s.logger.Info("session finalized",
		slog.String("reason", string(reason)),
		slog.Int("questions", len(sub.Questions)),
		slog.Int("answered", countAnswered(answers)))
	return sub, nil
}

// Abandon discards the session. No submission is produced.
func (s *Session) Abandon() error {
	if err := s.checkActive(); err != nil {
		return err
	}
	s.phase = PhaseAbandoned
	s.logger.Info("session abandoned")
	return nil
}

func (s *Session) checkActive() error {
	switch s.phase {
	case PhaseFinalized:
		return ErrFinalized
	case PhaseAbandoned:
		return ErrAbandoned
	}
	return nil
}

func (s *Session) counter(skill string) *SkillCounter {
	c, ok := s.counters[skill]
	if !ok {
		c = &SkillCounter{Skill: skill}
		s.counters[skill] = c
	}
	return c
}

// reinforce splices the first unused reinforcement question for skill after
// index. Returns false when the per-skill cap is reached or none is left.
func (s *Session) reinforce(index int, skill string, c *SkillCounter) (question.Question, bool) {
	if s.reinforcement == nil || skill == "" {
		return question.Question{}, false
	}
	if c.Injected >= s.maxPerSkill {
		s.notifyUnavailable(skill, true)
		return question.Question{}, false
	}

	for _, cand := range s.reinforcement.ReinforcementQuestions(skill) {
		if s.used[cand.ID] || s.present[cand.ID] {
			continue
		}
		if cand.SkillKey() != skill {
			s.logger.Warn("reinforcement question skill mismatch",
				slog.String("question_id", cand.ID),
				slog.String("want", skill),
				slog.String("got", cand.SkillKey()))
			continue
		}
		cand.IsAdaptive = true
		s.sequence = slices.Insert(s.sequence, index+1, cand)
		s.present[cand.ID] = true
		s.used[cand.ID] = true
		c.Injected++

		s.logger.Debug("reinforcement injected",
			slog.String("skill", skill),
			slog.String("question_id", cand.ID),
			slog.Int("position", index+1))
		if s.observer != nil {
			s.observer.ReinforcementInjected(skill)
		}
		return cand, true
	}

	s.notifyUnavailable(skill, false)
	return question.Question{}, false
}

func (s *Session) notifyUnavailable(skill string, capped bool) {
	s.logger.Debug("no reinforcement injected",
		slog.String("skill", skill),
		slog.Bool("capped", capped))
	if s.observer != nil {
		s.observer.ReinforcementUnavailable(skill, capped)
	}
}

func countAnswered(a AnswerSet) int {
	n := 0
	for _, v := range a {
		if !question.IsBlank(v) {
			n++
		}
	}
	return n
}
