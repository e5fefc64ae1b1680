package session

import "time"

// Summary is a progress snapshot of a session.
type Summary struct {
	SessionID string         `json:"sessionId"`
	TestName  string         `json:"testName"`
	Phase     string         `json:"phase"`
	Questions int            `json:"questions"`
	Answered  int            `json:"answered"`
	Injected  int            `json:"reinforcementInjected"`
	Elapsed   time.Duration  `json:"elapsedNs"`
	Remaining time.Duration  `json:"remainingNs,omitempty"`
	Skills    []SkillCounter `json:"skills"`
}

// BuildSummary creates a Summary from the current session state.
func BuildSummary(s *Session) *Summary {
	skills := s.Counters()
	injected := 0
	for _, c := range skills {
		injected += c.Injected
	}
	return &Summary{
		SessionID: s.ID,
		TestName:  s.TestName,
		Phase:     s.phase.String(),
		Questions: len(s.sequence),
		Answered:  countAnswered(s.answers),
		Injected:  injected,
		Elapsed:   s.now().Sub(s.StartedAt),
		Remaining: s.Remaining(),
		Skills:    skills,
	}
}
