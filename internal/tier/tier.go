// Package tier maps scores and reading signals to placement tiers.
//
// Every cutoff is read from a thresholds.Config; nothing here hard-codes a
// boundary.
package tier

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/tierwise/internal/thresholds"
)

// Tier is a placement band ordered by increasing support need.
type Tier int

const (
	Tier1 Tier = iota + 1
	Tier2
	Tier3
)

// All returns the tiers in order.
func All() []Tier { return []Tier{Tier1, Tier2, Tier3} }

// String returns the display label ("Tier 1").
func (t Tier) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Tier(%d)", int(t))
	}
	return fmt.Sprintf("Tier %d", int(t))
}

// Valid reports whether t is one of the three tiers.
func (t Tier) Valid() bool { return t >= Tier1 && t <= Tier3 }

// Parse accepts "Tier 2", "tier2", or "2".
func Parse(s string) (Tier, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimSpace(strings.TrimPrefix(v, "tier"))
	switch v {
	case "1":
		return Tier1, nil
	case "2":
		return Tier2, nil
	case "3":
		return Tier3, nil
	}
	return 0, fmt.Errorf("unknown tier %q", s)
}

func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int
		if err2 := json.Unmarshal(data, &n); err2 != nil {
			return fmt.Errorf("tier: %w", err)
		}
		s = fmt.Sprint(n)
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// FromScore tiers an overall 0-100 score. This is the only definition of
// score tiering; every display of a score tier goes through it.
func FromScore(score int, c thresholds.ScoreCutoffs) Tier {
	switch {
	case score >= c.Tier1Min:
		return Tier1
	case score >= c.Tier2Min:
		return Tier2
	default:
		return Tier3
	}
}

// FluencyTier tiers an oral-reading error count.
func FluencyTier(errors int, c thresholds.FluencyCutoffs) Tier {
	switch {
	case errors <= c.Tier1MaxErrors:
		return Tier1
	case errors <= c.Tier2MaxErrors:
		return Tier2
	default:
		return Tier3
	}
}

// ComprehensionTier tiers a comprehension percentage. A nil percentage means
// no comprehension data and yields Tier 1.
func ComprehensionTier(pct *float64, c thresholds.ComprehensionCutoffs) Tier {
	if pct == nil {
		return Tier1
	}
	switch {
	case *pct >= c.Tier1MinPct:
		return Tier1
	case *pct >= c.Tier2MinPct:
		return Tier2
	default:
		return Tier3
	}
}

// Effective returns the worse (higher) of two tiers.
func Effective(a, b Tier) Tier {
	if a > b {
		return a
	}
	return b
}

// Percent returns 100*correct/total unrounded, or nil when total is zero.
func Percent(correct, total int) *float64 {
	if total <= 0 {
		return nil
	}
	p := 100 * float64(correct) / float64(total)
	return &p
}

// DualAxisResult is the outcome of tiering fluency and comprehension together.
type DualAxisResult struct {
	FluencyTier       Tier     `json:"fluencyTier"`
	ComprehensionTier Tier     `json:"comprehensionTier"`
	EffectiveTier     Tier     `json:"effectiveTier"`
	ComprehensionPct  *float64 `json:"comprehensionPct,omitempty"`
}

// DualAxis tiers an error count and comprehension counts. When total is zero
// comprehension is treated as missing.
func DualAxis(errors, correct, total int, cfg *thresholds.Config) DualAxisResult {
	pct := Percent(correct, total)
	f := FluencyTier(errors, cfg.Fluency)
	c := ComprehensionTier(pct, cfg.Comprehension)
	return DualAxisResult{
		FluencyTier:       f,
		ComprehensionTier: c,
		EffectiveTier:     Effective(f, c),
		ComprehensionPct:  pct,
	}
}
