// Package mastery maps per-skill percentages to mastery bands.
package mastery

import "github.com/abhisek/tierwise/internal/thresholds"

// Band is a skill's position on the mastery scale.
type Band string

const (
	BandMastered     Band = "mastered"
	BandDeveloping   Band = "developing"
	BandNeedsSupport Band = "needs-support"
)

// Label returns the human-readable band name.
func (b Band) Label() string {
	switch b {
	case BandMastered:
		return "Mastered"
	case BandDeveloping:
		return "Developing"
	case BandNeedsSupport:
		return "Needs Support"
	default:
		return string(b)
	}
}

// Classify maps a percentage (0-100) to a band. Lower bounds are inclusive.
func Classify(pct float64, c thresholds.MasteryCutoffs) Band {
	switch {
	case pct >= float64(c.MasteredMin):
		return BandMastered
	case pct >= float64(c.DevelopingMin):
		return BandDeveloping
	default:
		return BandNeedsSupport
	}
}

// Counts tallies how many skills fall in each band.
type Counts struct {
	Mastered     int `json:"mastered"`
	Developing   int `json:"developing"`
	NeedsSupport int `json:"needsSupport"`
}

// Add records one skill in band b.
func (c *Counts) Add(b Band) {
	switch b {
	case BandMastered:
		c.Mastered++
	case BandDeveloping:
		c.Developing++
	case BandNeedsSupport:
		c.NeedsSupport++
	}
}
