// Package report renders placement results for the terminal.
package report

import (
	"fmt"
	"image/color"
	"io"
	"slices"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/abhisek/tierwise/internal/mastery"
	"github.com/abhisek/tierwise/internal/placement"
	"github.com/abhisek/tierwise/internal/question"
	"github.com/abhisek/tierwise/internal/session"
	"github.com/abhisek/tierwise/internal/tier"
)

// Fprint writes s to w, downsampling colors to what w supports.
func Fprint(w io.Writer, s string) error {
	_, err := lipgloss.Fprintln(w, s)
	return err
}

func tierColor(t tier.Tier) color.Color {
	switch t {
	case tier.Tier1:
		return Good
	case tier.Tier2:
		return Watch
	default:
		return Alert
	}
}

func tierBadge(t tier.Tier) string {
	return lipgloss.NewStyle().Bold(true).Foreground(tierColor(t)).Render(t.String())
}

func bandColor(b mastery.Band) color.Color {
	switch b {
	case mastery.BandMastered:
		return Good
	case mastery.BandDeveloping:
		return Watch
	default:
		return Alert
	}
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

// Placement renders a generic placement, and its reading section when set.
func Placement(r *placement.Result) string {
	lines := []string{
		titleStyle.Render("Placement"),
		row("Score", valueStyle.Render(fmt.Sprintf("%d%%", r.Score))),
		row("Tier", tierBadge(r.Tier)),
		row("Correct", valueStyle.Render(fmt.Sprintf("%d of %d graded", r.CorrectCount, r.GradedTotal))),
	}
	if r.NoGradedItems {
		lines = append(lines, hintStyle.Render("No graded items yet."))
	}
	if r.AwaitingFluency {
		lines = append(lines, hintStyle.Render("Reading placement waits for the oral reading error count."))
	}
	if len(r.Pending) > 0 {
		lines = append(lines, hintStyle.Render(fmt.Sprintf("Waiting on grades for: %s", strings.Join(r.Pending, ", "))))
	}
	lines = append(lines, row("Thresholds", hintStyle.Render(r.ThresholdsVersion)))

	out := []string{cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))}
	if len(r.SkillStats) > 0 {
		out = append(out, Skills(r))
	}
	if r.Reading != nil {
		out = append(out, Reading(r.Reading))
	}
	return lipgloss.JoinVertical(lipgloss.Left, out...)
}

// Skills renders per-skill statistics in skill order.
func Skills(r *placement.Result) string {
	keys := make([]string, 0, len(r.SkillStats))
	for k := range r.SkillStats {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	bands := make([]mastery.Band, len(keys))
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Border)).
		Headers("Skill", "Correct", "Total", "%", "Band")
	for i, k := range keys {
		s := r.SkillStats[k]
		bands[i] = s.Band
		t.Row(s.Skill, fmt.Sprint(s.Correct), fmt.Sprint(s.Total), fmt.Sprintf("%d%%", s.Percentage), s.Band.Label())
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerCell
		}
		if col == 4 && row >= 0 && row < len(bands) {
			return cell.Foreground(bandColor(bands[row]))
		}
		return cell
	})
	return t.Render()
}

// Reading renders the dual-axis reading result.
func Reading(r *placement.ReadingResult) string {
	pct := "n/a"
	if r.ComprehensionPct != nil {
		pct = fmt.Sprintf("%.1f%%", *r.ComprehensionPct)
	}
	lines := []string{
		titleStyle.Render("Reading"),
		row("Grade band", valueStyle.Render(r.GradeBand)),
		row("Fluency errors", valueStyle.Render(fmt.Sprint(r.ErrorCount))),
		row("Fluency tier", tierBadge(r.FluencyTier)),
		row("Comprehension", valueStyle.Render(pct)),
		row("Comprehension tier", tierBadge(r.ComprehensionTier)),
		row("Effective tier", tierBadge(r.EffectiveTier)),
		row("Breakdown", valueStyle.Render(string(r.BreakdownCategory))),
	}
	if r.BreakdownReason != "" {
		lines = append(lines, hintStyle.Render(r.BreakdownReason))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Border)).
		Headers("Level", "Correct", "Total")
	for _, lvl := range question.Levels() {
		lr := r.Levels.Get(lvl)
		t.Row(string(lvl), fmt.Sprint(lr.Correct), fmt.Sprint(lr.Total))
	}
	t.StyleFunc(func(row, _ int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerCell
		}
		return cell
	})

	return lipgloss.JoinVertical(lipgloss.Left,
		cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)),
		t.Render(),
	)
}

// Summary renders a session progress summary.
func Summary(s *session.Summary) string {
	lines := []string{
		titleStyle.Render("Session " + s.SessionID),
		row("Test", valueStyle.Render(s.TestName)),
		row("Status", valueStyle.Render(s.Phase)),
		row("Answered", valueStyle.Render(fmt.Sprintf("%d of %d", s.Answered, s.Questions))),
		row("Extra practice", valueStyle.Render(fmt.Sprint(s.Injected))),
		row("Elapsed", valueStyle.Render(s.Elapsed.Round(time.Second).String())),
	}
	if s.Remaining > 0 {
		lines = append(lines, row("Remaining", valueStyle.Render(s.Remaining.Round(time.Second).String())))
	}
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
