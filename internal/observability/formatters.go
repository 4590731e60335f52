// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/perviz24/innovati-x/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// writeList writes up to maxItemsToShow bullet items followed by an
// "and N more" line when truncated.
func writeList(sb *strings.Builder, items []string) {
	count := min(len(items), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
	}
	if len(items) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-maxItemsToShow))
	}
}

// PrintStageStatuses outputs the per-stage progress of a challenge.
func (p *Printer) PrintStageStatuses(c *types.Challenge) {
	if c == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Overall:  %s\n\n", c.Status))
	for _, stage := range types.StageOrder {
		sb.WriteString(fmt.Sprintf("  %-14s %s\n", stage, c.Stages[stage]))
	}

	p.printBox("PIPELINE STATUS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintDecomposition outputs a summary of the problem breakdown.
func (p *Printer) PrintDecomposition(d *types.Decomposition) {
	if d == nil {
		return
	}

	var sb strings.Builder
	if len(d.Components) > 0 {
		sb.WriteString("Components:\n")
		writeList(&sb, d.Components)
		sb.WriteString("\n")
	}
	if len(d.Constraints) > 0 {
		sb.WriteString("Constraints:\n")
		writeList(&sb, d.Constraints)
		sb.WriteString("\n")
	}
	if len(d.SuccessCriteria) > 0 {
		sb.WriteString("Success Criteria:\n")
		writeList(&sb, d.SuccessCriteria)
	}

	p.printBox("PROBLEM DECOMPOSITION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintResearch outputs the existing solutions found during research.
func (p *Printer) PrintResearch(r *types.Research) {
	if r == nil || len(r.ExistingSolutions) == 0 {
		return
	}

	var sb strings.Builder
	count := min(len(r.ExistingSolutions), maxItemsToShow)
	for i := 0; i < count; i++ {
		sol := r.ExistingSolutions[i]
		sb.WriteString(fmt.Sprintf("  • %s (%s)\n", sol.Title, sol.Source))
	}
	if len(r.ExistingSolutions) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(r.ExistingSolutions)-maxItemsToShow))
	}
	sb.WriteString(fmt.Sprintf("\nCitations: %d", len(r.Citations)))

	p.printBox("EXISTING SOLUTIONS", sb.String())
}

// PrintGapAnalysis outputs the identified market gaps.
func (p *Printer) PrintGapAnalysis(g *types.GapAnalysis) {
	if g == nil || len(g.Gaps) == 0 {
		return
	}

	var sb strings.Builder
	count := min(len(g.Gaps), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", g.Gaps[i].Area))
	}
	if len(g.Gaps) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(g.Gaps)-maxItemsToShow))
	}
	if len(g.UnmetNeeds) > 0 {
		sb.WriteString("\nUnmet Needs:\n")
		writeList(&sb, g.UnmetNeeds)
	}

	p.printBox("GAP ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSolutions outputs each generated solution with its scores when
// scoring has run.
func (p *Printer) PrintSolutions(solutions []types.Solution) {
	if len(solutions) == 0 {
		return
	}

	var sb strings.Builder
	for i, sol := range solutions {
		sb.WriteString(fmt.Sprintf("[%s]\n", sol.Methodology))
		sb.WriteString(fmt.Sprintf("  %s\n", sol.Title))
		if sol.Scores != nil {
			sb.WriteString(fmt.Sprintf("  Novelty %d  Feasibility %d  Impact %d\n",
				sol.Scores.Novelty, sol.Scores.Feasibility, sol.Scores.Impact))
			sb.WriteString(fmt.Sprintf("  Scalability %d  Cost %d  Time-to-market %d\n",
				sol.Scores.Scalability, sol.Scores.CostEfficiency, sol.Scores.TimeToMarket))
		}
		if i < len(solutions)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("INNOVATIVE SOLUTIONS", sb.String())
}

// PrintPatentLandscape outputs the patent risk assessment.
func (p *Printer) PrintPatentLandscape(pl *types.PatentLandscape) {
	if pl == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Risk Level: %s\n", strings.ToUpper(string(pl.RiskLevel))))
	sb.WriteString(fmt.Sprintf("Patents Reviewed: %d\n", len(pl.ExistingPatents)))
	if len(pl.WhiteSpaces) > 0 {
		sb.WriteString("\nWhite Spaces:\n")
		writeList(&sb, pl.WhiteSpaces)
	}
	if pl.Recommendation != "" {
		sb.WriteString(fmt.Sprintf("\nRecommendation: %s", pl.Recommendation))
	}

	p.printBox("PATENT LANDSCAPE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintChallenge outputs every populated section of an analyzed challenge.
func (p *Printer) PrintChallenge(c *types.Challenge) {
	if c == nil {
		return
	}
	p.PrintStageStatuses(c)
	p.PrintDecomposition(c.Decomposition)
	p.PrintResearch(c.Research)
	p.PrintGapAnalysis(c.GapAnalysis)
	p.PrintSolutions(c.Solutions)
	p.PrintPatentLandscape(c.PatentLandscape)
}
