// Package prompts assembles the generation prompt for each pipeline stage.
// Builders are pure text assembly: the original challenge description plus a
// stage-specific slice of prior completed output.
package prompts

import (
	"fmt"
	"strings"

	"github.com/perviz24/innovati-x/internal/types"
)

// summaryDescriptionLimit bounds how much of each solution description the
// condensed summary carries into the scoring and patent prompts.
const summaryDescriptionLimit = 200

// Decomposition builds the stage 1 prompt. It uses only the challenge
// description; there is no prior context.
func Decomposition(description string) string {
	return fmt.Sprintf(`You are an expert innovation analyst. Analyze this challenge and break it down into its fundamental components.

CHALLENGE:
%s

Decompose the challenge into:
1. Core components/sub-problems (5-8 items)
2. Constraints - technical, financial, regulatory, temporal (4-6 items)
3. Hidden assumptions that limit current thinking (3-5 items)
4. Key stakeholders affected (3-6 people/groups)
5. Measurable success criteria (3-5 items)

Be specific and insightful. Go beyond obvious surface-level analysis.`, description)
}

// Research builds the stage 2 prompt from the decomposition output and an
// optional web-search context. An empty searchContext is simply omitted.
func Research(description, decomposition, searchContext string) string {
	context := decomposition
	if searchContext != "" {
		context += "\n\nWEB RESEARCH RESULTS:\n" + searchContext
	}

	return fmt.Sprintf(`You are a research analyst. Given this challenge and its decomposition, identify existing solutions and approaches.

CHALLENGE:
%s

DECOMPOSITION:
%s

Find and analyze 4-6 existing solutions or approaches to this challenge. For each:
- Describe what the solution is and where it comes from
- List specific strengths (2-3 each)
- List specific weaknesses/limitations (2-3 each)

Also provide citations for your research (academic papers, web sources, patents).
Be factual and specific. Reference real approaches, companies, or research when possible.`, description, context)
}

// GapAnalysis builds the stage 3 prompt from the research stage's existing
// solutions.
func GapAnalysis(description, existingSolutions string) string {
	return fmt.Sprintf(`You are a strategic analyst specializing in innovation gaps. Given this challenge and existing solutions, identify what's missing.

CHALLENGE:
%s

EXISTING SOLUTIONS:
%s

Identify:
1. Specific gaps in current solutions (4-6 gaps) - for each, describe the area, what's missing, and the innovation opportunity it creates
2. Unmet needs that no current solution addresses (3-5 needs)
3. Underserved segments or markets (2-4 segments)

Focus on actionable gaps that could lead to breakthrough innovation.`, description, existingSolutions)
}

// Innovation builds the stage 4 prompt from the gap analysis output.
func Innovation(description, gaps string) string {
	return fmt.Sprintf(`You are a world-class innovation expert. Generate novel solutions using 6 proven innovation methodologies.

CHALLENGE:
%s

IDENTIFIED GAPS AND OPPORTUNITIES:
%s

Generate exactly ONE solution for EACH of these 6 methodologies:

1. **TRIZ** - Apply inventive principles and contradiction analysis
2. **SCAMPER** - Apply Substitute/Combine/Adapt/Modify/Put to use/Eliminate/Reverse
3. **Design Thinking** - Human-centered, empathy-driven solution
4. **Blue Ocean Strategy** - Create uncontested market space
5. **Biomimicry** - Nature-inspired solution
6. **First Principles** - Rebuild from fundamental truths

For each solution provide:
- A concise, memorable title
- A detailed description (2-3 paragraphs explaining the solution)
- 3-5 key insights that make this solution unique

Solutions must directly address the identified gaps. Be creative, specific, and practical.`, description, gaps)
}

// Scoring builds the stage 5 prompt from a condensed summary of the
// generated solutions.
func Scoring(description, solutionsSummary string) string {
	return fmt.Sprintf(`You are an innovation evaluator. Score each proposed solution across 6 dimensions.

CHALLENGE:
%s

PROPOSED SOLUTIONS:
%s

Score each solution on a 1-10 scale across these dimensions:
- **Novelty**: How unique and original is this approach? (10 = completely new)
- **Feasibility**: How technically and practically achievable? (10 = immediately doable)
- **Impact**: Potential positive effect if implemented? (10 = transformative)
- **Scalability**: Can it grow and adapt? (10 = infinitely scalable)
- **Cost Efficiency**: Resource requirements vs value? (10 = very cost effective)
- **Time to Market**: How quickly can it be realized? (10 = weeks, 1 = decades)

For each solution, also provide a brief rationale (1-2 sentences) explaining the scores.
Be critical and realistic. Not every solution should score high on every dimension.`, description, solutionsSummary)
}

// Patent builds the stage 6 prompt from the same condensed solution summary
// the scoring stage uses.
func Patent(description, solutionsSummary string) string {
	return fmt.Sprintf(`You are a patent landscape analyst. Analyze the intellectual property landscape for these proposed solutions.

CHALLENGE:
%s

PROPOSED SOLUTIONS:
%s

Analyze:
1. **Existing Patents** (3-5 relevant patents): Title, patent number if known, relevance level, and summary of what it covers
2. **White Spaces** (3-5 areas): Areas with no existing patents where new IP could be filed
3. **Risk Level**: Overall patent risk (low/medium/high) considering freedom to operate
4. **Recommendation**: Strategic advice on IP protection and potential conflicts

Note: This is a preliminary landscape analysis for strategic planning, not legal advice.
Focus on identifying the most relevant existing IP and the most promising areas for new patent filings.`, description, solutionsSummary)
}

// SolutionsSummary condenses generated solutions into the short form the
// scoring and patent prompts consume: one block per solution, tagged with
// its methodology, with the description truncated.
func SolutionsSummary(solutions []types.Solution) string {
	blocks := make([]string, 0, len(solutions))
	for _, sol := range solutions {
		desc := sol.Description
		if len(desc) > summaryDescriptionLimit {
			desc = desc[:summaryDescriptionLimit] + "..."
		}
		blocks = append(blocks, fmt.Sprintf("[%s] %s: %s", sol.Methodology, sol.Title, desc))
	}
	return strings.Join(blocks, "\n\n")
}
