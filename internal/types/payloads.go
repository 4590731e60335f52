package types

// Methodology is one of the six fixed innovation-framework labels. It keys
// both the Innovation solutions and their Scoring entries.
type Methodology string

// The six innovation methodologies. The values match the labels the model is
// prompted with, so they double as the join key for scoring.
const (
	MethodologyTRIZ            Methodology = "TRIZ"
	MethodologySCAMPER         Methodology = "SCAMPER"
	MethodologyDesignThinking  Methodology = "Design Thinking"
	MethodologyBlueOcean       Methodology = "Blue Ocean Strategy"
	MethodologyBiomimicry      Methodology = "Biomimicry"
	MethodologyFirstPrinciples Methodology = "First Principles"
)

// Methodologies lists all six methodology tags.
var Methodologies = []Methodology{
	MethodologyTRIZ,
	MethodologySCAMPER,
	MethodologyDesignThinking,
	MethodologyBlueOcean,
	MethodologyBiomimicry,
	MethodologyFirstPrinciples,
}

// Decomposition is the stage 1 payload: the challenge broken into its
// fundamental parts.
type Decomposition struct {
	Components      []string `json:"components"`
	Constraints     []string `json:"constraints"`
	Assumptions     []string `json:"assumptions"`
	Stakeholders    []string `json:"stakeholders"`
	SuccessCriteria []string `json:"successCriteria"`
}

// CitationSource classifies where a research citation comes from.
type CitationSource string

// Citation source kinds.
const (
	SourceWeb      CitationSource = "web"
	SourceAcademic CitationSource = "academic"
	SourcePatent   CitationSource = "patent"
)

// ExistingSolution describes one known approach to the challenge.
type ExistingSolution struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Source      string   `json:"source"`
	URL         string   `json:"url,omitempty"`
	Strengths   []string `json:"strengths"`
	Weaknesses  []string `json:"weaknesses"`
}

// Citation is a reference backing the research stage.
type Citation struct {
	Title   string         `json:"title"`
	URL     string         `json:"url,omitempty"`
	Source  CitationSource `json:"source"`
	Snippet string         `json:"snippet,omitempty"`
}

// Research is the stage 2 payload: existing solutions plus citations.
type Research struct {
	ExistingSolutions []ExistingSolution `json:"existingSolutions"`
	Citations         []Citation         `json:"citations"`
}

// Gap is one identified gap in the current solution landscape.
type Gap struct {
	Area        string `json:"area"`
	Description string `json:"description"`
	Opportunity string `json:"opportunity"`
}

// GapAnalysis is the stage 3 payload.
type GapAnalysis struct {
	Gaps                []Gap    `json:"gaps"`
	UnmetNeeds          []string `json:"unmetNeeds"`
	UnderservedSegments []string `json:"underservedSegments"`
}

// ScoreDimensions holds the six fixed scoring dimensions, each an integer
// in [1,10].
type ScoreDimensions struct {
	Novelty        int `json:"novelty"`
	Feasibility    int `json:"feasibility"`
	Impact         int `json:"impact"`
	Scalability    int `json:"scalability"`
	CostEfficiency int `json:"costEfficiency"`
	TimeToMarket   int `json:"timeToMarket"`
}

// InRange reports whether every dimension is within [1,10].
func (s ScoreDimensions) InRange() bool {
	for _, v := range []int{s.Novelty, s.Feasibility, s.Impact, s.Scalability, s.CostEfficiency, s.TimeToMarket} {
		if v < 1 || v > 10 {
			return false
		}
	}
	return true
}

// Solution is one generated solution, keyed by the methodology that produced
// it. Scores is nil until the scoring stage attaches it; a solution whose
// methodology has no scoring entry keeps a nil slot.
type Solution struct {
	Methodology Methodology      `json:"methodology"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	KeyInsights []string         `json:"keyInsights"`
	Scores      *ScoreDimensions `json:"scores,omitempty"`
}

// Innovation is the stage 4 payload: exactly one solution per methodology.
type Innovation struct {
	Solutions []Solution `json:"solutions"`
}

// ScoredSolution is one scoring entry, joined back onto the matching
// solution by methodology.
type ScoredSolution struct {
	Methodology Methodology     `json:"methodology"`
	Scores      ScoreDimensions `json:"scores"`
	Rationale   string          `json:"rationale"`
}

// Scoring is the stage 5 payload.
type Scoring struct {
	ScoredSolutions []ScoredSolution `json:"scoredSolutions"`
}

// PatentRelevance grades how relevant an existing patent is.
type PatentRelevance string

// Patent relevance levels.
const (
	RelevanceHigh   PatentRelevance = "high"
	RelevanceMedium PatentRelevance = "medium"
	RelevanceLow    PatentRelevance = "low"
)

// RiskLevel is the overall patent risk assessment.
type RiskLevel string

// Patent risk levels.
const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Patent describes one relevant existing patent.
type Patent struct {
	Title     string          `json:"title"`
	Number    string          `json:"number,omitempty"`
	Relevance PatentRelevance `json:"relevance"`
	Summary   string          `json:"summary"`
}

// PatentLandscape is the stage 6 payload.
type PatentLandscape struct {
	ExistingPatents []Patent  `json:"existingPatents"`
	WhiteSpaces     []string  `json:"whiteSpaces"`
	RiskLevel       RiskLevel `json:"riskLevel"`
	Recommendation  string    `json:"recommendation"`
}
