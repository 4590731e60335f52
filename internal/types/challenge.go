// Package types defines the shared data contracts for the innovation
// analysis pipeline: the challenge record, its stage map, and the structured
// payload each stage produces.
package types

import (
	"time"

	"github.com/google/uuid"
)

// ChallengeStatus is the overall lifecycle status of a challenge.
type ChallengeStatus string

// Overall challenge statuses.
const (
	ChallengePending   ChallengeStatus = "pending"
	ChallengeAnalyzing ChallengeStatus = "analyzing"
	ChallengeCompleted ChallengeStatus = "completed"
	ChallengeFailed    ChallengeStatus = "failed"
)

// StageStatus is the status of a single pipeline stage within a run.
type StageStatus string

// Per-stage statuses.
const (
	StagePending   StageStatus = "pending"
	StageRunning   StageStatus = "running"
	StageCompleted StageStatus = "completed"
	StageFailed    StageStatus = "failed"
)

// Stage names one of the six fixed analysis stages.
type Stage string

// The six pipeline stages, in execution order.
const (
	StageDecomposition Stage = "decomposition"
	StageResearch      Stage = "research"
	StageGapAnalysis   Stage = "gapAnalysis"
	StageInnovation    Stage = "innovation"
	StageScoring       Stage = "scoring"
	StagePatent        Stage = "patent"
)

// StageOrder is the fixed execution order of the pipeline. Stage N may not
// start until stage N-1 has completed.
var StageOrder = []Stage{
	StageDecomposition,
	StageResearch,
	StageGapAnalysis,
	StageInnovation,
	StageScoring,
	StagePatent,
}

// ValidStage reports whether name is one of the six fixed stages.
func ValidStage(name Stage) bool {
	for _, s := range StageOrder {
		if s == name {
			return true
		}
	}
	return false
}

// NewStageMap returns a fresh stage map with every stage pending.
func NewStageMap() map[Stage]StageStatus {
	m := make(map[Stage]StageStatus, len(StageOrder))
	for _, s := range StageOrder {
		m[s] = StagePending
	}
	return m
}

// Challenge is the unit of work: one user-submitted problem description plus
// the durable state of its analysis pipeline. The record is owned exclusively
// by its creating user; all store operations are scoped to that owner.
type Challenge struct {
	ID          uuid.UUID             `json:"id"`
	UserID      uuid.UUID             `json:"user_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      ChallengeStatus       `json:"status"`
	Stages      map[Stage]StageStatus `json:"stages"`

	// One payload slot per stage, populated as stages complete. The
	// innovation slot holds the solutions; scoring results are joined onto
	// the solutions by methodology and also kept whole for the rationales.
	Decomposition   *Decomposition   `json:"decomposition,omitempty"`
	Research        *Research        `json:"research,omitempty"`
	GapAnalysis     *GapAnalysis     `json:"gapAnalysis,omitempty"`
	Solutions       []Solution       `json:"solutions,omitempty"`
	Scoring         *Scoring         `json:"scoring,omitempty"`
	PatentLandscape *PatentLandscape `json:"patentLandscape,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
