// Package store provides durable, owner-scoped persistence for challenge
// records and their per-stage checkpoints.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/perviz24/innovati-x/internal/types"
)

// ErrNotFound is returned when a record does not exist or is not owned by
// the caller. Ownership failures are indistinguishable from absence so that
// record existence never leaks across users.
var ErrNotFound = errors.New("challenge not found")

// ErrUnknownStage is returned when a stage patch names a stage outside the
// six fixed pipeline stages. Unknown stage keys are never added to a record.
var ErrUnknownStage = errors.New("unknown stage")

// CheckpointStore is the persistence contract the pipeline and the API
// consume. Every operation is scoped to the owning user.
type CheckpointStore interface {
	// CreateChallenge inserts a new pending challenge with all six stages
	// pending. An empty title defaults to "Untitled Challenge".
	CreateChallenge(ctx context.Context, ownerID uuid.UUID, title, description string) (uuid.UUID, error)

	// GetChallenge returns the challenge, or ErrNotFound if it does not
	// exist or belongs to another user.
	GetChallenge(ctx context.Context, id, ownerID uuid.UUID) (*types.Challenge, error)

	// ListChallenges returns the owner's challenges, most recent first.
	ListChallenges(ctx context.Context, ownerID uuid.UUID) ([]types.Challenge, error)

	// DeleteChallenge removes the challenge, or ErrNotFound.
	DeleteChallenge(ctx context.Context, id, ownerID uuid.UUID) error

	// SetOverallStatus updates the challenge's overall status.
	SetOverallStatus(ctx context.Context, id, ownerID uuid.UUID, status types.ChallengeStatus) error

	// PatchStage merges one stage's status, and optionally its payload, into
	// the record without disturbing other stages. The write is atomic with
	// respect to concurrent readers. A nil payload updates status only.
	PatchStage(ctx context.Context, id, ownerID uuid.UUID, stage types.Stage, status types.StageStatus, payload any) error
}
