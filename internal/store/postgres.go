package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/perviz24/innovati-x/internal/types"
)

//go:embed schema.sql
var schemaSQL string

// defaultTitle is assigned when a challenge is created without a title.
const defaultTitle = "Untitled Challenge"

// payloadColumns maps each stage to the column holding its payload. The map
// doubles as the whitelist that keeps unknown stage keys out of records.
var payloadColumns = map[types.Stage]string{
	types.StageDecomposition: "decomposition",
	types.StageResearch:      "research",
	types.StageGapAnalysis:   "gap_analysis",
	types.StageInnovation:    "solutions",
	types.StageScoring:       "scoring",
	types.StagePatent:        "patent_landscape",
}

// Postgres implements CheckpointStore on a pgx connection pool. Single-row
// UPDATEs give PatchStage its atomicity with respect to concurrent readers.
type Postgres struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool and verifies it.
func Connect(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// Migrate applies the embedded schema. Statements are idempotent.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// CreateChallenge inserts a new pending challenge with every stage pending.
func (p *Postgres) CreateChallenge(ctx context.Context, ownerID uuid.UUID, title, description string) (uuid.UUID, error) {
	if title == "" {
		title = defaultTitle
	}
	stages, err := json.Marshal(types.NewStageMap())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal stage map: %w", err)
	}

	var id uuid.UUID
	err = p.pool.QueryRow(ctx,
		`INSERT INTO challenges (user_id, title, description, status, stages)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		ownerID, title, description, types.ChallengePending, stages,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create challenge: %w", err)
	}
	return id, nil
}

const challengeColumns = `id, user_id, title, description, status, stages,
	decomposition, research, gap_analysis, solutions, scoring, patent_landscape,
	created_at, updated_at`

// GetChallenge returns the full record, owner-scoped.
func (p *Postgres) GetChallenge(ctx context.Context, id, ownerID uuid.UUID) (*types.Challenge, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+challengeColumns+`
		 FROM challenges WHERE id = $1 AND user_id = $2`,
		id, ownerID,
	)

	challenge, err := scanChallenge(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return challenge, nil
}

// ListChallenges returns the owner's challenges, most recent first. Stage
// payloads are omitted from listings; fetch a single record for those.
func (p *Postgres) ListChallenges(ctx context.Context, ownerID uuid.UUID) ([]types.Challenge, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, user_id, title, description, status, stages, created_at, updated_at
		 FROM challenges WHERE user_id = $1
		 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	defer rows.Close()

	var challenges []types.Challenge
	for rows.Next() {
		var c types.Challenge
		var stages []byte
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.Description, &c.Status,
			&stages, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		if err := json.Unmarshal(stages, &c.Stages); err != nil {
			return nil, fmt.Errorf("failed to decode stage map: %w", err)
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

// DeleteChallenge removes the record, owner-scoped.
func (p *Postgres) DeleteChallenge(ctx context.Context, id, ownerID uuid.UUID) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM challenges WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetOverallStatus updates the overall status, owner-scoped.
func (p *Postgres) SetOverallStatus(ctx context.Context, id, ownerID uuid.UUID, status types.ChallengeStatus) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE challenges SET status = $3, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2`,
		id, ownerID, status)
	if err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PatchStage merges one stage's status (and payload, if present) into the
// record in a single UPDATE.
func (p *Postgres) PatchStage(ctx context.Context, id, ownerID uuid.UUID, stage types.Stage, status types.StageStatus, payload any) error {
	column, ok := payloadColumns[stage]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStage, stage)
	}

	query := `UPDATE challenges
		 SET stages = jsonb_set(stages, ARRAY[$3], to_jsonb($4::text)), updated_at = NOW()`
	args := []any{id, ownerID, string(stage), string(status)}

	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", stage, err)
		}
		// column comes from the stage whitelist above, never from input.
		query += fmt.Sprintf(", %s = $5", column)
		args = append(args, body)
	}
	query += ` WHERE id = $1 AND user_id = $2`

	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to patch stage %s: %w", stage, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanChallenge decodes a full challenge row including stage payloads.
func scanChallenge(row pgx.Row) (*types.Challenge, error) {
	var c types.Challenge
	var stages []byte
	var decomposition, research, gapAnalysis, solutions, scoring, patent []byte

	err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.Description, &c.Status, &stages,
		&decomposition, &research, &gapAnalysis, &solutions, &scoring, &patent,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(stages, &c.Stages); err != nil {
		return nil, fmt.Errorf("failed to decode stage map: %w", err)
	}
	if err := decodeInto(decomposition, &c.Decomposition); err != nil {
		return nil, err
	}
	if err := decodeInto(research, &c.Research); err != nil {
		return nil, err
	}
	if err := decodeInto(gapAnalysis, &c.GapAnalysis); err != nil {
		return nil, err
	}
	if err := decodeInto(solutions, &c.Solutions); err != nil {
		return nil, err
	}
	if err := decodeInto(scoring, &c.Scoring); err != nil {
		return nil, err
	}
	if err := decodeInto(patent, &c.PatentLandscape); err != nil {
		return nil, err
	}
	return &c, nil
}

// decodeInto unmarshals a nullable jsonb column, leaving the target zero
// when the column is NULL.
func decodeInto(raw []byte, target any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("failed to decode payload column: %w", err)
	}
	return nil
}
