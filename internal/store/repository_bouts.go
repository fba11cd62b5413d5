package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
)

func (s *Store) GetBout(ctx context.Context, id string) (*Bout, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, status, preset_id, agent_lineup, topic, response_length,
		       response_format, max_turns, transcript, share_line, owner_id,
		       created_at, updated_at
		FROM bouts WHERE id = $1
	`, id)
	var (
		b          Bout
		lineupJSON []byte
		topic      *string
		transJSON  []byte
	)
	err := row.Scan(&b.ID, &b.Status, &b.PresetID, &lineupJSON, &topic,
		&b.ResponseLength, &b.ResponseFormat, &b.MaxTurns, &transJSON,
		&b.ShareLine, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if topic != nil {
		b.Topic = *topic
	}
	if len(lineupJSON) > 0 {
		_ = json.Unmarshal(lineupJSON, &b.AgentLineup)
	}
	if len(transJSON) > 0 {
		if err := json.Unmarshal(transJSON, &b.Transcript); err != nil {
			return nil, err
		}
	}
	return &b, nil
}

type InsertBoutParams struct {
	ID             string
	PresetID       string
	Topic          string
	ResponseLength string
	ResponseFormat string
	OwnerID        *string
	AgentLineup    []LineupAgent
	MaxTurns       *int
}

// InsertBoutRunning creates the bout row in running status with an empty
// transcript. A racing create for the same id is a silent no-op; the
// validator's prior state check decides whether that is a conflict.
func (s *Store) InsertBoutRunning(ctx context.Context, p InsertBoutParams) error {
	var topic *string
	if p.Topic != "" {
		topic = &p.Topic
	}
	var lineupJSON []byte
	if len(p.AgentLineup) > 0 {
		var err error
		lineupJSON, err = json.Marshal(p.AgentLineup)
		if err != nil {
			return err
		}
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO bouts (id, status, preset_id, agent_lineup, topic,
		                   response_length, response_format, max_turns,
		                   transcript, owner_id)
		VALUES ($1, 'running', $2, $3, $4, $5, $6, $7, '[]'::jsonb, $8)
		ON CONFLICT (id) DO NOTHING
	`, p.ID, p.PresetID, lineupJSON, topic, p.ResponseLength, p.ResponseFormat, p.MaxTurns, p.OwnerID)
	return err
}

// MarkBoutRunning re-arms an existing row at the start of a run (retry of
// an errored bout reuses the row).
func (s *Store) MarkBoutRunning(ctx context.Context, id, topic, length, format string) error {
	var topicPtr *string
	if topic != "" {
		topicPtr = &topic
	}
	_, err := s.Pool.Exec(ctx, `
		UPDATE bouts
		SET status = 'running', topic = $2, response_length = $3,
		    response_format = $4, updated_at = now()
		WHERE id = $1
	`, id, topicPtr, length, format)
	return err
}

func (s *Store) UpdateBoutCompleted(ctx context.Context, id string, transcript []TranscriptEntry, shareLine *string) error {
	transJSON, err := json.Marshal(transcript)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `
		UPDATE bouts
		SET status = 'completed', transcript = $2, share_line = $3, updated_at = now()
		WHERE id = $1
	`, id, transJSON, shareLine)
	return err
}

func (s *Store) UpdateBoutError(ctx context.Context, id string, transcript []TranscriptEntry) error {
	transJSON, err := json.Marshal(transcript)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `
		UPDATE bouts
		SET status = 'error', transcript = $2, updated_at = now()
		WHERE id = $1
	`, id, transJSON)
	return err
}
