package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/convene/convene/internal/repo"
)

// Repository is a sqlite-backed repo.Repository.
type Repository struct {
	db *sql.DB
}

// New opens and migrates a sqlite database at path and returns a
// ready-to-use Repository.
func New(path string) (*Repository, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) SaveMessage(ctx context.Context, roomID, agentID, name, role, content string, ts int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (room_id, agent_id, name, role, content, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		roomID, agentID, name, role, content, ts)
	return err
}

func (r *Repository) SaveProposal(ctx context.Context, roomID string, p repo.Proposal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO proposals (id, room_id, title, description, proposer_id, proposer_name, threshold, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, roomID, p.Title, p.Description, p.ProposerID, p.ProposerName, p.Threshold, p.Status, p.CreatedAt)
	return err
}

func (r *Repository) UpdateProposalStatus(ctx context.Context, proposalID, status string, resolvedAt int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE proposals SET status = ?, resolved_at = ? WHERE id = ?`,
		status, resolvedAt, proposalID)
	return err
}

func (r *Repository) SaveVote(ctx context.Context, proposalID, agentID, name, voteType, rationale string, ts int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO votes (proposal_id, agent_id, name, vote_type, rationale, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		proposalID, agentID, name, voteType, rationale, ts)
	return err
}

func (r *Repository) SaveAgentMetadata(ctx context.Context, roomID string, m repo.AgentMetadata) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO agent_metadata (room_id, agent_id, blob, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (room_id, agent_id) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at`,
		roomID, m.AgentID, string(m.Blob), m.UpdatedAt)
	return err
}

func (r *Repository) DeleteAgentMetadata(ctx context.Context, roomID, agentID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM agent_metadata WHERE room_id = ? AND agent_id = ?`, roomID, agentID)
	return err
}

func (r *Repository) Close() error {
	return r.db.Close()
}

var _ repo.Repository = (*Repository)(nil)
