package repository

import (
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"fairdraw/internal/models"
)

type EntryRepository interface {
	SaveEntries(drawID string, entries []*models.Entry) error
	GetEntriesByDraw(drawID string) ([]*models.Entry, error)
	CountEntries(drawID string) (int, error)
}

type entryRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewEntryRepository(db *sqlx.DB, logger *zap.Logger) EntryRepository {
	return &entryRepository{db: db, logger: logger}
}

// entryRow mirrors the entries table; the profile snapshot and verified
// follow list are stored as JSONB.
type entryRow struct {
	models.Entry
	ProfileJSON []byte `db:"profile"`
	FollowsJSON []byte `db:"follows"`
}

func (row *entryRow) toEntry() (*models.Entry, error) {
	e := row.Entry
	if len(row.ProfileJSON) > 0 {
		prof := &models.Profile{}
		if err := json.Unmarshal(row.ProfileJSON, prof); err != nil {
			return nil, fmt.Errorf("failed to decode profile snapshot: %w", err)
		}
		e.Profile = prof
	}
	if len(row.FollowsJSON) > 0 {
		if err := json.Unmarshal(row.FollowsJSON, &e.Follows); err != nil {
			return nil, fmt.Errorf("failed to decode follow list: %w", err)
		}
	}
	return &e, nil
}

func (r *entryRepository) SaveEntries(drawID string, entries []*models.Entry) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO entries (draw_id, ext_id, username, text, timestamp, is_reply, like_count, shared_story, profile, follows)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	for _, e := range entries {
		var profileJSON, followsJSON []byte
		if e.Profile != nil {
			if profileJSON, err = json.Marshal(e.Profile); err != nil {
				return fmt.Errorf("failed to encode profile snapshot: %w", err)
			}
		}
		if len(e.Follows) > 0 {
			if followsJSON, err = json.Marshal(e.Follows); err != nil {
				return fmt.Errorf("failed to encode follow list: %w", err)
			}
		}
		if err := tx.QueryRowx(query, drawID, e.ExtID, e.Username, e.Text, e.Timestamp,
			e.IsReply, e.LikeCount, e.SharedStory, profileJSON, followsJSON).Scan(&e.ID); err != nil {
			return err
		}
		e.DrawID = drawID
	}

	return tx.Commit()
}

func (r *entryRepository) GetEntriesByDraw(drawID string) ([]*models.Entry, error) {
	var rows []entryRow
	query := `SELECT id, draw_id, ext_id, username, text, timestamp, is_reply, like_count, shared_story, profile, follows
	          FROM entries WHERE draw_id = $1 ORDER BY id`
	if err := r.db.Select(&rows, query, drawID); err != nil {
		return nil, err
	}

	entries := make([]*models.Entry, 0, len(rows))
	for i := range rows {
		e, err := rows[i].toEntry()
		if err != nil {
			r.logger.Error("Failed to decode entry row", zap.Int64("entry_id", rows[i].ID), zap.Error(err))
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *entryRepository) CountEntries(drawID string) (int, error) {
	var count int
	err := r.db.Get(&count, `SELECT COUNT(*) FROM entries WHERE draw_id = $1`, drawID)
	if err != nil {
		return 0, err
	}
	return count, nil
}
