package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"fairdraw/internal/models"
)

type DrawRepository interface {
	CreateDraw(draw *models.Draw) error
	GetDrawByID(id string) (*models.Draw, error)
	GetAllDraws() ([]*models.Draw, error)
	GetDueDraws(now time.Time) ([]*models.Draw, error)
	// TryStartProcessing flips the draw from 'ready' to 'processing' as a
	// single compare-and-set; it returns false when the draw was not in
	// 'ready' state, which guards against concurrent executions.
	TryStartProcessing(id string) (bool, error)
	SetStatus(id, status string) error
	SaveResult(result *models.DrawResult, shortCode string) error
	GetResult(drawID string) (*models.DrawResult, string, error)
}

type drawRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewDrawRepository(db *sqlx.DB, logger *zap.Logger) DrawRepository {
	return &drawRepository{db: db, logger: logger}
}

// drawRow mirrors the draws table; filter_config is stored as JSONB.
type drawRow struct {
	models.Draw
	FilterConfigJSON []byte `db:"filter_config"`
}

func (row *drawRow) toDraw() (*models.Draw, error) {
	draw := row.Draw
	if len(row.FilterConfigJSON) > 0 {
		cfg := &models.FilterConfig{}
		if err := json.Unmarshal(row.FilterConfigJSON, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode filter config: %w", err)
		}
		draw.FilterConfig = cfg
	}
	return &draw, nil
}

func (r *drawRepository) CreateDraw(draw *models.Draw) error {
	cfgJSON, err := json.Marshal(draw.FilterConfig)
	if err != nil {
		return fmt.Errorf("failed to encode filter config: %w", err)
	}
	query := `INSERT INTO draws (id, title, status, winners_count, alternates_count, scheduled_at, auto_run, filter_config)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at`
	return r.db.QueryRowx(query, draw.ID, draw.Title, draw.Status, draw.WinnersCount,
		draw.AlternatesCount, draw.ScheduledAt, draw.AutoRun, cfgJSON).Scan(&draw.CreatedAt)
}

func (r *drawRepository) GetDrawByID(id string) (*models.Draw, error) {
	var row drawRow
	query := `SELECT id, title, status, winners_count, alternates_count, scheduled_at, auto_run, filter_config, created_at
	          FROM draws WHERE id = $1`
	if err := r.db.Get(&row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return row.toDraw()
}

func (r *drawRepository) GetAllDraws() ([]*models.Draw, error) {
	var rows []drawRow
	query := `SELECT id, title, status, winners_count, alternates_count, scheduled_at, auto_run, filter_config, created_at
	          FROM draws ORDER BY created_at DESC`
	if err := r.db.Select(&rows, query); err != nil {
		return nil, err
	}
	draws := make([]*models.Draw, 0, len(rows))
	for i := range rows {
		draw, err := rows[i].toDraw()
		if err != nil {
			r.logger.Error("Failed to decode draw row", zap.String("draw_id", rows[i].ID), zap.Error(err))
			continue
		}
		draws = append(draws, draw)
	}
	return draws, nil
}

func (r *drawRepository) GetDueDraws(now time.Time) ([]*models.Draw, error) {
	var rows []drawRow
	query := `SELECT id, title, status, winners_count, alternates_count, scheduled_at, auto_run, filter_config, created_at
	          FROM draws
	          WHERE status = $1 AND auto_run = TRUE AND scheduled_at IS NOT NULL AND scheduled_at <= $2
	          ORDER BY scheduled_at`
	if err := r.db.Select(&rows, query, models.DrawStatusReady, now); err != nil {
		return nil, err
	}
	draws := make([]*models.Draw, 0, len(rows))
	for i := range rows {
		draw, err := rows[i].toDraw()
		if err != nil {
			r.logger.Error("Failed to decode draw row", zap.String("draw_id", rows[i].ID), zap.Error(err))
			continue
		}
		draws = append(draws, draw)
	}
	return draws, nil
}

func (r *drawRepository) TryStartProcessing(id string) (bool, error) {
	query := `UPDATE draws SET status = $1 WHERE id = $2 AND status = $3`
	res, err := r.db.Exec(query, models.DrawStatusProcessing, id, models.DrawStatusReady)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *drawRepository) SetStatus(id, status string) error {
	query := `UPDATE draws SET status = $1 WHERE id = $2`
	_, err := r.db.Exec(query, status, id)
	return err
}

func (r *drawRepository) SaveResult(result *models.DrawResult, shortCode string) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode draw result: %w", err)
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO draw_results (draw_id, executed_at, total_entries, eligible_count, content_hash, short_code, payload)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.Exec(query, result.DrawID, result.ExecutedAt, result.TotalEntries,
		result.EligibleCount, result.ContentHash, shortCode, payload); err != nil {
		return err
	}

	winnerQuery := `INSERT INTO winners (draw_id, entry_id, identity, username, role, position, seed, selected_at)
	                VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, w := range append(append([]models.Winner{}, result.Winners...), result.Alternates...) {
		if _, err := tx.Exec(winnerQuery, result.DrawID, w.EntryID, w.Identity, w.Username,
			w.Role, w.Position, w.Seed, w.SelectedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *drawRepository) GetResult(drawID string) (*models.DrawResult, string, error) {
	var row struct {
		ShortCode string `db:"short_code"`
		Payload   []byte `db:"payload"`
	}
	query := `SELECT short_code, payload FROM draw_results WHERE draw_id = $1`
	if err := r.db.Get(&row, query, drawID); err != nil {
		if err == sql.ErrNoRows {
			return nil, "", nil
		}
		return nil, "", err
	}

	result := &models.DrawResult{}
	if err := json.Unmarshal(row.Payload, result); err != nil {
		return nil, "", fmt.Errorf("failed to decode draw result: %w", err)
	}
	return result, row.ShortCode, nil
}
