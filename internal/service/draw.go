package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fairdraw/internal/filter"
	"fairdraw/internal/models"
	"fairdraw/internal/repository"
	"fairdraw/internal/selection"
	"fairdraw/internal/verification"
)

var (
	ErrDrawNotFound   = errors.New("draw not found")
	ErrDrawNotReady   = errors.New("draw is not ready for execution")
	ErrAlreadyRunning = errors.New("draw is already executing")
	ErrNoResult       = errors.New("draw has no result yet")
)

type DrawService interface {
	CreateDraw(title string, winners, alternates int, scheduledAt *time.Time, autoRun bool, cfg *models.FilterConfig) (*models.Draw, error)
	GetDraw(id string) (*models.Draw, error)
	ListDraws() ([]*models.Draw, error)
	// ListDueDraws returns ready auto-run draws whose scheduled time has
	// passed; used by the scheduler.
	ListDueDraws(now time.Time) ([]*models.Draw, error)
	IngestEntries(drawID string, entries []*models.Entry) (int, error)
	// Evaluate runs the filter pipeline without selecting winners, for
	// audit/preview surfaces. It does not change draw state.
	Evaluate(drawID string) (*filter.Outcome, error)
	// Execute runs the full draw: filter, select, hash, persist. The
	// ready → processing transition and the Redis lease guarantee a draw
	// never executes twice concurrently.
	Execute(ctx context.Context, drawID string) (*models.DrawResult, error)
	GetResult(drawID string) (*models.DrawResult, string, error)
	// VerifyResult recomputes the stored result's hash and compares it
	// to the claimed value.
	VerifyResult(drawID, claimedHash string) (bool, string, error)
}

// ExecutionLocker is the cross-instance draw execution lease; satisfied
// by drawlock.Locker.
type ExecutionLocker interface {
	Acquire(ctx context.Context, drawID string) (bool, error)
	Release(ctx context.Context, drawID string) error
}

type drawService struct {
	draws    repository.DrawRepository
	entries  repository.EntryRepository
	selector *selection.Engine
	locker   ExecutionLocker
	logger   *zap.Logger
}

func NewDrawService(draws repository.DrawRepository, entries repository.EntryRepository, locker ExecutionLocker, logger *zap.Logger) DrawService {
	return &drawService{
		draws:    draws,
		entries:  entries,
		selector: selection.NewEngine(logger),
		locker:   locker,
		logger:   logger,
	}
}

func (s *drawService) CreateDraw(title string, winners, alternates int, scheduledAt *time.Time, autoRun bool, cfg *models.FilterConfig) (*models.Draw, error) {
	if cfg == nil {
		cfg = &models.FilterConfig{}
	}
	cfg.ApplyDefaults()

	draw := &models.Draw{
		ID:              uuid.NewString(),
		Title:           title,
		Status:          models.DrawStatusReady,
		WinnersCount:    winners,
		AlternatesCount: alternates,
		ScheduledAt:     scheduledAt,
		AutoRun:         autoRun,
		FilterConfig:    cfg,
	}
	if err := s.draws.CreateDraw(draw); err != nil {
		s.logger.Error("Failed to create draw", zap.Error(err))
		return nil, fmt.Errorf("failed to create draw: %w", err)
	}

	s.logger.Info("Draw created",
		zap.String("draw_id", draw.ID),
		zap.String("title", draw.Title),
		zap.Int("winners", winners),
		zap.Int("alternates", alternates))
	return draw, nil
}

func (s *drawService) GetDraw(id string) (*models.Draw, error) {
	draw, err := s.draws.GetDrawByID(id)
	if err != nil {
		return nil, err
	}
	if draw == nil {
		return nil, ErrDrawNotFound
	}
	return draw, nil
}

func (s *drawService) ListDraws() ([]*models.Draw, error) {
	return s.draws.GetAllDraws()
}

func (s *drawService) ListDueDraws(now time.Time) ([]*models.Draw, error) {
	return s.draws.GetDueDraws(now)
}

func (s *drawService) IngestEntries(drawID string, entries []*models.Entry) (int, error) {
	if _, err := s.GetDraw(drawID); err != nil {
		return 0, err
	}
	if err := s.entries.SaveEntries(drawID, entries); err != nil {
		s.logger.Error("Failed to save entries", zap.String("draw_id", drawID), zap.Error(err))
		return 0, fmt.Errorf("failed to save entries: %w", err)
	}
	return s.entries.CountEntries(drawID)
}

func (s *drawService) Evaluate(drawID string) (*filter.Outcome, error) {
	draw, err := s.GetDraw(drawID)
	if err != nil {
		return nil, err
	}
	entries, err := s.entries.GetEntriesByDraw(drawID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}
	pipeline := filter.NewPipeline(draw.FilterConfig, s.logger)
	return pipeline.Run(entries), nil
}

func (s *drawService) Execute(ctx context.Context, drawID string) (*models.DrawResult, error) {
	draw, err := s.GetDraw(drawID)
	if err != nil {
		return nil, err
	}

	acquired, err := s.locker.Acquire(ctx, drawID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrAlreadyRunning
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), drawID); err != nil {
			s.logger.Error("Failed to release draw lock", zap.String("draw_id", drawID), zap.Error(err))
		}
	}()

	started, err := s.draws.TryStartProcessing(drawID)
	if err != nil {
		return nil, fmt.Errorf("failed to transition draw state: %w", err)
	}
	if !started {
		return nil, ErrDrawNotReady
	}

	result, err := s.run(draw)
	if err != nil {
		if stErr := s.draws.SetStatus(drawID, models.DrawStatusFailed); stErr != nil {
			s.logger.Error("Failed to mark draw failed", zap.String("draw_id", drawID), zap.Error(stErr))
		}
		return nil, err
	}

	if err := s.draws.SetStatus(drawID, models.DrawStatusCompleted); err != nil {
		s.logger.Error("Failed to mark draw completed", zap.String("draw_id", drawID), zap.Error(err))
	}
	return result, nil
}

// run is the single-pass batch computation: entries in, hashed
// DrawResult out. It performs no I/O besides loading entries and saving
// the result.
func (s *drawService) run(draw *models.Draw) (*models.DrawResult, error) {
	entries, err := s.entries.GetEntriesByDraw(draw.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}

	pipeline := filter.NewPipeline(draw.FilterConfig, s.logger)
	outcome := pipeline.Run(entries)

	selected, err := s.selector.Select(outcome.Eligible, draw.WinnersCount, draw.AlternatesCount)
	if err != nil {
		return nil, err
	}

	participants := make([]string, 0, len(outcome.Eligible))
	for _, e := range outcome.Eligible {
		participants = append(participants, e.Identity())
	}

	result := &models.DrawResult{
		DrawID:        draw.ID,
		ExecutedAt:    time.Now().UTC(),
		TotalEntries:  len(entries),
		EligibleCount: len(outcome.Eligible),
		Participants:  participants,
		Winners:       selected.Winners,
		Alternates:    selected.Alternates,
		FilterConfig:  *draw.FilterConfig,
		Algorithm:     selection.Algorithm,
	}

	hash, err := verification.Hash(result)
	if err != nil {
		return nil, fmt.Errorf("failed to hash draw result: %w", err)
	}
	result.ContentHash = hash

	if err := s.draws.SaveResult(result, verification.ShortCode(hash)); err != nil {
		return nil, fmt.Errorf("failed to save draw result: %w", err)
	}

	s.logger.Info("Draw executed",
		zap.String("draw_id", draw.ID),
		zap.Int("total_entries", result.TotalEntries),
		zap.Int("eligible", result.EligibleCount),
		zap.String("content_hash", hash))
	return result, nil
}

func (s *drawService) GetResult(drawID string) (*models.DrawResult, string, error) {
	result, shortCode, err := s.draws.GetResult(drawID)
	if err != nil {
		return nil, "", err
	}
	if result == nil {
		return nil, "", ErrNoResult
	}
	return result, shortCode, nil
}

func (s *drawService) VerifyResult(drawID, claimedHash string) (bool, string, error) {
	result, _, err := s.GetResult(drawID)
	if err != nil {
		return false, "", err
	}

	ok, err := verification.Verify(result, claimedHash)
	if err != nil {
		return false, "", err
	}
	if ok {
		return true, "Result hash matches: the published outcome is intact.", nil
	}
	return false, "Result hash does NOT match: the outcome differs from the published record.", nil
}
