// Package selection draws winners and alternates from an eligible pool
// with a cryptographically secure shuffle.
package selection

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"fairdraw/internal/models"
)

// Algorithm identifies the selection procedure; it is embedded in every
// DrawResult and participates in the content hash.
const Algorithm = "fisher-yates-csprng/v1"

const seedBytes = 16

// CapacityError reports a pool too small for the requested counts. It is
// fatal to the draw; no partial result is ever produced.
type CapacityError struct {
	Eligible  int
	Requested int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("not enough eligible participants: have %d, need %d", e.Eligible, e.Requested)
}

// Result holds the ordered winners and alternates plus the master seed
// recorded for audit.
type Result struct {
	Winners    []models.Winner
	Alternates []models.Winner
	MasterSeed string
}

// Engine performs winner selection.
type Engine struct {
	logger *zap.Logger
}

func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{logger: logger}
}

// Select shuffles a copy of the eligible pool with Fisher-Yates driven by
// direct crypto/rand draws and slices winners then alternates off the
// front. The master seed is an audit label only: the permutation comes
// from the secure draws themselves and cannot be replayed from the seed.
func (s *Engine) Select(pool []*models.Entry, winnersCount, alternatesCount int) (*Result, error) {
	needed := winnersCount + alternatesCount
	if len(pool) < needed {
		return nil, &CapacityError{Eligible: len(pool), Requested: needed}
	}

	masterSeed, err := newMasterSeed()
	if err != nil {
		return nil, fmt.Errorf("failed to generate master seed: %w", err)
	}

	shuffled := make([]*models.Entry, len(pool))
	copy(shuffled, pool)
	for i := len(shuffled) - 1; i >= 1; i-- {
		j, err := secureIntn(i + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to draw random index: %w", err)
		}
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	now := time.Now().UTC()
	res := &Result{MasterSeed: masterSeed}
	for i := 0; i < winnersCount; i++ {
		res.Winners = append(res.Winners, pick(shuffled[i], i+1, models.RoleWinner, masterSeed, now))
	}
	for i := 0; i < alternatesCount; i++ {
		res.Alternates = append(res.Alternates, pick(shuffled[winnersCount+i], i+1, models.RoleAlternate, masterSeed, now))
	}

	s.logger.Info("Selection completed",
		zap.Int("pool", len(pool)),
		zap.Int("winners", winnersCount),
		zap.Int("alternates", alternatesCount),
		zap.String("master_seed", masterSeed))

	return res, nil
}

func pick(e *models.Entry, position int, role, masterSeed string, at time.Time) models.Winner {
	return models.Winner{
		EntryID:    e.ID,
		Identity:   e.Identity(),
		Username:   e.Username,
		Position:   position,
		Role:       role,
		Seed:       fmt.Sprintf("%s-%s-%d", masterSeed, role, position),
		SelectedAt: at,
	}
}

func newMasterSeed() (string, error) {
	buf := make([]byte, seedBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// secureIntn draws a uniform integer in [0, n) from crypto/rand.
func secureIntn(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
