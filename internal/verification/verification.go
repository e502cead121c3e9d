// Package verification reduces a completed draw to an order-independent
// canonical form and computes the content hash third parties use to
// check a published result without trusting the operator.
package verification

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"fairdraw/internal/models"
)

// ShortCodeLen is the length of the cosmetic display code derived from a
// content hash.
const ShortCodeLen = 12

// canonicalWinner is the fixed winner field subset included in the hash.
type canonicalWinner struct {
	Identity string `json:"identity"`
	Position int    `json:"position"`
	Seed     string `json:"seed"`
}

// canonicalResult is the explicitly enumerated field subset hashing
// operates on. Fields outside this structure never affect the hash.
type canonicalResult struct {
	DrawID       string            `json:"draw_id"`
	ExecutedAt   string            `json:"executed_at"`
	Participants []string          `json:"participants"`
	Winners      []canonicalWinner `json:"winners"`
	Alternates   []canonicalWinner `json:"alternates"`
	FilterConfig json.RawMessage   `json:"filter_config"`
	Algorithm    string            `json:"algorithm"`
}

// Hash computes the 256-bit content hash of a draw result as 64 lowercase
// hex characters. The same DrawResult always produces the same hash, and
// incidental list-order differences upstream do not change it.
func Hash(r *models.DrawResult) (string, error) {
	canon, err := canonicalize(r)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(canon)
	if err != nil {
		return "", fmt.Errorf("failed to serialize canonical result: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// Verify recomputes the hash of a draw result and compares it to the
// claimed value in constant time. Any single-field mutation of the
// hashed subset yields false.
func Verify(r *models.DrawResult, claimedHash string) (bool, error) {
	computed, err := Hash(r)
	if err != nil {
		return false, err
	}
	claimed := strings.ToLower(strings.TrimSpace(claimedHash))
	if len(claimed) != len(computed) {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(claimed)) == 1, nil
}

// ShortCode derives the display code shown on certificates: the first 12
// hex characters, uppercased. Cosmetic only; never used for verification
// decisions.
func ShortCode(hash string) string {
	if len(hash) < ShortCodeLen {
		return strings.ToUpper(hash)
	}
	return strings.ToUpper(hash[:ShortCodeLen])
}

func canonicalize(r *models.DrawResult) (*canonicalResult, error) {
	participants := append([]string(nil), r.Participants...)
	sort.Strings(participants)

	cfg, err := canonicalJSON(r.FilterConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize filter config: %w", err)
	}

	return &canonicalResult{
		DrawID:       r.DrawID,
		ExecutedAt:   r.ExecutedAt.UTC().Format(time.RFC3339),
		Participants: participants,
		Winners:      canonicalWinners(r.Winners),
		Alternates:   canonicalWinners(r.Alternates),
		FilterConfig: cfg,
		Algorithm:    r.Algorithm,
	}, nil
}

func canonicalWinners(ws []models.Winner) []canonicalWinner {
	out := make([]canonicalWinner, 0, len(ws))
	for _, w := range ws {
		out = append(out, canonicalWinner{Identity: w.Identity, Position: w.Position, Seed: w.Seed})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// canonicalJSON serializes v with sorted keys at every object level by
// round-tripping through an untyped map: encoding/json writes map keys
// in sorted order, which makes the byte form independent of struct field
// order.
func canonicalJSON(v interface{}) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var untyped interface{}
	if err := json.Unmarshal(raw, &untyped); err != nil {
		return nil, err
	}
	return json.Marshal(untyped)
}
