package models

import "time"

// Draw statuses. A draw moves ready → processing → completed; the
// ready → processing edge is a compare-and-set so the engine is never
// invoked twice concurrently for the same draw.
const (
	DrawStatusReady      = "ready"
	DrawStatusProcessing = "processing"
	DrawStatusCompleted  = "completed"
	DrawStatusFailed     = "failed"
)

// Draw represents a giveaway draw stored in the 'draws' table.
type Draw struct {
	ID              string        `db:"id" json:"id"`
	Title           string        `db:"title" json:"title"`
	Status          string        `db:"status" json:"status"`
	WinnersCount    int           `db:"winners_count" json:"winners_count"`
	AlternatesCount int           `db:"alternates_count" json:"alternates_count"`
	ScheduledAt     *time.Time    `db:"scheduled_at" json:"scheduled_at,omitempty"`
	AutoRun         bool          `db:"auto_run" json:"auto_run"`
	FilterConfig    *FilterConfig `db:"-" json:"filter_config,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
}

// Winner is one selected entry, either a winner proper or an alternate.
type Winner struct {
	EntryID    int64     `json:"entry_id"`
	Identity   string    `json:"identity"`
	Username   string    `json:"username"`
	Position   int       `json:"position"` // 1-based within its role
	Role       string    `json:"role"`     // "winner" or "alternate"
	Seed       string    `json:"seed"`     // audit label, not a replay key
	SelectedAt time.Time `json:"selected_at"`
}

// Winner roles.
const (
	RoleWinner    = "winner"
	RoleAlternate = "alternate"
)

// DrawResult is the durable outcome of a completed draw and the basis
// for all later verification. Immutable after creation.
type DrawResult struct {
	DrawID        string       `json:"draw_id"`
	ExecutedAt    time.Time    `json:"executed_at"`
	TotalEntries  int          `json:"total_entries"`
	EligibleCount int          `json:"eligible_count"`
	Participants  []string     `json:"participants"` // eligible identities
	Winners       []Winner     `json:"winners"`
	Alternates    []Winner     `json:"alternates"`
	FilterConfig  FilterConfig `json:"filter_config"`
	Algorithm     string       `json:"algorithm"`
	ContentHash   string       `json:"content_hash,omitempty"`
}
