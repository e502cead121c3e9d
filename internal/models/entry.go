package models

import (
	"strings"
	"time"
)

// Entry represents one raw contest submission (platform comment or CSV row)
// before evaluation. Entries are immutable once ingested.
type Entry struct {
	ID        int64      `db:"id" json:"id"`
	DrawID    string     `db:"draw_id" json:"draw_id"`
	ExtID     string     `db:"ext_id" json:"ext_id"` // platform-side comment/row identifier
	Username  string     `db:"username" json:"username"`
	Text      string     `db:"text" json:"text"`
	Timestamp *time.Time `db:"timestamp" json:"timestamp,omitempty"`
	IsReply   bool       `db:"is_reply" json:"is_reply"`
	LikeCount int        `db:"like_count" json:"like_count"`

	// Profile is the optional snapshot captured at collection time.
	// Profile rules are skipped when it is absent.
	Profile *Profile `db:"-" json:"profile,omitempty"`

	// Follows holds pre-verified followed accounts supplied by the
	// collection layer. Follow lookups happen before entries reach the
	// engine, never during evaluation.
	Follows []string `db:"-" json:"follows,omitempty"`

	// SharedStory is set by the collection layer when a story share was
	// detected for this participant.
	SharedStory bool `db:"shared_story" json:"shared_story"`
}

// Identity returns the normalized (lowercased, "@"-stripped) handle used to
// group entries belonging to the same person.
func (e *Entry) Identity() string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e.Username), "@"))
}

// Profile is a participant profile snapshot taken when the entry was
// collected.
type Profile struct {
	Bio            string `json:"bio"`
	HasPicture     bool   `json:"has_picture"`
	FollowerCount  int    `json:"follower_count"`
	FollowingCount int    `json:"following_count"`
	PostCount      int    `json:"post_count"`
	AccountAgeDays int    `json:"account_age_days"`
	Verified       bool   `json:"verified"`
}

// EvaluationResult is the filter pipeline's verdict for a single entry.
// Failing a filter is a normal outcome recorded here, never an error.
type EvaluationResult struct {
	EntryID  int64  `json:"entry_id"`
	Identity string `json:"identity"`
	Passed   bool   `json:"passed"`

	// FailedFilters lists the violated rules as "category.ruleName"
	// identifiers, in evaluation order. Invariant:
	// Passed == (len(FailedFilters) == 0).
	FailedFilters []string `json:"failed_filters"`

	// Warnings carries non-fatal configuration problems (e.g. an
	// exclusion pattern that does not compile).
	Warnings []string `json:"warnings,omitempty"`

	// EntriesCounted is 0 or 1: how many entries this submission
	// contributes to the eligible pool after group reconciliation.
	EntriesCounted int `json:"entries_counted"`

	// BonusMultiplier is >= 1; raised by the story-share bonus.
	BonusMultiplier float64 `json:"bonus_multiplier"`
}

// Fail records a rule violation and downgrades the result.
func (r *EvaluationResult) Fail(rule string) {
	r.Passed = false
	r.EntriesCounted = 0
	r.FailedFilters = append(r.FailedFilters, rule)
}

// Warn attaches a non-fatal warning.
func (r *EvaluationResult) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
