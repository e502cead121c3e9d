package models

import "time"

// Filter rule identifiers recorded in EvaluationResult.FailedFilters.
const (
	RuleRequireComment    = "participation.requireComment"
	RuleReplyHandling     = "participation.replyHandling"
	RuleDateRange         = "participation.dateRange"
	RuleMinMentions       = "mentions.minMentions"
	RuleRequiredMentions  = "mentions.requiredMentions"
	RuleRequiredKeywords  = "keywords.required"
	RuleForbiddenKeywords = "keywords.forbidden"
	RuleRequireBio        = "profile.requireBio"
	RuleRequirePicture    = "profile.requireProfilePicture"
	RuleMinAccountAge     = "profile.minAccountAge"
	RuleMinPosts          = "profile.minPosts"
	RuleMaxFollowings     = "profile.maxFollowings"
	RuleMinFollowers      = "profile.minFollowers"
	RuleRequireVerified   = "profile.requireVerified"
	RuleBioForbiddenWords = "profile.bioForbiddenWords"
	RuleBlacklist         = "antiBot.blacklist"
	RuleExcludePatterns   = "antiBot.excludePatterns"
	RuleLinkedAccounts    = "antiBot.linkedAccounts"
	RuleSimilarUsernames  = "antiBot.excludeSimilarUsernames"
	RuleMaxEntriesPerUser = "multiComment.maxEntriesPerUser"
	RuleDuplicateComments = "multiComment.removeDuplicateComments"
	RuleRequiredFollows   = "followVerification.requiredFollows"
)

// Reply handling policies.
const (
	ReplyInclude     = "include"
	ReplyExclude     = "exclude"
	ReplyOnlyReplies = "only_replies"
)

// Keyword match modes.
const (
	MatchAny = "any"
	MatchAll = "all"
)

// Tie-break rules for multi-comment selection.
const (
	SelectFirst  = "first"
	SelectLast   = "last"
	SelectRandom = "random"
)

// Username similarity modes.
const (
	SimilarityStandard = "standard"
	SimilarityStrict   = "strict"
)

// Follow verification modes.
const (
	FollowVerified    = "verified"
	FollowDeclarative = "declarative"
)

// FilterConfig is the per-draw rule tree. Optional scalar knobs are
// pointers so a missing field falls back to its default instead of
// silently becoming the zero value; ApplyDefaults fills them in.
type FilterConfig struct {
	Participation      ParticipationConfig      `json:"participation"`
	Mentions           MentionsConfig           `json:"mentions"`
	Keywords           KeywordsConfig           `json:"keywords"`
	MultiComment       MultiCommentConfig       `json:"multiComment"`
	Profile            ProfileConfig            `json:"profile"`
	AntiBot            AntiBotConfig            `json:"antiBot"`
	FollowVerification FollowVerificationConfig `json:"followVerification"`
}

type ParticipationConfig struct {
	RequireComment bool       `json:"requireComment"`
	ReplyHandling  *string    `json:"replyHandling,omitempty"` // include|exclude|only_replies
	DateRange      *DateRange `json:"dateRange,omitempty"`
}

type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

type MentionsConfig struct {
	MinMentions        int      `json:"minMentions"`
	UniqueMentionsOnly bool     `json:"uniqueMentionsOnly"`
	ExcludeAutoMention bool     `json:"excludeAutoMention"`
	RequiredMentions   []string `json:"requiredMentions,omitempty"`
}

type KeywordsConfig struct {
	Required      []string `json:"required,omitempty"`
	RequiredMode  *string  `json:"requiredMode,omitempty"` // any|all
	Forbidden     []string `json:"forbidden,omitempty"`
	CaseSensitive bool     `json:"caseSensitive"`
}

type MultiCommentConfig struct {
	MaxEntriesPerUser       *int    `json:"maxEntriesPerUser,omitempty"` // nil = unlimited
	AllowIfDifferentMention bool    `json:"allowIfDifferentMentions"`
	CommentSelection        *string `json:"commentSelection,omitempty"` // first|last|random
	RemoveDuplicateComments bool    `json:"removeDuplicateComments"`
}

type ProfileConfig struct {
	RequireBio            BioRequirement `json:"requireBio"`
	RequireProfilePicture bool           `json:"requireProfilePicture"`
	MinAccountAge         *int           `json:"minAccountAge,omitempty"` // days
	MinPosts              *int           `json:"minPosts,omitempty"`
	MaxFollowings         *int           `json:"maxFollowings,omitempty"`
	MinFollowers          *int           `json:"minFollowers,omitempty"`
	RequireVerified       bool           `json:"requireVerified"`
	BioForbiddenWords     []string       `json:"bioForbiddenWords,omitempty"`
}

type BioRequirement struct {
	Enabled   bool `json:"enabled"`
	MinLength int  `json:"minLength"`
}

type AntiBotConfig struct {
	ExcludeSimilarUsernames SimilarityConfig `json:"excludeSimilarUsernames"`
	LinkedAccounts          []LinkedAccounts `json:"linkedAccounts,omitempty"`
	Blacklist               []string         `json:"blacklist,omitempty"`
	ExcludePatterns         []string         `json:"excludePatterns,omitempty"`
}

type SimilarityConfig struct {
	Enabled   bool     `json:"enabled"`
	Mode      *string  `json:"mode,omitempty"` // standard|strict
	Threshold *float64 `json:"threshold,omitempty"`
}

// LinkedAccounts is an operator-declared alias group: entries from any
// handle in Linked never count, regardless of individual rule results.
type LinkedAccounts struct {
	Primary string   `json:"primary"`
	Linked  []string `json:"linked"`
}

type FollowVerificationConfig struct {
	RequiredFollows RequiredFollows `json:"requiredFollows"`
	StoryBonus      StoryBonus      `json:"storyBonus"`
}

type RequiredFollows struct {
	Accounts []string `json:"accounts,omitempty"`
	Mode     *string  `json:"mode,omitempty"` // verified|declarative
}

type StoryBonus struct {
	Enabled            bool    `json:"enabled"`
	Multiplier         float64 `json:"multiplier"`
	VerificationMethod string  `json:"verificationMethod"`
}

// Defaults applied by ApplyDefaults.
const (
	DefaultReplyHandling       = ReplyInclude
	DefaultRequiredMode        = MatchAny
	DefaultCommentSelection    = SelectFirst
	DefaultSimilarityMode      = SimilarityStandard
	DefaultSimilarityThreshold = 0.85
	DefaultFollowMode          = FollowDeclarative
)

// ApplyDefaults fills every unset optional field with its documented
// default so downstream code can dereference freely.
func (c *FilterConfig) ApplyDefaults() {
	if c.Participation.ReplyHandling == nil {
		c.Participation.ReplyHandling = strPtr(DefaultReplyHandling)
	}
	if c.Keywords.RequiredMode == nil {
		c.Keywords.RequiredMode = strPtr(DefaultRequiredMode)
	}
	if c.MultiComment.CommentSelection == nil {
		c.MultiComment.CommentSelection = strPtr(DefaultCommentSelection)
	}
	if c.AntiBot.ExcludeSimilarUsernames.Mode == nil {
		c.AntiBot.ExcludeSimilarUsernames.Mode = strPtr(DefaultSimilarityMode)
	}
	if c.AntiBot.ExcludeSimilarUsernames.Threshold == nil {
		t := DefaultSimilarityThreshold
		c.AntiBot.ExcludeSimilarUsernames.Threshold = &t
	}
	if c.FollowVerification.RequiredFollows.Mode == nil {
		c.FollowVerification.RequiredFollows.Mode = strPtr(DefaultFollowMode)
	}
	if c.FollowVerification.StoryBonus.Multiplier == 0 {
		c.FollowVerification.StoryBonus.Multiplier = 1
	}
}

func strPtr(s string) *string { return &s }
