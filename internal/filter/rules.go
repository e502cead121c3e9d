package filter

import (
	"strings"

	"fairdraw/internal/extract"
	"fairdraw/internal/models"
)

// evaluateEntry applies every per-entry rule category in order. All
// checks run independently and every violation is recorded, so callers
// see the full failure set rather than the first hit.
func (p *Pipeline) evaluateEntry(e *models.Entry) *models.EvaluationResult {
	r := &models.EvaluationResult{
		EntryID:         e.ID,
		Identity:        e.Identity(),
		Passed:          true,
		FailedFilters:   []string{},
		EntriesCounted:  1,
		BonusMultiplier: 1,
	}
	r.Warnings = append(r.Warnings, p.patternWarnings...)

	p.checkParticipation(e, r)
	p.checkMentions(e, r)
	p.checkKeywords(e, r)
	p.checkProfile(e, r)
	p.checkAntiBot(e, r)
	p.checkFollows(e, r)

	return r
}

func (p *Pipeline) checkParticipation(e *models.Entry, r *models.EvaluationResult) {
	cfg := p.cfg.Participation

	if cfg.RequireComment && strings.TrimSpace(e.Text) == "" {
		r.Fail(models.RuleRequireComment)
	}

	switch *cfg.ReplyHandling {
	case models.ReplyExclude:
		if e.IsReply {
			r.Fail(models.RuleReplyHandling)
		}
	case models.ReplyOnlyReplies:
		if !e.IsReply {
			r.Fail(models.RuleReplyHandling)
		}
	}

	if cfg.DateRange != nil {
		// An entry without a timestamp cannot prove it falls inside a
		// configured window, so it fails the range check.
		if e.Timestamp == nil {
			r.Fail(models.RuleDateRange)
			return
		}
		if cfg.DateRange.From != nil && e.Timestamp.Before(*cfg.DateRange.From) {
			r.Fail(models.RuleDateRange)
			return
		}
		if cfg.DateRange.To != nil && e.Timestamp.After(*cfg.DateRange.To) {
			r.Fail(models.RuleDateRange)
		}
	}
}

// entryMentions returns the entry's mention list after the configured
// normalization (self-mention exclusion, de-duplication).
func (p *Pipeline) entryMentions(e *models.Entry) []string {
	cfg := p.cfg.Mentions
	mentions := extract.Mentions(e.Text)

	if cfg.ExcludeAutoMention {
		self := e.Identity()
		kept := mentions[:0]
		for _, m := range mentions {
			if m != self {
				kept = append(kept, m)
			}
		}
		mentions = kept
	}
	if cfg.UniqueMentionsOnly {
		mentions = extract.Unique(mentions)
	}
	return mentions
}

func (p *Pipeline) checkMentions(e *models.Entry, r *models.EvaluationResult) {
	cfg := p.cfg.Mentions
	mentions := p.entryMentions(e)

	if cfg.MinMentions > 0 && len(mentions) < cfg.MinMentions {
		r.Fail(models.RuleMinMentions)
	}

	if len(cfg.RequiredMentions) > 0 {
		present := make(map[string]struct{}, len(mentions))
		for _, m := range mentions {
			present[m] = struct{}{}
		}
		for _, req := range cfg.RequiredMentions {
			if _, ok := present[normalizeHandle(req)]; !ok {
				r.Fail(models.RuleRequiredMentions)
				break
			}
		}
	}
}

func (p *Pipeline) checkKeywords(e *models.Entry, r *models.EvaluationResult) {
	cfg := p.cfg.Keywords
	text := e.Text
	if !cfg.CaseSensitive {
		text = strings.ToLower(text)
	}
	contains := func(kw string) bool {
		if !cfg.CaseSensitive {
			kw = strings.ToLower(kw)
		}
		return strings.Contains(text, kw)
	}

	if len(cfg.Required) > 0 {
		matched := 0
		for _, kw := range cfg.Required {
			if contains(kw) {
				matched++
			}
		}
		switch *cfg.RequiredMode {
		case models.MatchAll:
			if matched < len(cfg.Required) {
				r.Fail(models.RuleRequiredKeywords)
			}
		default: // any
			if matched == 0 {
				r.Fail(models.RuleRequiredKeywords)
			}
		}
	}

	for _, kw := range cfg.Forbidden {
		if contains(kw) {
			r.Fail(models.RuleForbiddenKeywords)
			break
		}
	}
}

// checkProfile only runs when a profile snapshot is present; entries
// without one are not penalized for missing profile data.
func (p *Pipeline) checkProfile(e *models.Entry, r *models.EvaluationResult) {
	if e.Profile == nil {
		return
	}
	cfg := p.cfg.Profile
	prof := e.Profile

	if cfg.RequireBio.Enabled {
		minLen := cfg.RequireBio.MinLength
		if minLen < 1 {
			minLen = 1
		}
		if len(strings.TrimSpace(prof.Bio)) < minLen {
			r.Fail(models.RuleRequireBio)
		}
	}
	if cfg.RequireProfilePicture && !prof.HasPicture {
		r.Fail(models.RuleRequirePicture)
	}
	if cfg.MinAccountAge != nil && prof.AccountAgeDays < *cfg.MinAccountAge {
		r.Fail(models.RuleMinAccountAge)
	}
	if cfg.MinPosts != nil && prof.PostCount < *cfg.MinPosts {
		r.Fail(models.RuleMinPosts)
	}
	if cfg.MaxFollowings != nil && prof.FollowingCount > *cfg.MaxFollowings {
		r.Fail(models.RuleMaxFollowings)
	}
	if cfg.MinFollowers != nil && prof.FollowerCount < *cfg.MinFollowers {
		r.Fail(models.RuleMinFollowers)
	}
	if cfg.RequireVerified && !prof.Verified {
		r.Fail(models.RuleRequireVerified)
	}
	if len(cfg.BioForbiddenWords) > 0 {
		bio := strings.ToLower(prof.Bio)
		for _, w := range cfg.BioForbiddenWords {
			if strings.Contains(bio, strings.ToLower(w)) {
				r.Fail(models.RuleBioForbiddenWords)
				break
			}
		}
	}
}

func (p *Pipeline) checkAntiBot(e *models.Entry, r *models.EvaluationResult) {
	identity := e.Identity()

	for _, b := range p.cfg.AntiBot.Blacklist {
		if normalizeHandle(b) == identity {
			r.Fail(models.RuleBlacklist)
			break
		}
	}

	for _, re := range p.patterns {
		if re.MatchString(e.Username) || re.MatchString(identity) {
			r.Fail(models.RuleExcludePatterns)
			break
		}
	}
}

func (p *Pipeline) checkFollows(e *models.Entry, r *models.EvaluationResult) {
	cfg := p.cfg.FollowVerification

	if len(cfg.RequiredFollows.Accounts) > 0 {
		var present map[string]struct{}
		switch *cfg.RequiredFollows.Mode {
		case models.FollowVerified:
			// Follow data was verified upstream and supplied on the entry.
			present = make(map[string]struct{}, len(e.Follows))
			for _, f := range e.Follows {
				present[normalizeHandle(f)] = struct{}{}
			}
		default: // declarative: the comment itself must mention the account
			mentions := extract.Mentions(e.Text)
			present = make(map[string]struct{}, len(mentions))
			for _, m := range mentions {
				present[m] = struct{}{}
			}
		}
		for _, acc := range cfg.RequiredFollows.Accounts {
			if _, ok := present[normalizeHandle(acc)]; !ok {
				r.Fail(models.RuleRequiredFollows)
				break
			}
		}
	}

	if cfg.StoryBonus.Enabled && e.SharedStory && cfg.StoryBonus.Multiplier > 1 {
		r.BonusMultiplier = cfg.StoryBonus.Multiplier
	}
}

// normalizeHandle lowercases a handle and strips a leading "@" so
// blacklists and account lists tolerate both spellings.
func normalizeHandle(h string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "@"))
}
