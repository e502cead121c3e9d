package filter_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fairdraw/internal/filter"
	"fairdraw/internal/models"
)

func newEntry(id int64, username, text string) *models.Entry {
	return &models.Entry{ID: id, Username: username, Text: text}
}

func newEntryAt(id int64, username, text string, ts time.Time) *models.Entry {
	e := newEntry(id, username, text)
	e.Timestamp = &ts
	return e
}

func runPipeline(t *testing.T, cfg *models.FilterConfig, entries []*models.Entry) *filter.Outcome {
	t.Helper()
	return filter.NewPipeline(cfg, zap.NewNop()).Run(entries)
}

func eligibleIdentities(o *filter.Outcome) []string {
	ids := []string{}
	for _, e := range o.Eligible {
		ids = append(ids, e.Identity())
	}
	return ids
}

func intPtr(n int) *int         { return &n }
func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }

func TestPipeline_PassedMatchesFailureList(t *testing.T) {
	cfg := &models.FilterConfig{
		Participation: models.ParticipationConfig{RequireComment: true},
		Mentions:      models.MentionsConfig{MinMentions: 1},
	}
	out := runPipeline(t, cfg, []*models.Entry{
		newEntry(1, "alice", "count me in @host"),
		newEntry(2, "bob", ""),
	})

	for _, r := range out.Results {
		assert.Equal(t, r.Passed, len(r.FailedFilters) == 0,
			"passed flag must mirror the failure list for entry %d", r.EntryID)
	}
	assert.True(t, out.Results[0].Passed)
	assert.False(t, out.Results[1].Passed)
}

func TestPipeline_FailuresAccumulate(t *testing.T) {
	// Every violated rule must be recorded; evaluation never
	// short-circuits on the first failure.
	cfg := &models.FilterConfig{
		Participation: models.ParticipationConfig{RequireComment: true},
		Mentions:      models.MentionsConfig{MinMentions: 2},
		Keywords:      models.KeywordsConfig{Required: []string{"giveaway"}},
	}
	out := runPipeline(t, cfg, []*models.Entry{newEntry(1, "bob", "")})

	assert.Equal(t, []string{
		models.RuleRequireComment,
		models.RuleMinMentions,
		models.RuleRequiredKeywords,
	}, out.Results[0].FailedFilters)
}

func TestPipeline_MinMentions(t *testing.T) {
	// Mention counts [1, 2, 0, 3] with minMentions=2 keeps exactly the
	// entries with 2 and 3 mentions.
	cfg := &models.FilterConfig{Mentions: models.MentionsConfig{MinMentions: 2}}
	out := runPipeline(t, cfg, []*models.Entry{
		newEntry(1, "a", "@one"),
		newEntry(2, "b", "@one @two"),
		newEntry(3, "c", "no mentions here"),
		newEntry(4, "d", "@one @two @three"),
	})

	assert.Equal(t, []string{"b", "d"}, eligibleIdentities(out))
}

func TestPipeline_UniqueMentionsOnly(t *testing.T) {
	cfg := &models.FilterConfig{
		Mentions: models.MentionsConfig{MinMentions: 2, UniqueMentionsOnly: true},
	}
	out := runPipeline(t, cfg, []*models.Entry{
		newEntry(1, "a", "@friend @friend @friend"), // one unique mention
		newEntry(2, "b", "@friend @other"),
	})

	assert.Equal(t, []string{"b"}, eligibleIdentities(out))
}

func TestPipeline_ExcludeAutoMention(t *testing.T) {
	cfg := &models.FilterConfig{
		Mentions: models.MentionsConfig{MinMentions: 1, ExcludeAutoMention: true},
	}
	out := runPipeline(t, cfg, []*models.Entry{
		newEntry(1, "alice", "shoutout to @alice"), // only mentions herself
		newEntry(2, "bob", "shoutout to @alice"),
	})

	assert.Equal(t, []string{"bob"}, eligibleIdentities(out))
}

func TestPipeline_RequiredMentions(t *testing.T) {
	cfg := &models.FilterConfig{
		Mentions: models.MentionsConfig{RequiredMentions: []string{"@BrandAccount", "partner"}},
	}
	out := runPipeline(t, cfg, []*models.Entry{
		newEntry(1, "a", "love it @brandaccount @partner"),
		newEntry(2, "b", "love it @brandaccount"),
	})

	assert.Equal(t, []string{"a"}, eligibleIdentities(out))
	assert.Contains(t, out.Results[1].FailedFilters, models.RuleRequiredMentions)
}

func TestPipeline_Keywords(t *testing.T) {
	t.Run("required any", func(t *testing.T) {
		cfg := &models.FilterConfig{
			Keywords: models.KeywordsConfig{Required: []string{"win", "enter"}},
		}
		out := runPipeline(t, cfg, []*models.Entry{
			newEntry(1, "a", "I want to WIN"),
			newEntry(2, "b", "good luck everyone"),
		})
		assert.Equal(t, []string{"a"}, eligibleIdentities(out))
	})

	t.Run("required all", func(t *testing.T) {
		cfg := &models.FilterConfig{
			Keywords: models.KeywordsConfig{
				Required:     []string{"win", "enter"},
				RequiredMode: strPtr(models.MatchAll),
			},
		}
		out := runPipeline(t, cfg, []*models.Entry{
			newEntry(1, "a", "enter me, I want to win"),
			newEntry(2, "b", "I want to win"),
		})
		assert.Equal(t, []string{"a"}, eligibleIdentities(out))
	})

	t.Run("forbidden excludes", func(t *testing.T) {
		cfg := &models.FilterConfig{
			Keywords: models.KeywordsConfig{Forbidden: []string{"spam"}},
		}
		out := runPipeline(t, cfg, []*models.Entry{
			newEntry(1, "a", "totally SPAM comment"),
			newEntry(2, "b", "genuine comment"),
		})
		assert.Equal(t, []string{"b"}, eligibleIdentities(out))
		assert.Contains(t, out.Results[0].FailedFilters, models.RuleForbiddenKeywords)
	})

	t.Run("case sensitive", func(t *testing.T) {
		cfg := &models.FilterConfig{
			Keywords: models.KeywordsConfig{Required: []string{"Win"}, CaseSensitive: true},
		}
		out := runPipeline(t, cfg, []*models.Entry{
			newEntry(1, "a", "I want to win"),
			newEntry(2, "b", "Win or lose"),
		})
		assert.Equal(t, []string{"b"}, eligibleIdentities(out))
	})
}

func TestPipeline_ReplyHandling(t *testing.T) {
	reply := newEntry(1, "a", "replying")
	reply.IsReply = true
	top := newEntry(2, "b", "top level")

	t.Run("exclude", func(t *testing.T) {
		cfg := &models.FilterConfig{
			Participation: models.ParticipationConfig{ReplyHandling: strPtr(models.ReplyExclude)},
		}
		out := runPipeline(t, cfg, []*models.Entry{reply, top})
		assert.Equal(t, []string{"b"}, eligibleIdentities(out))
	})

	t.Run("only replies", func(t *testing.T) {
		cfg := &models.FilterConfig{
			Participation: models.ParticipationConfig{ReplyHandling: strPtr(models.ReplyOnlyReplies)},
		}
		out := runPipeline(t, cfg, []*models.Entry{reply, top})
		assert.Equal(t, []string{"a"}, eligibleIdentities(out))
	})
}

func TestPipeline_DateRange(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)
	cfg := &models.FilterConfig{
		Participation: models.ParticipationConfig{
			DateRange: &models.DateRange{From: &from, To: &to},
		},
	}
	out := runPipeline(t, cfg, []*models.Entry{
		newEntryAt(1, "early", "x", from.Add(-time.Hour)),
		newEntryAt(2, "inside", "x", from.Add(24*time.Hour)),
		newEntryAt(3, "late", "x", to.Add(time.Hour)),
		newEntry(4, "undated", "x"),
	})

	assert.Equal(t, []string{"inside"}, eligibleIdentities(out))
	assert.Contains(t, out.Results[3].FailedFilters, models.RuleDateRange)
}

func TestPipeline_ProfileRules(t *testing.T) {
	cfg := &models.FilterConfig{
		Profile: models.ProfileConfig{
			RequireBio:            models.BioRequirement{Enabled: true, MinLength: 5},
			RequireProfilePicture: true,
			MinAccountAge:         intPtr(30),
			MaxFollowings:         intPtr(1000),
			MinFollowers:          intPtr(10),
			BioForbiddenWords:     []string{"crypto"},
		},
	}

	good := newEntry(1, "human", "hi")
	good.Profile = &models.Profile{
		Bio: "long enough bio", HasPicture: true,
		FollowerCount: 50, FollowingCount: 200, AccountAgeDays: 400,
	}
	bot := newEntry(2, "bot", "hi")
	bot.Profile = &models.Profile{
		Bio: "buy crypto", HasPicture: false,
		FollowerCount: 2, FollowingCount: 5000, AccountAgeDays: 3,
	}
	noProfile := newEntry(3, "mystery", "hi")

	out := runPipeline(t, cfg, []*models.Entry{good, bot, noProfile})

	assert.True(t, out.Results[0].Passed)
	assert.ElementsMatch(t, []string{
		models.RuleRequirePicture,
		models.RuleMinAccountAge,
		models.RuleMaxFollowings,
		models.RuleMinFollowers,
		models.RuleBioForbiddenWords,
	}, out.Results[1].FailedFilters)
	// Profile rules are skipped entirely without a snapshot.
	assert.True(t, out.Results[2].Passed)
}

func TestPipeline_BlacklistCaseInsensitive(t *testing.T) {
	for _, blacklisted := range []string{"spambot", "@spambot", "SpamBot"} {
		cfg := &models.FilterConfig{
			AntiBot: models.AntiBotConfig{Blacklist: []string{blacklisted}},
		}
		out := runPipeline(t, cfg, []*models.Entry{
			newEntry(1, "SpamBot", "pick me"),
			newEntry(2, "honest", "pick me"),
		})
		assert.Equal(t, []string{"honest"}, eligibleIdentities(out),
			"blacklist entry %q should exclude SpamBot", blacklisted)
	}
}

func TestPipeline_ExcludePatterns(t *testing.T) {
	t.Run("matching pattern excludes", func(t *testing.T) {
		cfg := &models.FilterConfig{
			AntiBot: models.AntiBotConfig{ExcludePatterns: []string{`^bot_\d+$`}},
		}
		out := runPipeline(t, cfg, []*models.Entry{
			newEntry(1, "bot_123", "hi"),
			newEntry(2, "organic", "hi"),
		})
		assert.Equal(t, []string{"organic"}, eligibleIdentities(out))
	})

	t.Run("invalid pattern warns instead of crashing", func(t *testing.T) {
		cfg := &models.FilterConfig{
			AntiBot: models.AntiBotConfig{ExcludePatterns: []string{`([`}},
		}
		out := runPipeline(t, cfg, []*models.Entry{newEntry(1, "anyone", "hi")})

		require.Len(t, out.Results, 1)
		assert.True(t, out.Results[0].Passed)
		assert.NotEmpty(t, out.Results[0].Warnings)
	})
}

func TestPipeline_LinkedAccountsAlwaysExcluded(t *testing.T) {
	cfg := &models.FilterConfig{
		AntiBot: models.AntiBotConfig{
			LinkedAccounts: []models.LinkedAccounts{
				{Primary: "mainacct", Linked: []string{"@AltAcct", "sock_puppet"}},
			},
		},
	}
	out := runPipeline(t, cfg, []*models.Entry{
		newEntry(1, "mainacct", "hi"),
		newEntry(2, "altacct", "hi"),
		newEntry(3, "sock_puppet", "hi"),
	})

	assert.Equal(t, []string{"mainacct"}, eligibleIdentities(out))
	assert.Contains(t, out.Results[1].FailedFilters, models.RuleLinkedAccounts)
	assert.Contains(t, out.Results[2].FailedFilters, models.RuleLinkedAccounts)
}

func TestPipeline_RemoveDuplicateComments(t *testing.T) {
	cfg := &models.FilterConfig{
		MultiComment: models.MultiCommentConfig{RemoveDuplicateComments: true},
	}
	out := runPipeline(t, cfg, []*models.Entry{
		newEntry(1, "alice", "Count me in!"),
		newEntry(2, "alice", "  count me in!  "), // same text normalized
		newEntry(3, "alice", "different text"),
	})

	assert.True(t, out.Results[0].Passed)
	assert.False(t, out.Results[1].Passed)
	assert.Contains(t, out.Results[1].FailedFilters, models.RuleDuplicateComments)
	assert.True(t, out.Results[2].Passed)
}

func TestPipeline_MaxEntriesPerUser(t *testing.T) {
	t.Run("single entry per identity", func(t *testing.T) {
		cfg := &models.FilterConfig{
			MultiComment: models.MultiCommentConfig{MaxEntriesPerUser: intPtr(1)},
		}
		base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
		out := runPipeline(t, cfg, []*models.Entry{
			newEntryAt(1, "alice", "first", base),
			newEntryAt(2, "alice", "second", base.Add(time.Hour)),
		})

		assert.True(t, out.Results[0].Passed)
		assert.False(t, out.Results[1].Passed)
		assert.Contains(t, out.Results[1].FailedFilters, models.RuleMaxEntriesPerUser)
	})

	t.Run("last tie-break keeps the newest", func(t *testing.T) {
		cfg := &models.FilterConfig{
			MultiComment: models.MultiCommentConfig{
				MaxEntriesPerUser: intPtr(1),
				CommentSelection:  strPtr(models.SelectLast),
			},
		}
		base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
		out := runPipeline(t, cfg, []*models.Entry{
			newEntryAt(1, "alice", "first", base),
			newEntryAt(2, "alice", "second", base.Add(time.Hour)),
		})

		assert.False(t, out.Results[0].Passed)
		assert.True(t, out.Results[1].Passed)
	})

	t.Run("distinct mention sets earn extra entries", func(t *testing.T) {
		cfg := &models.FilterConfig{
			MultiComment: models.MultiCommentConfig{
				MaxEntriesPerUser:       intPtr(2),
				AllowIfDifferentMention: true,
			},
		}
		out := runPipeline(t, cfg, []*models.Entry{
			newEntry(1, "alice", "@friend1"),
			newEntry(2, "alice", "@friend1 again"), // same mention set as 1
			newEntry(3, "alice", "@friend2"),
			newEntry(4, "alice", "@friend3"), // third bucket, over the cap
		})

		assert.True(t, out.Results[0].Passed)
		assert.False(t, out.Results[1].Passed)
		assert.True(t, out.Results[2].Passed)
		assert.False(t, out.Results[3].Passed)
	})
}

func TestPipeline_FollowVerification(t *testing.T) {
	t.Run("declarative mode checks mentions", func(t *testing.T) {
		cfg := &models.FilterConfig{
			FollowVerification: models.FollowVerificationConfig{
				RequiredFollows: models.RequiredFollows{Accounts: []string{"@brand"}},
			},
		}
		out := runPipeline(t, cfg, []*models.Entry{
			newEntry(1, "a", "following @brand!"),
			newEntry(2, "b", "great giveaway"),
		})
		assert.Equal(t, []string{"a"}, eligibleIdentities(out))
	})

	t.Run("verified mode checks supplied follow data", func(t *testing.T) {
		cfg := &models.FilterConfig{
			FollowVerification: models.FollowVerificationConfig{
				RequiredFollows: models.RequiredFollows{
					Accounts: []string{"brand"},
					Mode:     strPtr(models.FollowVerified),
				},
			},
		}
		follower := newEntry(1, "a", "in!")
		follower.Follows = []string{"@Brand"}
		nonFollower := newEntry(2, "b", "in! @brand") // mention is not proof here

		out := runPipeline(t, cfg, []*models.Entry{follower, nonFollower})
		assert.Equal(t, []string{"a"}, eligibleIdentities(out))
	})

	t.Run("story bonus raises the multiplier", func(t *testing.T) {
		cfg := &models.FilterConfig{
			FollowVerification: models.FollowVerificationConfig{
				StoryBonus: models.StoryBonus{Enabled: true, Multiplier: 2},
			},
		}
		sharer := newEntry(1, "a", "in!")
		sharer.SharedStory = true

		out := runPipeline(t, cfg, []*models.Entry{sharer, newEntry(2, "b", "in!")})
		assert.Equal(t, 2.0, out.Results[0].BonusMultiplier)
		assert.Equal(t, 1.0, out.Results[1].BonusMultiplier)
	})
}

func TestPipeline_FiveEntryScenario(t *testing.T) {
	// alice, alice, bob, carol, spammer with maxEntriesPerUser=1 and
	// spammer blacklisted leaves exactly alice (once), bob, carol.
	cfg := &models.FilterConfig{
		MultiComment: models.MultiCommentConfig{MaxEntriesPerUser: intPtr(1)},
		AntiBot:      models.AntiBotConfig{Blacklist: []string{"spammer"}},
	}
	out := runPipeline(t, cfg, []*models.Entry{
		newEntry(1, "alice", "one"),
		newEntry(2, "alice", "two"),
		newEntry(3, "bob", "three"),
		newEntry(4, "carol", "four"),
		newEntry(5, "spammer", "five"),
	})

	assert.Equal(t, []string{"alice", "bob", "carol"}, eligibleIdentities(out))
}

func TestPipeline_IdempotentOnOwnOutput(t *testing.T) {
	cfg := &models.FilterConfig{
		Mentions:     models.MentionsConfig{MinMentions: 1},
		MultiComment: models.MultiCommentConfig{MaxEntriesPerUser: intPtr(1), RemoveDuplicateComments: true},
		AntiBot: models.AntiBotConfig{
			Blacklist:               []string{"spammer"},
			ExcludeSimilarUsernames: models.SimilarityConfig{Enabled: true, Mode: strPtr(models.SimilarityStrict)},
		},
	}
	entries := []*models.Entry{
		newEntry(1, "alice", "@host in!"),
		newEntry(2, "alice", "@host in!"),
		newEntry(3, "bob", "@host me too"),
		newEntry(4, "bob_99", "@host me too"),
		newEntry(5, "spammer", "@host"),
		newEntry(6, "carol", "no mention"),
	}

	first := runPipeline(t, cfg, entries)
	second := runPipeline(t, cfg, first.Eligible)

	assert.Equal(t, eligibleIdentities(first), eligibleIdentities(second),
		"re-running the pipeline on its own eligible output must not drop more entries")
}
