package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fairdraw/internal/models"
)

func TestFilterConfig_ApplyDefaults(t *testing.T) {
	cfg := &models.FilterConfig{}
	cfg.ApplyDefaults()

	assert.Equal(t, models.ReplyInclude, *cfg.Participation.ReplyHandling)
	assert.Equal(t, models.MatchAny, *cfg.Keywords.RequiredMode)
	assert.Equal(t, models.SelectFirst, *cfg.MultiComment.CommentSelection)
	assert.Equal(t, models.SimilarityStandard, *cfg.AntiBot.ExcludeSimilarUsernames.Mode)
	assert.Equal(t, 0.85, *cfg.AntiBot.ExcludeSimilarUsernames.Threshold)
	assert.Equal(t, models.FollowDeclarative, *cfg.FollowVerification.RequiredFollows.Mode)
	assert.Equal(t, 1.0, cfg.FollowVerification.StoryBonus.Multiplier)
}

func TestFilterConfig_DefaultsDoNotOverrideExplicitValues(t *testing.T) {
	// Every field is independently overridable: setting one knob must
	// not disturb the defaults of the others, and explicit values
	// survive the merge.
	raw := []byte(`{
		"multiComment": {"commentSelection": "last", "maxEntriesPerUser": 2},
		"antiBot": {"excludeSimilarUsernames": {"enabled": true, "threshold": 0.5}}
	}`)

	cfg := &models.FilterConfig{}
	require.NoError(t, json.Unmarshal(raw, cfg))
	cfg.ApplyDefaults()

	assert.Equal(t, models.SelectLast, *cfg.MultiComment.CommentSelection)
	require.NotNil(t, cfg.MultiComment.MaxEntriesPerUser)
	assert.Equal(t, 2, *cfg.MultiComment.MaxEntriesPerUser)
	assert.Equal(t, 0.5, *cfg.AntiBot.ExcludeSimilarUsernames.Threshold)
	// Untouched sections still get their defaults.
	assert.Equal(t, models.SimilarityStandard, *cfg.AntiBot.ExcludeSimilarUsernames.Mode)
	assert.Equal(t, models.ReplyInclude, *cfg.Participation.ReplyHandling)
}

func TestEntry_Identity(t *testing.T) {
	cases := []struct {
		username string
		want     string
	}{
		{"Alice", "alice"},
		{"@Alice", "alice"},
		{"  @Bob_99  ", "bob_99"},
		{"carol", "carol"},
	}
	for _, c := range cases {
		e := &models.Entry{Username: c.username}
		assert.Equal(t, c.want, e.Identity())
	}
}
