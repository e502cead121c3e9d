package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fairdraw/internal/extract"
)

func TestMentions(t *testing.T) {
	t.Run("basic extraction", func(t *testing.T) {
		got := extract.Mentions("hey @Alice check this with @bob_99!")
		assert.Equal(t, []string{"alice", "bob_99"}, got)
	})

	t.Run("lowercases and keeps duplicates in order", func(t *testing.T) {
		got := extract.Mentions("@Foo @BAR @foo")
		assert.Equal(t, []string{"foo", "bar", "foo"}, got)
	})

	t.Run("empty text", func(t *testing.T) {
		assert.Empty(t, extract.Mentions(""))
		assert.NotNil(t, extract.Mentions(""))
	})

	t.Run("mention stops at non-word characters", func(t *testing.T) {
		got := extract.Mentions("thanks @jo.se and @ana-maria")
		assert.Equal(t, []string{"jo", "ana"}, got)
	})
}

func TestHashtags(t *testing.T) {
	t.Run("basic extraction", func(t *testing.T) {
		got := extract.Hashtags("enter now #Giveaway #win_BIG")
		assert.Equal(t, []string{"giveaway", "win_big"}, got)
	})

	t.Run("no hashtags", func(t *testing.T) {
		assert.Empty(t, extract.Hashtags("no tags here @just_a_mention"))
	})
}

func TestUnique(t *testing.T) {
	got := extract.Unique([]string{"a", "b", "a", "c", "b"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}
