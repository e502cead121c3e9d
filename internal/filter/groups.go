package filter

import (
	"crypto/rand"
	"math/big"
	"sort"
	"strings"

	"fairdraw/internal/models"
)

// reconcileGroups runs the identity-level fairness rules. Entries that
// passed every individual rule can still be excluded here; that two-phase
// model is deliberate, so audit surfaces can show both verdicts.
func (p *Pipeline) reconcileGroups(entries []*models.Entry, results []*models.EvaluationResult) {
	// Group entry indices by identity, preserving submission order.
	order := []string{}
	groups := map[string][]int{}
	for i, e := range entries {
		id := e.Identity()
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], i)
	}

	linked := p.linkedIdentities()

	for _, id := range order {
		idxs := groups[id]

		// Linked/alias accounts never count, even if their entries
		// individually passed.
		if _, ok := linked[id]; ok {
			for _, i := range idxs {
				results[i].Fail(models.RuleLinkedAccounts)
			}
			continue
		}

		if p.cfg.MultiComment.RemoveDuplicateComments {
			p.dropDuplicateComments(entries, results, idxs)
		}

		if max := p.cfg.MultiComment.MaxEntriesPerUser; max != nil && *max > 0 {
			p.capEntries(entries, results, idxs, *max)
		}
	}
}

// linkedIdentities returns the set of handles declared as aliases of
// another account.
func (p *Pipeline) linkedIdentities() map[string]struct{} {
	out := map[string]struct{}{}
	for _, group := range p.cfg.AntiBot.LinkedAccounts {
		for _, alias := range group.Linked {
			out[normalizeHandle(alias)] = struct{}{}
		}
	}
	return out
}

// dropDuplicateComments collapses entries with identical normalized text
// within one identity, keeping the first occurrence in submission order.
func (p *Pipeline) dropDuplicateComments(entries []*models.Entry, results []*models.EvaluationResult, idxs []int) {
	seen := map[string]struct{}{}
	for _, i := range idxs {
		if !results[i].Passed {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(entries[i].Text))
		if _, ok := seen[key]; ok {
			results[i].Fail(models.RuleDuplicateComments)
			continue
		}
		seen[key] = struct{}{}
	}
}

// capEntries enforces multiComment.maxEntriesPerUser. With
// allowIfDifferentMentions the identity's passing entries are bucketed
// by their sorted mention set, one survivor per bucket via the tie-break
// rule, and the bucket list itself capped at max; otherwise a single
// entry survives per identity.
func (p *Pipeline) capEntries(entries []*models.Entry, results []*models.EvaluationResult, idxs []int, max int) {
	passing := []int{}
	for _, i := range idxs {
		if results[i].Passed {
			passing = append(passing, i)
		}
	}
	if len(passing) == 0 {
		return
	}

	survivors := map[int]struct{}{}
	if p.cfg.MultiComment.AllowIfDifferentMention {
		bucketOrder := []string{}
		buckets := map[string][]int{}
		for _, i := range passing {
			key := mentionSetKey(p.entryMentions(entries[i]))
			if _, ok := buckets[key]; !ok {
				bucketOrder = append(bucketOrder, key)
			}
			buckets[key] = append(buckets[key], i)
		}
		for b, key := range bucketOrder {
			if b >= max {
				break
			}
			survivors[p.pickEntry(entries, buckets[key])] = struct{}{}
		}
	} else {
		survivors[p.pickEntry(entries, passing)] = struct{}{}
	}

	for _, i := range passing {
		if _, ok := survivors[i]; !ok {
			results[i].Fail(models.RuleMaxEntriesPerUser)
		}
	}
}

// mentionSetKey canonicalizes a mention list into a bucket key: sorted,
// lowercased, de-duplicated.
func mentionSetKey(mentions []string) string {
	set := map[string]struct{}{}
	for _, m := range mentions {
		set[strings.ToLower(m)] = struct{}{}
	}
	keys := make([]string, 0, len(set))
	for m := range set {
		keys = append(keys, m)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

// pickEntry applies the configured tie-break (first/last by timestamp,
// or random) to a non-empty index list. Entries without timestamps fall
// back to submission order.
func (p *Pipeline) pickEntry(entries []*models.Entry, idxs []int) int {
	switch *p.cfg.MultiComment.CommentSelection {
	case models.SelectLast:
		best := idxs[0]
		for _, i := range idxs[1:] {
			if entryAfter(entries[i], i, entries[best], best) {
				best = i
			}
		}
		return best
	case models.SelectRandom:
		return idxs[cryptoIntn(len(idxs))]
	default: // first
		best := idxs[0]
		for _, i := range idxs[1:] {
			if entryBefore(entries[i], i, entries[best], best) {
				best = i
			}
		}
		return best
	}
}

func entryBefore(a *models.Entry, ai int, b *models.Entry, bi int) bool {
	if a.Timestamp != nil && b.Timestamp != nil && !a.Timestamp.Equal(*b.Timestamp) {
		return a.Timestamp.Before(*b.Timestamp)
	}
	return ai < bi
}

func entryAfter(a *models.Entry, ai int, b *models.Entry, bi int) bool {
	if a.Timestamp != nil && b.Timestamp != nil && !a.Timestamp.Equal(*b.Timestamp) {
		return a.Timestamp.After(*b.Timestamp)
	}
	return ai > bi
}

// cryptoIntn draws a uniform int in [0, n) from crypto/rand. The random
// tie-break uses the same source as winner selection so neither is
// predictable.
func cryptoIntn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// there is no sane fallback for a fairness-critical draw.
		panic(err)
	}
	return int(v.Int64())
}
