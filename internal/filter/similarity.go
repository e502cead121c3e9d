package filter

import (
	"regexp"

	"go.uber.org/zap"

	"fairdraw/internal/models"
)

var (
	leadingJunk  = regexp.MustCompile(`^[@_.]+`)
	trailingJunk = regexp.MustCompile(`[0-9_.]+$`)
)

// clusterSimilar runs once across all still-passing identities. Pairs
// scoring at or above the threshold are grouped first-match-wins: each
// unclustered identity seeds a cluster and later identities are compared
// against the seed only, never against other members. Two near-threshold
// pairs may therefore land in different clusters depending on order.
// This is intentionally NOT a full union-find; do not "fix" it without a
// product decision, existing published draws depend on the behavior.
func (p *Pipeline) clusterSimilar(entries []*models.Entry, results []*models.EvaluationResult) {
	cfg := p.cfg.AntiBot.ExcludeSimilarUsernames
	if !cfg.Enabled {
		return
	}
	threshold := *cfg.Threshold
	strict := *cfg.Mode == models.SimilarityStrict

	// Still-passing identities in order of first appearance.
	order := []string{}
	seen := map[string]struct{}{}
	byIdentity := map[string][]int{}
	for i, e := range entries {
		id := e.Identity()
		byIdentity[id] = append(byIdentity[id], i)
		if !results[i].Passed {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			order = append(order, id)
		}
	}

	consumed := make(map[string]struct{}, len(order))
	for i, seed := range order {
		if _, ok := consumed[seed]; ok {
			continue
		}
		cleanSeed := cleanUsername(seed)
		for _, other := range order[i+1:] {
			if _, ok := consumed[other]; ok {
				continue
			}
			score := similarity(cleanSeed, cleanUsername(other), strict)
			if score < threshold {
				continue
			}
			consumed[other] = struct{}{}
			p.logger.Debug("Excluding similar username",
				zap.String("kept", seed),
				zap.String("excluded", other),
				zap.Float64("score", score))
			for _, idx := range byIdentity[other] {
				if results[idx].Passed {
					results[idx].Fail(models.RuleSimilarUsernames)
				}
			}
		}
	}
}

// cleanUsername strips the generic bot prefix/suffix decoration: leading
// "@"/"_"/"." runs and trailing digit/"_"/"." runs.
func cleanUsername(u string) string {
	u = leadingJunk.ReplaceAllString(u, "")
	return trailingJunk.ReplaceAllString(u, "")
}

// similarity scores two cleaned usernames in [0,1]. Standard mode is the
// common-prefix length over the shorter string; strict mode is one minus
// the normalized Levenshtein distance.
func similarity(a, b string, strict bool) float64 {
	if strict {
		longest := max(len(a), len(b))
		if longest == 0 {
			return 1
		}
		return 1 - float64(levenshtein(a, b))/float64(longest)
	}
	shortest := min(len(a), len(b))
	if shortest == 0 {
		return 0
	}
	return float64(commonPrefix(a, b)) / float64(shortest)
}

func commonPrefix(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// levenshtein computes edit distance with the classic two-row dynamic
// program.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(min(curr[j-1]+1, prev[j]+1), prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
