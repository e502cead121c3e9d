// Package filter implements the multi-stage participant filtering
// pipeline: per-entry rule evaluation, identity-level reconciliation
// and username similarity clustering.
package filter

import (
	"regexp"

	"go.uber.org/zap"

	"fairdraw/internal/models"
)

// Pipeline evaluates a filter configuration against a batch of entries.
// It is pure computation over the in-memory list; all external lookups
// (profiles, follow verification) must be resolved before entries reach
// it.
type Pipeline struct {
	cfg      *models.FilterConfig
	patterns []*regexp.Regexp
	// patternWarnings carries config problems (unparseable exclusion
	// patterns) that degrade to per-entry warnings instead of aborting
	// the batch.
	patternWarnings []string
	logger          *zap.Logger
}

// Outcome is the pipeline's output: one EvaluationResult per input
// entry (same order) and the derived eligible pool.
type Outcome struct {
	Results  []*models.EvaluationResult
	Eligible []*models.Entry
}

// NewPipeline builds a pipeline for one draw. The configuration is
// merged against defaults; exclusion patterns are compiled once, and
// patterns that fail to compile are skipped with a warning.
func NewPipeline(cfg *models.FilterConfig, logger *zap.Logger) *Pipeline {
	cfg.ApplyDefaults()

	p := &Pipeline{cfg: cfg, logger: logger}
	for _, raw := range cfg.AntiBot.ExcludePatterns {
		re, err := regexp.Compile(raw)
		if err != nil {
			p.patternWarnings = append(p.patternWarnings,
				"antiBot.excludePatterns: skipped invalid pattern "+raw)
			logger.Warn("Skipping invalid exclusion pattern",
				zap.String("pattern", raw), zap.Error(err))
			continue
		}
		p.patterns = append(p.patterns, re)
	}
	return p
}

// Run evaluates all entries. Phase one applies every per-entry rule
// independently (no short-circuiting, so the full failure set is
// recorded); phase two reconciles entries per identity and may
// downgrade individually passing entries; phase three clusters similar
// usernames across the remaining identities.
func (p *Pipeline) Run(entries []*models.Entry) *Outcome {
	results := make([]*models.EvaluationResult, len(entries))
	for i, e := range entries {
		results[i] = p.evaluateEntry(e)
	}

	p.reconcileGroups(entries, results)
	p.clusterSimilar(entries, results)

	eligible := []*models.Entry{}
	for i, r := range results {
		if r.Passed {
			eligible = append(eligible, entries[i])
		}
	}

	p.logger.Info("Filter pipeline completed",
		zap.Int("total_entries", len(entries)),
		zap.Int("eligible", len(eligible)))

	return &Outcome{Results: results, Eligible: eligible}
}
