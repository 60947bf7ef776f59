package search

import (
	"fmt"

	"github.com/cwoolley/metasearch/internal/providers"
)

// Strategy decides the order in which provider lists are combined.
type Strategy string

const (
	// StrategySequential emits each provider's list in full, in outcome order.
	StrategySequential Strategy = "sequential"
	// StrategyInterleave takes one item from each provider per round.
	StrategyInterleave Strategy = "interleave"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategySequential:
		return StrategySequential, nil
	case StrategyInterleave:
		return StrategyInterleave, nil
	}
	return "", fmt.Errorf("unknown merge strategy %q", s)
}

// RankedResult is a normalized result tagged with its source and its
// position in the merged list.
type RankedResult struct {
	providers.Result
	Provider providers.ID `json:"provider"`
	Rank     int          `json:"rank"`
}

// Merge combines successful outcomes into one ranked list. Outcomes are read
// in slice order, so the output is independent of provider completion order.
// Each provider contributes at most perProvider items, ranks start at 1 and
// are contiguous, and the list never exceeds perProvider × len(outcomes).
// Results are not deduplicated across providers.
func Merge(outcomes []Outcome, perProvider int, strategy Strategy) []RankedResult {
	type list struct {
		id      providers.ID
		results []providers.Result
	}
	lists := make([]list, 0, len(outcomes))
	total := 0
	for _, o := range outcomes {
		if !o.OK() {
			continue
		}
		rs := providers.Limit(o.Results, perProvider)
		lists = append(lists, list{id: o.Provider, results: rs})
		total += len(rs)
	}

	merged := make([]RankedResult, 0, total)
	switch strategy {
	case StrategyInterleave:
		for round := 0; len(merged) < total; round++ {
			for _, l := range lists {
				if round < len(l.results) {
					merged = append(merged, RankedResult{Result: l.results[round], Provider: l.id})
				}
			}
		}
	default:
		for _, l := range lists {
			for _, r := range l.results {
				merged = append(merged, RankedResult{Result: r, Provider: l.id})
			}
		}
	}

	if limit := perProvider * len(outcomes); len(merged) > limit {
		merged = merged[:limit]
	}
	for i := range merged {
		merged[i].Rank = i + 1
	}
	return merged
}

// ProvidersUsed lists the providers whose outcome succeeded, in outcome order.
func ProvidersUsed(outcomes []Outcome) []providers.ID {
	used := make([]providers.ID, 0, len(outcomes))
	for _, o := range outcomes {
		if o.OK() {
			used = append(used, o.Provider)
		}
	}
	return used
}
