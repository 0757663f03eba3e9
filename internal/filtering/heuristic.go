package filtering

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/job-ranker/internal/ai"
	"github.com/spigell/job-ranker/internal/jobs"
)

const (
	heuristicBase           = 50
	heuristicWorkplaceBonus = 20
	heuristicCountryBonus   = 15
	heuristicQueryBonus     = 25
)

// heuristicScore is the local fallback used when the relevance scorer fails.
func heuristicScore(job jobs.Job, f jobs.Filters) *ai.ScoreResult {
	res := &ai.ScoreResult{Score: heuristicBase, Reasons: []string{}, Flags: []string{}}

	if len(f.Workplace) > 0 {
		text := lowerJoin(job.Location, job.Description)
		matched := ""
		for _, w := range f.Workplace {
			if strings.Contains(text, strings.ToLower(string(w))) {
				matched = string(w)
				break
			}
		}
		if matched != "" {
			res.Score += heuristicWorkplaceBonus
			res.Reasons = append(res.Reasons, fmt.Sprintf("workplace matches %s", matched))
		} else {
			res.Flags = append(res.Flags, "workplace preference not mentioned")
		}
	}

	if f.Country != "" {
		if strings.Contains(strings.ToLower(job.Location), strings.ToLower(f.Country)) {
			res.Score += heuristicCountryBonus
			res.Reasons = append(res.Reasons, fmt.Sprintf("located in %s", f.Country))
		} else {
			res.Flags = append(res.Flags, "country not confirmed")
		}
	}

	if f.SearchQuery != "" {
		if matchesQuery(lowerJoin(job.Title, job.Description), f.SearchQuery) {
			res.Score += heuristicQueryBonus
			res.Reasons = append(res.Reasons, "title or description matches search query")
		} else {
			res.Flags = append(res.Flags, "search query not found")
		}
	}

	res.Score = ai.ClampScore(res.Score)
	return res
}

// HeuristicScorer scores jobs locally without any AI provider.
type HeuristicScorer struct{}

func (HeuristicScorer) Score(_ context.Context, job jobs.Job, filters jobs.Filters) (*ai.ScoreResult, error) {
	return heuristicScore(job, filters.Normalize()), nil
}
