package ai

import (
	"context"
	"errors"

	"github.com/spigell/job-ranker/internal/jobs"
)

var ErrEmptyResponse = errors.New("ai provider returned empty response")

// ScoreResult is the relevance verdict for one job.
type ScoreResult struct {
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
	Flags   []string `json:"flags"`
}

// Scorer rates how well a job matches the candidate's filters on a 0-100 scale.
type Scorer interface {
	Score(ctx context.Context, job jobs.Job, filters jobs.Filters) (*ScoreResult, error)
}

// ClampScore bounds a score to [0, 100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
