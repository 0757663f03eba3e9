package filtering

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/job-ranker/internal/ai"
	"github.com/spigell/job-ranker/internal/jobs"
	"github.com/spigell/job-ranker/internal/logger"
)

const (
	defaultScore = 80
	exactScore   = 95

	defaultConcurrency  = 4
	defaultScoreTimeout = 30 * time.Second

	reasonDefault    = "default"
	reasonExactMatch = "matches all selected preferences"
	reasonHardOnly   = "matches required preferences"
	flagLocalScoring = "relevance scorer unavailable, scored locally"
)

const (
	MessageNoHardMatches  = "No jobs match your selected preferences. Try adjusting your job type, workplace, or location filters."
	MessageNoMatches      = "No jobs match your selected preferences. Try adjusting your filters."
	MessageMinorVariation = "Found jobs with minor variations from your exact preferences"
	MessageCloseMatch     = "Expanded search to include jobs that closely match your preferences"
	MessageSignificant    = "Expanded search significantly to include potentially relevant jobs"
	MessageAllRanked      = "Showing all available jobs ranked by relevance to your preferences"
)

// Result is the ranked outcome of a single Filter call.
type Result struct {
	Jobs           []jobs.ScoredJob `json:"jobs"`
	Message        string           `json:"message"`
	ExpandedSearch bool             `json:"expanded_search"`
}

// Step describes the result of executing a filtering stage.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Config tunes how the engine talks to the scorer.
type Config struct {
	// Concurrency bounds parallel scorer calls. Non-positive means the default.
	Concurrency int
	// ScoreTimeout bounds a single scorer call. Non-positive means the default.
	ScoreTimeout time.Duration
}

// Engine separates hard and soft filters, eliminates hard-filter violations,
// short-circuits exact matches and otherwise ranks jobs with the scorer,
// falling back through score tiers.
type Engine struct {
	scorer ai.Scorer
	logger *zap.Logger
	cfg    Config
	now    func() time.Time
}

func New(scorer ai.Scorer, cfg *Config, logger *zap.Logger) (*Engine, error) {
	if scorer == nil {
		return nil, errors.New("relevance scorer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.ScoreTimeout <= 0 {
		c.ScoreTimeout = defaultScoreTimeout
	}

	return &Engine{scorer: scorer, logger: logger, cfg: c, now: time.Now}, nil
}

// Filter ranks jobs against filters. It never fails: scorer problems degrade to a local heuristic.
func (e *Engine) Filter(ctx context.Context, list []jobs.Job, filters jobs.Filters) Result {
	filters = filters.Normalize()

	if filters.IsEmpty() {
		e.logger.Info("no filters supplied, returning all jobs", zap.Int("jobs", len(list)))
		return Result{Jobs: withScore(list, defaultScore, reasonDefault)}
	}

	survivors := e.applyHardFilters(list, filters)
	if filters.HasHard() && len(survivors) == 0 {
		return Result{Jobs: []jobs.ScoredJob{}, Message: MessageNoHardMatches}
	}

	if exact := e.exactMatches(survivors, filters); len(exact) > 0 {
		return Result{Jobs: withScore(exact, exactScore, reasonExactMatch)}
	}

	if !filters.HasSoft() {
		return Result{Jobs: withScore(survivors, defaultScore, reasonHardOnly)}
	}

	scored := e.score(ctx, survivors, filters)
	return selectTier(scored)
}

func (e *Engine) applyHardFilters(list []jobs.Job, filters jobs.Filters) []jobs.Job {
	if !filters.HasHard() {
		return list
	}

	survivors := make([]jobs.Job, 0, len(list))
	for _, job := range list {
		if v := hardViolations(job, filters); len(v) > 0 {
			e.logger.Debug("job eliminated by hard filters",
				append(logger.JobFields(job), zap.Any("violations", v))...,
			)
			continue
		}
		survivors = append(survivors, job)
	}

	e.logStep("hard_filters", Step{Initial: len(list), Dropped: len(list) - len(survivors), Left: len(survivors)})
	return survivors
}

func (e *Engine) exactMatches(list []jobs.Job, filters jobs.Filters) []jobs.Job {
	now := e.now()
	var exact []jobs.Job
	for _, job := range list {
		if isExactMatch(job, filters, now) {
			exact = append(exact, job)
		}
	}

	e.logStep("exact_match", Step{Initial: len(list), Dropped: len(list) - len(exact), Left: len(exact)})
	return exact
}

// score calls the scorer for every job with bounded concurrency. Results keep input order.
func (e *Engine) score(ctx context.Context, list []jobs.Job, filters jobs.Filters) []jobs.ScoredJob {
	scored := make([]jobs.ScoredJob, len(list))

	g := new(errgroup.Group)
	g.SetLimit(e.cfg.Concurrency)

	for i, job := range list {
		g.Go(func() error {
			res, err := e.scoreOne(ctx, job, filters)
			if err != nil {
				e.logger.Warn("relevance scoring failed, using local heuristic",
					append(logger.JobFields(job), zap.Error(err))...,
				)
				res = heuristicScore(job, filters)
				res.Flags = append(res.Flags, flagLocalScoring)
			}
			scored[i] = toScored(job, res)
			return nil
		})
	}
	_ = g.Wait()

	e.logger.Info("relevance scoring completed", zap.Int("jobs", len(scored)))
	return scored
}

// scoreOne runs the scorer under a per-job timeout. A hanging scorer is abandoned, not awaited.
func (e *Engine) scoreOne(ctx context.Context, job jobs.Job, filters jobs.Filters) (*ai.ScoreResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.ScoreTimeout)
	defer cancel()

	type outcome struct {
		res *ai.ScoreResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("scorer panic: %v", r)}
			}
		}()
		r, err := e.scorer.Score(callCtx, job, filters)
		done <- outcome{res: r, err: err}
	}()

	select {
	case <-callCtx.Done():
		return nil, fmt.Errorf("score job %s: %w", job.ID, callCtx.Err())
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		if out.res == nil {
			return nil, ai.ErrEmptyResponse
		}
		return out.res, nil
	}
}

func (e *Engine) logStep(name string, s Step) {
	e.logger.Info("filter step",
		zap.String("name", name),
		zap.Int("initial", s.Initial),
		zap.Int("dropped", s.Dropped),
		zap.Int("left", s.Left),
	)
}

type tier struct {
	min      int
	message  string
	expanded bool
}

var tiers = []tier{
	{min: 90, message: "", expanded: false},
	{min: 75, message: MessageMinorVariation, expanded: true},
	{min: 60, message: MessageCloseMatch, expanded: true},
	{min: 40, message: MessageSignificant, expanded: true},
}

// selectTier returns the most restrictive non-empty score tier, sorted by score.
func selectTier(scored []jobs.ScoredJob) Result {
	if len(scored) == 0 {
		return Result{Jobs: []jobs.ScoredJob{}, Message: MessageNoMatches}
	}

	for _, t := range tiers {
		bucket := make([]jobs.ScoredJob, 0, len(scored))
		for _, job := range scored {
			if job.Score >= t.min {
				bucket = append(bucket, job)
			}
		}
		if len(bucket) > 0 {
			sortByScore(bucket)
			return Result{Jobs: bucket, Message: t.message, ExpandedSearch: t.expanded}
		}
	}

	all := append([]jobs.ScoredJob(nil), scored...)
	sortByScore(all)
	return Result{Jobs: all, Message: MessageAllRanked, ExpandedSearch: true}
}

func sortByScore(list []jobs.ScoredJob) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Score > list[j].Score
	})
}

func withScore(list []jobs.Job, score int, reason string) []jobs.ScoredJob {
	out := make([]jobs.ScoredJob, 0, len(list))
	for _, job := range list {
		out = append(out, jobs.ScoredJob{
			Job:     job,
			Score:   score,
			Reasons: []string{reason},
			Flags:   []string{},
		})
	}
	return out
}

func toScored(job jobs.Job, res *ai.ScoreResult) jobs.ScoredJob {
	reasons := res.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	flags := res.Flags
	if flags == nil {
		flags = []string{}
	}
	return jobs.ScoredJob{
		Job:     job,
		Score:   ai.ClampScore(res.Score),
		Reasons: reasons,
		Flags:   flags,
	}
}
