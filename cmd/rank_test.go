package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/job-ranker/internal/ai"
	"github.com/spigell/job-ranker/internal/filtering"
	"github.com/spigell/job-ranker/internal/jobs"
	"github.com/spigell/job-ranker/internal/source"
)

type stubScorer struct{}

func (stubScorer) Score(context.Context, jobs.Job, jobs.Filters) (*ai.ScoreResult, error) {
	return &ai.ScoreResult{Score: 70}, nil
}

func TestNewScorerWithoutAI(t *testing.T) {
	scorer, closeFn, err := newScorer(context.Background(), &Config{}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closeFn()

	if _, ok := scorer.(filtering.HeuristicScorer); !ok {
		t.Fatalf("expected heuristic scorer, got %T", scorer)
	}
}

func TestNewScorerRequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	cfg := &Config{AI: &AIConfig{Enabled: true, Gemini: &GeminiConfig{}}}
	if _, _, err := newScorer(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatalf("expected error without api key file")
	}

	cfg = &Config{AI: &AIConfig{Enabled: true, Provider: "openai", Gemini: &GeminiConfig{}}}
	if _, _, err := newScorer(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatalf("expected error for unsupported provider")
	}
}

func TestWithCache(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *CacheConfig
		wantCache bool
		wantErr   bool
	}{
		{name: "nil config", cfg: nil},
		{name: "disabled", cfg: &CacheConfig{Backend: "none"}},
		{name: "memory", cfg: &CacheConfig{Backend: "Memory", TTL: time.Hour}, wantCache: true},
		{name: "unknown backend", cfg: &CacheConfig{Backend: "memcached"}, wantErr: true},
		{name: "bad redis url", cfg: &CacheConfig{Backend: "redis", RedisURL: "not-a-url"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer, closeFn, err := withCache(context.Background(), stubScorer{}, tt.cfg, zap.NewNop())
			defer closeFn()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, ok := scorer.(*ai.CachedScorer); ok != tt.wantCache {
				t.Fatalf("expected cached=%v, got %T", tt.wantCache, scorer)
			}
		})
	}
}

func sampleResult() filtering.Result {
	return filtering.Result{
		Jobs: []jobs.ScoredJob{
			{Job: jobs.Job{ID: "1", Title: "Nurse", Company: "Clinic"}, Score: 91, Reasons: []string{"Title matches"}},
			{Job: jobs.Job{ID: "2", Title: "Doctor"}, Score: 88},
		},
		Message:        filtering.MessageMinorVariation,
		ExpandedSearch: true,
	}
}

func TestHandleActionShowResults(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	result := sampleResult()

	if err := handleAction(PromptShowResults, zap.New(core), &Config{}, &result, jobs.Filters{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ranked := logs.FilterMessage("ranked job").All()
	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked job entries, got %d", len(ranked))
	}
	if ranked[0].ContextMap()["id"] != "1" || ranked[0].ContextMap()["rank"] != int64(1) {
		t.Fatalf("unexpected first entry: %v", ranked[0].ContextMap())
	}
	if logs.FilterMessage(filtering.MessageMinorVariation).Len() != 1 {
		t.Fatalf("expected result message to be logged")
	}
}

func TestHandleActionExportExcel(t *testing.T) {
	out := filepath.Join(t.TempDir(), "ranked")
	result := sampleResult()

	err := handleAction(PromptExportExcel, zap.NewNop(), &Config{Output: &OutputConfig{XLSX: out}}, &result, jobs.Filters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(out + ".xlsx"); err != nil {
		t.Fatalf("expected exported workbook: %v", err)
	}
}

func TestHandleActionAppendToExcludeFile(t *testing.T) {
	excludeFile := filepath.Join(t.TempDir(), "excluded.json")
	result := sampleResult()

	err := handleAction(PromptAppendToExcludeFile, zap.NewNop(), &Config{ExcludeFile: excludeFile}, &result, jobs.Filters{})
	if !errors.Is(err, errExit) {
		t.Fatalf("expected exit after appending, got %v", err)
	}

	excluded, err := source.LoadExcluded(excludeFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(excluded.IDs()) != 2 {
		t.Fatalf("expected 2 excluded jobs, got %v", excluded.IDs())
	}
	if len(result.Jobs) != 0 {
		t.Fatalf("expected result to be emptied")
	}
}

func TestHandleActionExitAndInvalid(t *testing.T) {
	result := sampleResult()
	if err := handleAction(PromptExit, zap.NewNop(), &Config{}, &result, jobs.Filters{}); !errors.Is(err, errExit) {
		t.Fatalf("expected errExit, got %v", err)
	}
	if err := handleAction("bogus", zap.NewNop(), &Config{}, &result, jobs.Filters{}); err == nil {
		t.Fatalf("expected error for invalid action")
	}
}
