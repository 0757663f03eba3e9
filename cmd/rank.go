package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-ranker/internal/ai"
	"github.com/spigell/job-ranker/internal/ai/gemini"
	"github.com/spigell/job-ranker/internal/cache"
	"github.com/spigell/job-ranker/internal/export"
	"github.com/spigell/job-ranker/internal/filtering"
	"github.com/spigell/job-ranker/internal/jobs"
	"github.com/spigell/job-ranker/internal/logger"
	"github.com/spigell/job-ranker/internal/secrets"
	"github.com/spigell/job-ranker/internal/source"
)

const (
	PromptShowResults         = "Show results"
	PromptReportByCompany     = "Report by company"
	PromptJobsToFile          = "Dump jobs to file"
	PromptExportExcel         = "Export to xlsx"
	PromptAppendToExcludeFile = "Append all jobs to exclude file"
	PromptExit                = "Exit"

	defaultExcelOutput = "ranked_jobs.xlsx"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptShowResults, PromptReportByCompany, PromptJobsToFile, PromptExportExcel, PromptAppendToExcludeFile, PromptExit},
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Filter and rank jobs from the configured source",
	Run: func(cmd *cobra.Command, _ []string) {
		rank(cmd)
	},
}

// filterFlags maps rank flags onto the filters section of the config.
var filterFlags = map[string]string{
	"search":       "filters.search-query",
	"country":      "filters.country",
	"job-type":     "filters.job-type",
	"workplace":    "filters.workplace",
	"city":         "filters.city",
	"career-level": "filters.career-level",
	"job-category": "filters.job-category",
	"date-posted":  "filters.date-posted",
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().BoolP("auto-approve", "y", false, "do not show the interactive menu, print results and export them if output is configured")
	rankCmd.Flags().StringP("exclude-file", "e", "", "special file with jobs to exclude. Default is unset.")
	rankCmd.Flags().StringP("output", "o", "", "xlsx file to export results to")
	rankCmd.Flags().String("source-file", "", "JSON or YAML file with jobs; overrides source.path")

	rankCmd.Flags().StringP("search", "s", "", "free-text search query")
	rankCmd.Flags().String("country", "", "required country")
	rankCmd.Flags().String("job-type", "", "required job type: Full Time, Part Time, Contract or Internship")
	rankCmd.Flags().StringSlice("workplace", nil, "accepted workplaces: On-site, Remote, Hybrid")
	rankCmd.Flags().String("city", "", "preferred city")
	rankCmd.Flags().String("career-level", "", "preferred career level")
	rankCmd.Flags().String("job-category", "", "preferred job category")
	rankCmd.Flags().String("date-posted", "", "posting window: today, week, month, 3months")

	viper.BindPFlag("exclude-file", rankCmd.Flags().Lookup("exclude-file"))
	viper.BindPFlag("output.xlsx", rankCmd.Flags().Lookup("output"))
	viper.BindPFlag("source.path", rankCmd.Flags().Lookup("source-file"))
	for flag, key := range filterFlags {
		viper.BindPFlag(key, rankCmd.Flags().Lookup(flag))
	}
}

// rank is the main command for the cli.
func rank(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the job-ranker", zap.String("version", resolveVersion()))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	src, err := source.New(config.Source, logger.Named("source"))
	if err != nil {
		logger.Fatal("configuring the job source", zap.Error(err))
	}

	list, err := src.Fetch(ctx)
	if err != nil {
		logger.Fatal("getting jobs", zap.Error(err))
	}
	logger.Info("getting jobs", zap.Int("count", list.Len()))

	if _, err := source.ApplyExcludeFile(list, config.ExcludeFile, logger); err != nil {
		logger.Fatal("applying exclude file", zap.Error(err))
	}
	source.ExcludeCompanies(list, config.ExcludeCompanies, logger)

	if list.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no jobs to rank"))
		return
	}

	scorer, closeScorer, err := newScorer(ctx, config, logger)
	if err != nil {
		logger.Fatal("building relevance scorer", zap.Error(err))
	}
	defer closeScorer()

	engine, err := filtering.New(scorer, &filtering.Config{
		Concurrency:  config.Filtering.Concurrency,
		ScoreTimeout: config.Filtering.ScoreTimeout,
	}, logger.Named("engine"))
	if err != nil {
		logger.Fatal("creating filter engine", zap.Error(err))
	}

	filters := *config.Filters
	result := engine.Filter(ctx, list.Values(), filters)

	logger.Info("ranking finished",
		zap.Int("count", len(result.Jobs)),
		zap.String("message", result.Message),
		zap.Bool("expanded_search", result.ExpandedSearch),
	)

	if len(result.Jobs) == 0 {
		logger.Info("exiting", zap.String("reason", "no jobs left after filters"))
		return
	}

	if cmd.Flag("auto-approve").Value.String() == "true" {
		if err := handleAction(PromptShowResults, logger, config, &result, filters); err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if outputPath(config) != "" {
			if err := handleAction(PromptExportExcel, logger, config, &result, filters); err != nil {
				logger.Fatal("exiting", zap.Error(err))
			}
		}
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, logger, config, &result, filters); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, logger *zap.Logger, config *Config, result *filtering.Result, filters jobs.Filters) error {
	switch action {
	case PromptShowResults:
		for i, job := range result.Jobs {
			logger.Info("ranked job",
				zap.Int("rank", i+1),
				zap.String("id", job.ID),
				zap.String("title", job.Title),
				zap.String("company", job.Company),
				zap.Int("score", job.Score),
				zap.Strings("reasons", job.Reasons),
				zap.Strings("flags", job.Flags),
			)
		}
		if result.Message != "" {
			logger.Info(result.Message, zap.Bool("expanded_search", result.ExpandedSearch))
		}
		return nil
	case PromptReportByCompany:
		pretty, _ := json.MarshalIndent(jobs.ReportByCompany(result.Jobs), "", "  ")
		logger.Info(string(pretty), zap.Int("jobs count", len(result.Jobs)))
		return nil
	case PromptJobsToFile:
		filename, err := jobs.DumpToTmpFile(result.Jobs)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExportExcel:
		output := outputPath(config)
		if output == "" {
			output = defaultExcelOutput
		}
		path, err := export.ToExcel(*result, filters, output)
		if err != nil {
			return fmt.Errorf("export results to xlsx: %w", err)
		}
		logger.Info("exported results", zap.String("filename", path))
		return nil
	case PromptAppendToExcludeFile:
		return appendToExcludeFile(logger, config.ExcludeFile, result)
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func appendToExcludeFile(logger *zap.Logger, excludeFile string, result *filtering.Result) error {
	if strings.TrimSpace(excludeFile) == "" {
		logger.Warn("exclude file is not configured", zap.String("hint", "set exclude-file in the config or pass --exclude-file"))
		return nil
	}

	excluded, err := source.LoadExcluded(excludeFile)
	if err != nil {
		return err
	}

	excluded.Append(source.ToExcluded(result.Jobs, time.Now()))

	if err := excluded.ToFile(excludeFile); err != nil {
		return err
	}

	logger.Info("appended to exclude file", zap.String("filename", excludeFile), zap.Int("count", len(result.Jobs)))
	result.Jobs = result.Jobs[:0]
	return errExit
}

func outputPath(config *Config) string {
	if config.Output == nil {
		return ""
	}
	return strings.TrimSpace(config.Output.XLSX)
}

// newScorer returns the relevance scorer for the engine and a cleanup func.
func newScorer(ctx context.Context, config *Config, logger *zap.Logger) (ai.Scorer, func(), error) {
	noop := func() {}

	if config.AI == nil || !config.AI.Enabled {
		logger.Info("ai scoring is disabled, using local heuristic scorer")
		return filtering.HeuristicScorer{}, noop, nil
	}

	scorer, err := newGeminiScorer(ctx, config.AI, logger.Named("gemini"))
	if err != nil {
		return nil, noop, err
	}

	return withCache(ctx, scorer, config.Cache, logger.Named("cache"))
}

func newGeminiScorer(ctx context.Context, cfg *AIConfig, zlog *zap.Logger) (*gemini.Scorer, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if cfg.Gemini == nil {
		return nil, fmt.Errorf("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries,
		zlog.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries)))
	if err != nil {
		return nil, err
	}

	aiLogger := logger.WithCommonFields(zlog, "gemini", generator.Model())
	scorer := gemini.NewScorer(generator, cfg.Gemini.MaxLogLength, aiLogger)
	if cfg.Prompt != nil {
		scorer.SetPromptOverrides(gemini.PromptOverrides{
			ExtraCriteria:    cfg.Prompt.ExtraCriteria,
			UserInstructions: cfg.Prompt.UserInstructions,
		})
	}

	return scorer, nil
}

func withCache(ctx context.Context, scorer ai.Scorer, cfg *CacheConfig, zlog *zap.Logger) (ai.Scorer, func(), error) {
	noop := func() {}
	if cfg == nil {
		return scorer, noop, nil
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		return scorer, noop, nil
	case "memory":
		return ai.NewCachedScorer(scorer, cache.NewMemory(), cfg.TTL, zlog), noop, nil
	case "redis":
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, fmt.Errorf("%w (set cache.redis-url or JOB_RANKER_REDIS_URL)", err)
		}
		zlog.Info("using redis score cache", zap.String("addr", client.Options().Addr))
		return ai.NewCachedScorer(scorer, cache.NewRedis(client), cfg.TTL, zlog), closeRedis(client, zlog), nil
	default:
		return nil, noop, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}

func closeRedis(client *redis.Client, zlog *zap.Logger) func() {
	return func() {
		if err := client.Close(); err != nil {
			zlog.Warn("closing redis client", zap.Error(err))
		}
	}
}
