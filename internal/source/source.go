package source

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-ranker/internal/jobs"
	"github.com/spigell/job-ranker/internal/secrets"
)

const (
	KindFile = "file"
	KindHTTP = "http"
)

// Source delivers the already fetched job postings to rank.
type Source interface {
	Fetch(ctx context.Context) (*jobs.Jobs, error)
}

type Config struct {
	Kind      string            `mapstructure:"kind"`
	Path      string            `mapstructure:"path"`
	URL       string            `mapstructure:"url"`
	Token     string            `mapstructure:"token"`
	TokenFile string            `mapstructure:"token-file"`
	UserAgent string            `mapstructure:"user-agent"`
	PerPage   int               `mapstructure:"per-page"`
	Query     map[string]string `mapstructure:"query"`
}

// New builds the source described by cfg. Kind defaults to file when a path is set.
func New(cfg *Config, logger *zap.Logger) (Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("source is not configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	kind := strings.ToLower(strings.TrimSpace(cfg.Kind))
	if kind == "" && cfg.Path != "" {
		kind = KindFile
	}

	switch kind {
	case KindFile:
		if strings.TrimSpace(cfg.Path) == "" {
			return nil, fmt.Errorf("source.path is required for the file source")
		}
		return NewFile(cfg.Path), nil
	case KindHTTP:
		if strings.TrimSpace(cfg.URL) == "" {
			return nil, fmt.Errorf("source.url is required for the http source")
		}

		var token string
		if cfg.Token != "" || cfg.TokenFile != "" {
			var err error
			token, err = secrets.Load(secrets.Source{Name: "source token", Value: cfg.Token, File: cfg.TokenFile})
			if err != nil {
				return nil, err
			}
		}

		client := NewHTTP(cfg.URL, token, logger)
		if cfg.UserAgent != "" {
			client.UserAgent = cfg.UserAgent
		}
		if cfg.PerPage > 0 {
			client.PerPage = cfg.PerPage
		}
		client.Query = cfg.Query
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported source kind %q", cfg.Kind)
	}
}
