package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-ranker/internal/jobs"
)

// ExcludedJob is a job that must not show up in later runs.
type ExcludedJob struct {
	ID         string
	URL        string
	Company    string
	ExcludedAt time.Time
}

type ExcludedJobs struct {
	Items []*ExcludedJob
}

// LoadExcluded reads the exclude file. A missing or empty file yields an empty list.
func LoadExcluded(path string) (*ExcludedJobs, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ExcludedJobs{}, nil
		}
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedJobs{}, nil
	}

	var excluded ExcludedJobs
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

// ToExcluded converts ranked jobs into exclude entries stamped with now.
func ToExcluded(scored []jobs.ScoredJob, now time.Time) *ExcludedJobs {
	excluded := &ExcludedJobs{}
	for _, job := range scored {
		excluded.Items = append(excluded.Items, &ExcludedJob{
			ID:         job.ID,
			URL:        job.URL,
			Company:    job.Company,
			ExcludedAt: now.UTC(),
		})
	}
	return excluded
}

func (e *ExcludedJobs) Append(s *ExcludedJobs) {
	e.Items = append(e.Items, s.Items...)
}

func (e *ExcludedJobs) IDs() []string {
	ids := make([]string, 0, len(e.Items))
	for _, job := range e.Items {
		ids = append(ids, job.ID)
	}
	return ids
}

func (e *ExcludedJobs) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

// ApplyExcludeFile drops jobs listed in the exclude file at path and returns the removed IDs.
func ApplyExcludeFile(j *jobs.Jobs, path string, logger *zap.Logger) ([]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}

	excluded, err := LoadExcluded(path)
	if err != nil {
		return nil, fmt.Errorf("getting excluded jobs from file: %w", err)
	}

	removed := j.Exclude(jobs.JobIDField, excluded.IDs())
	if logger != nil && len(removed) > 0 {
		logger.Info("excluding jobs based on exclude file",
			zap.String("path", path),
			zap.Strings("excluded_jobs", removed),
			zap.Int("jobs_left", j.Len()),
		)
	}

	return removed, nil
}

// ExcludeCompanies drops jobs posted by any of companies (case-insensitive) and returns the removed IDs.
func ExcludeCompanies(j *jobs.Jobs, companies []string, logger *zap.Logger) []string {
	removed := j.Exclude(jobs.JobCompanyField, companies)
	if logger != nil && len(removed) > 0 {
		logger.Info("excluding jobs of blocked companies",
			zap.Strings("companies", companies),
			zap.Strings("excluded_jobs", removed),
			zap.Int("jobs_left", j.Len()),
		)
	}

	return removed
}
