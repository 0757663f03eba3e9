package jobs

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	JobIDField      = "ID"
	JobCompanyField = "Company"
)

// Job is a single job posting as delivered by a job source.
type Job struct {
	ID              string     `json:"id,omitempty" yaml:"id" mapstructure:"id"`
	Title           string     `json:"title,omitempty" yaml:"title" mapstructure:"title"`
	Description     string     `json:"description,omitempty" yaml:"description" mapstructure:"description"`
	Company         string     `json:"company,omitempty" yaml:"company" mapstructure:"company"`
	Location        string     `json:"location,omitempty" yaml:"location" mapstructure:"location"`
	EmploymentType  string     `json:"employment_type,omitempty" yaml:"employment_type" mapstructure:"employment_type"`
	ExperienceLevel string     `json:"experience_level,omitempty" yaml:"experience_level" mapstructure:"experience_level"`
	Skills          []string   `json:"skills,omitempty" yaml:"skills" mapstructure:"skills"`
	PostedAt        *time.Time `json:"posted_at,omitempty" yaml:"posted_at" mapstructure:"posted_at"`
	URL             string     `json:"url,omitempty" yaml:"url" mapstructure:"url"`
}

// ScoredJob is a job annotated with its relevance score.
type ScoredJob struct {
	Job
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
	Flags   []string `json:"flags"`
}

type Jobs struct {
	Items []*Job
}

func (j *Job) GetStringField(name string) string {
	switch name {
	case JobIDField:
		return j.ID
	case JobCompanyField:
		return j.Company
	default:
		return ""
	}
}

func (j *Jobs) Len() int {
	return len(j.Items)
}

// Exclude removes jobs whose field matches any of targets (case-insensitive) and returns removed IDs.
// Order of the remaining jobs is preserved.
func (j *Jobs) Exclude(name string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			set[t] = struct{}{}
		}
	}

	var excluded []string
	kept := j.Items[:0]
	for _, job := range j.Items {
		if _, ok := set[strings.ToLower(strings.TrimSpace(job.GetStringField(name)))]; ok {
			excluded = append(excluded, job.ID)
			continue
		}
		kept = append(kept, job)
	}
	j.Items = kept

	return excluded
}

// Values returns copies of the jobs, suitable for passing to the ranking engine.
func (j *Jobs) Values() []Job {
	out := make([]Job, 0, len(j.Items))
	for _, job := range j.Items {
		if job == nil {
			continue
		}
		out = append(out, *job)
	}
	return out
}

// DumpToTmpFile writes scored jobs as indented JSON into a new temp file and returns its name.
func DumpToTmpFile(scored []ScoredJob) (string, error) {
	file, err := os.CreateTemp("", "jobs_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(scored); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// ReportByCompany groups scored jobs by company name.
func ReportByCompany(scored []ScoredJob) map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, job := range scored {
		key := job.Company
		if strings.TrimSpace(key) == "" {
			key = "(unknown company)"
		}

		entry := map[string]string{
			"title":    job.Title,
			"url":      job.URL,
			"location": job.Location,
			"type":     job.EmploymentType,
			"score":    fmt.Sprintf("%d", job.Score),
		}
		if len(job.Reasons) > 0 {
			entry["reasons"] = strings.Join(job.Reasons, "; ")
		}
		if len(job.Flags) > 0 {
			entry["flags"] = strings.Join(job.Flags, "; ")
		}

		report[key] = append(report[key], entry)
	}
	return report
}
