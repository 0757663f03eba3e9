package filtering

import (
	"strings"
	"time"

	"github.com/spigell/job-ranker/internal/jobs"
)

// isExactMatch reports whether the job satisfies every supplied filter under the deterministic
// keyword rules. Unlike hard elimination, a missing field never counts as a match here.
func isExactMatch(job jobs.Job, f jobs.Filters, now time.Time) bool {
	if f.JobType != "" && !containsAny(strings.ToLower(job.EmploymentType), jobTypeKeywordsFor(f.JobType)) {
		return false
	}

	if len(f.Workplace) > 0 {
		text := lowerJoin(job.Location, job.Description)
		matched := false
		for _, w := range f.Workplace {
			if containsAny(text, workplaceKeywordsFor(w)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	location := strings.ToLower(job.Location)

	if f.Country != "" && !containsAny(location, countryTerms(f.Country)) {
		return false
	}

	if f.City != "" && !strings.Contains(location, strings.ToLower(f.City)) {
		return false
	}

	if f.CareerLevel != "" && !containsAny(lowerJoin(job.ExperienceLevel, job.Title), careerLevelTerms(f.CareerLevel)) {
		return false
	}

	if f.JobCategory != "" {
		text := lowerJoin(job.Title, job.Description, job.Company, strings.Join(job.Skills, " "))
		if !containsAny(text, categoryTerms(f.JobCategory)) {
			return false
		}
	}

	if f.SearchQuery != "" && !matchesQuery(lowerJoin(job.Title, job.Description, job.Company), f.SearchQuery) {
		return false
	}

	if f.DatePosted != "" && !postedWithin(job, datePostedWindow(f.DatePosted), now) {
		return false
	}

	return true
}

func matchesQuery(text, query string) bool {
	return containsAny(text, queryTokens(query))
}

// postedWithin treats an unknown posting date as outside any window.
func postedWithin(job jobs.Job, days int, now time.Time) bool {
	if job.PostedAt == nil || job.PostedAt.IsZero() {
		return false
	}
	age := now.Sub(*job.PostedAt)
	return age <= time.Duration(days)*24*time.Hour
}
