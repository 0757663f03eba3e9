package filtering

import (
	"strings"

	"github.com/spigell/job-ranker/internal/jobs"
)

// violation names a hard filter a job failed.
type violation string

const (
	violationJobType   violation = "job_type"
	violationWorkplace violation = "workplace"
	violationCountry   violation = "country"
)

// hardViolations returns the hard filters the job violates. There is no partial credit:
// any returned violation eliminates the job.
func hardViolations(job jobs.Job, f jobs.Filters) []violation {
	var out []violation
	if f.JobType != "" && violatesJobType(job, f.JobType) {
		out = append(out, violationJobType)
	}
	if len(f.Workplace) > 0 && violatesWorkplace(job, f.Workplace) {
		out = append(out, violationWorkplace)
	}
	if f.Country != "" && violatesCountry(job, f.Country) {
		out = append(out, violationCountry)
	}
	return out
}

// violatesJobType is true when the employment type names a different job type and not the requested one.
func violatesJobType(job jobs.Job, requested jobs.JobType) bool {
	text := strings.ToLower(job.EmploymentType)
	if containsAny(text, jobTypeKeywordsFor(requested)) {
		return false
	}

	want, _ := jobTypeFor(requested)
	for t, kws := range jobTypeKeywords {
		if t == want {
			continue
		}
		if containsAny(text, kws) {
			return true
		}
	}
	return false
}

// violatesWorkplace is true when location or description mention a workplace type outside
// the requested set and none of the requested ones.
func violatesWorkplace(job jobs.Job, requested []jobs.Workplace) bool {
	text := lowerJoin(job.Location, job.Description)

	wanted := make(map[jobs.Workplace]struct{}, len(requested))
	for _, w := range requested {
		if containsAny(text, workplaceKeywordsFor(w)) {
			return false
		}
		canonical, _ := workplaceFor(w)
		wanted[canonical] = struct{}{}
	}

	for w, kws := range workplaceKeywords {
		if _, ok := wanted[w]; ok {
			continue
		}
		if containsAny(text, kws) {
			return true
		}
	}
	return false
}

// violatesCountry is true when the job has a location that names neither the country nor one of its aliases.
// Missing location is not a mismatch.
func violatesCountry(job jobs.Job, country string) bool {
	location := strings.ToLower(strings.TrimSpace(job.Location))
	if location == "" {
		return false
	}
	return !containsAny(location, countryTerms(country))
}
