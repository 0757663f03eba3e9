package jobs

import "strings"

type Workplace string

const (
	WorkplaceOnSite Workplace = "On-site"
	WorkplaceRemote Workplace = "Remote"
	WorkplaceHybrid Workplace = "Hybrid"
)

type JobType string

const (
	JobTypeFullTime   JobType = "Full Time"
	JobTypePartTime   JobType = "Part Time"
	JobTypeContract   JobType = "Contract"
	JobTypeInternship JobType = "Internship"
)

// Filters are the candidate's preferences. An empty field means no constraint.
type Filters struct {
	Workplace   []Workplace `json:"workplace,omitempty" mapstructure:"workplace"`
	Country     string      `json:"country,omitempty" mapstructure:"country"`
	JobType     JobType     `json:"job_type,omitempty" mapstructure:"job-type"`
	City        string      `json:"city,omitempty" mapstructure:"city"`
	CareerLevel string      `json:"career_level,omitempty" mapstructure:"career-level"`
	JobCategory string      `json:"job_category,omitempty" mapstructure:"job-category"`
	DatePosted  string      `json:"date_posted,omitempty" mapstructure:"date-posted"`
	SearchQuery string      `json:"search_query,omitempty" mapstructure:"search-query"`
}

// Normalize trims every field and drops empty workplace entries.
func (f Filters) Normalize() Filters {
	out := Filters{
		Country:     strings.TrimSpace(f.Country),
		JobType:     JobType(strings.TrimSpace(string(f.JobType))),
		City:        strings.TrimSpace(f.City),
		CareerLevel: strings.TrimSpace(f.CareerLevel),
		JobCategory: strings.TrimSpace(f.JobCategory),
		DatePosted:  strings.TrimSpace(f.DatePosted),
		SearchQuery: strings.TrimSpace(f.SearchQuery),
	}
	for _, w := range f.Workplace {
		if w = Workplace(strings.TrimSpace(string(w))); w != "" {
			out.Workplace = append(out.Workplace, w)
		}
	}
	return out
}

// HasHard reports whether any of workplace, country or job type is set.
func (f Filters) HasHard() bool {
	return len(f.Workplace) > 0 || f.Country != "" || f.JobType != ""
}

// HasSoft reports whether any of city, career level, category, date posted or search query is set.
func (f Filters) HasSoft() bool {
	return f.City != "" || f.CareerLevel != "" || f.JobCategory != "" || f.DatePosted != "" || f.SearchQuery != ""
}

func (f Filters) IsEmpty() bool {
	return !f.HasHard() && !f.HasSoft()
}
