package filtering

import (
	"strings"

	"github.com/spigell/job-ranker/internal/jobs"
)

// Keyword tables. Matching is a case-insensitive substring test.
var (
	jobTypeKeywords = map[jobs.JobType][]string{
		jobs.JobTypeFullTime:   {"full-time", "full time", "fulltime", "permanent", "ft"},
		jobs.JobTypePartTime:   {"part-time", "part time", "parttime", "pt"},
		jobs.JobTypeContract:   {"contract", "contractor", "freelance", "temp", "temporary"},
		jobs.JobTypeInternship: {"intern", "internship", "student", "trainee"},
	}

	workplaceKeywords = map[jobs.Workplace][]string{
		jobs.WorkplaceRemote: {"remote", "work from home", "wfh", "distributed", "virtual"},
		jobs.WorkplaceOnSite: {"on-site", "onsite", "office", "in-person", "on site"},
		jobs.WorkplaceHybrid: {"hybrid", "flexible", "mixed", "combination"},
	}

	countryAliases = map[string][]string{
		"usa": {"united states", "america", "us"},
		"uk":  {"united kingdom", "britain", "england", "scotland", "wales"},
		"uae": {"united arab emirates", "dubai", "abu dhabi"},
	}

	careerLevelKeywords = map[string][]string{
		"entry":     {"entry", "entry-level", "graduate", "junior", "associate", "beginner"},
		"junior":    {"junior", "jr", "entry", "graduate", "associate"},
		"mid":       {"mid", "mid-level", "intermediate", "experienced"},
		"senior":    {"senior", "sr", "lead", "principal", "staff"},
		"executive": {"executive", "director", "vp", "vice president", "head of", "chief", "c-level"},
	}

	categoryKeywords = map[string][]string{
		"technology": {"software", "developer", "engineer", "programming", "tech", "data", "devops", "cloud", "backend", "frontend"},
		"marketing":  {"marketing", "seo", "content", "brand", "social media", "campaign", "digital marketing"},
		"sales":      {"sales", "business development", "account executive", "account manager", "retail"},
		"finance":    {"finance", "accounting", "accountant", "financial", "audit", "banking", "analyst"},
		"healthcare": {"health", "medical", "nurse", "doctor", "clinical", "hospital", "pharmacy", "healthcare"},
		"education":  {"education", "teacher", "teaching", "tutor", "school", "academic", "lecturer"},
		"design":     {"design", "designer", "ui/ux", "ux", "graphic", "creative"},
		"operations": {"operations", "logistics", "supply chain", "warehouse", "procurement"},
		"hr":         {"hr manager", "hr specialist", "hr generalist", "human resources", "recruiter", "recruitment", "talent acquisition"},
		"sports":     {"sports", "fitness", "coach", "athlete", "trainer", "gym"},
	}

	// datePostedWindows maps a date-posted filter to the maximum age in days.
	datePostedWindows = map[string]int{
		"today":   1,
		"week":    7,
		"month":   30,
		"3months": 90,
	}
)

const defaultDatePostedWindow = 365

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func lowerJoin(parts ...string) string {
	return strings.ToLower(strings.Join(parts, " "))
}

// normalizeKey turns values such as "Full-Time", "3 months" or "past_week" into lookup keys.
func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	r := strings.NewReplacer("-", "", "_", "", " ", "")
	return r.Replace(s)
}

func jobTypeFor(value jobs.JobType) (jobs.JobType, bool) {
	key := normalizeKey(string(value))
	for t := range jobTypeKeywords {
		if normalizeKey(string(t)) == key {
			return t, true
		}
	}
	return value, false
}

func workplaceFor(value jobs.Workplace) (jobs.Workplace, bool) {
	key := normalizeKey(string(value))
	for w := range workplaceKeywords {
		if normalizeKey(string(w)) == key {
			return w, true
		}
	}
	return value, false
}

func jobTypeKeywordsFor(value jobs.JobType) []string {
	if t, ok := jobTypeFor(value); ok {
		return jobTypeKeywords[t]
	}
	return []string{strings.ToLower(strings.TrimSpace(string(value)))}
}

func workplaceKeywordsFor(value jobs.Workplace) []string {
	if w, ok := workplaceFor(value); ok {
		return workplaceKeywords[w]
	}
	return []string{strings.ToLower(strings.TrimSpace(string(value)))}
}

func countryTerms(country string) []string {
	country = strings.ToLower(strings.TrimSpace(country))
	terms := []string{country}
	return append(terms, countryAliases[country]...)
}

func careerLevelTerms(level string) []string {
	level = strings.ToLower(strings.TrimSpace(level))
	if kws, ok := careerLevelKeywords[level]; ok {
		return kws
	}
	return []string{level}
}

func categoryTerms(category string) []string {
	category = strings.ToLower(strings.TrimSpace(category))
	if kws, ok := categoryKeywords[category]; ok {
		return kws
	}
	return []string{category}
}

func datePostedWindow(value string) int {
	if days, ok := datePostedWindows[normalizeKey(value)]; ok {
		return days
	}
	return defaultDatePostedWindow
}

// queryTokens returns the search query tokens longer than two characters.
// A query without such tokens is used as a single term.
func queryTokens(query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	var tokens []string
	for _, tok := range strings.Fields(query) {
		if len([]rune(tok)) > 2 {
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) == 0 && query != "" {
		tokens = []string{query}
	}
	return tokens
}
