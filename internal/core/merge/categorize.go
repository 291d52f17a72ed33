package merge

import "strings"

// CategoryMatcher assigns a category to an assignment name given the declared
// categories. It is a function value so the heuristic can be swapped without
// touching the merge control flow.
type CategoryMatcher func(name string, categories []string) string

// categoryKeywords maps assignment-name substrings to the category they
// suggest. Order matters: earlier entries win.
var categoryKeywords = []struct {
	keyword  string
	category string
}{
	{"final", "Final Exam"},
	{"midterm", "Midterm Exam"},
	{"exam", "Exams"},
	{"test", "Exams"},
	{"quiz", "Quizzes"},
	{"homework", "Homework"},
	{"hw", "Homework"},
	{"lab", "Labs"},
	{"project", "Projects"},
	{"paper", "Papers"},
	{"essay", "Papers"},
	{"participation", "Participation"},
	{"attendance", "Participation"},
}

// KeywordMatcher is the default heuristic. It first looks for a declared
// category whose name appears in (or contains) the keyword's suggestion, then
// falls back to the first declared category, then to "Other".
func KeywordMatcher(name string, categories []string) string {
	lowered := strings.ToLower(name)

	for _, entry := range categoryKeywords {
		if !strings.Contains(lowered, entry.keyword) {
			continue
		}
		if match := findCategory(entry.category, categories); match != "" {
			return match
		}
	}

	if len(categories) > 0 {
		return categories[0]
	}
	return "Other"
}

// findCategory matches a suggested category against the declared ones,
// case-insensitively and tolerating singular/plural and partial overlap
// ("Exams" suggestion matches a declared "Exam" or "Midterm Exam").
func findCategory(suggestion string, categories []string) string {
	want := strings.ToLower(suggestion)
	for _, c := range categories {
		got := strings.ToLower(strings.TrimSpace(c))
		if got == want || strings.Contains(got, strings.TrimSuffix(want, "s")) || strings.Contains(want, strings.TrimSuffix(got, "s")) {
			return c
		}
	}
	return ""
}
