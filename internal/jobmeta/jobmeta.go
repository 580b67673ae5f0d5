// Package jobmeta guesses the job title and company name from a free-form job description.
package jobmeta

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	DefaultJobTitle    = "Position"
	DefaultCompanyName = "Our Company"

	scanLines        = 15
	boldScanLines    = 5
	maxTitleLength   = 100
	maxCompanyLength = 50
	companyWords     = 3
)

var (
	boldPattern     = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	companyTriggers = []string{"company:", "at", "join"}
	sectionWords    = []string{"overview", "description", "responsibilities"}
)

// Metadata is the best-effort description of who is hiring for what.
type Metadata struct {
	JobTitle    string `json:"job_title"`
	CompanyName string `json:"company_name"`
}

// Infer scans the head of the job text. It never fails and falls back to generic defaults.
func Infer(jobText string) Metadata {
	meta := Metadata{JobTitle: DefaultJobTitle, CompanyName: DefaultCompanyName}

	lines := strings.Split(strings.ReplaceAll(jobText, "\r\n", "\n"), "\n")
	if len(lines) > scanLines {
		lines = lines[:scanLines]
	}

	titleFound := false
	for i, line := range lines {
		clean := stripHeading(line)

		if !titleFound && clean != "" && utf8.RuneCountInString(clean) < maxTitleLength {
			meta.JobTitle = clean
			titleFound = true
		}

		if company, ok := companyAfterTrigger(clean); ok {
			meta.CompanyName = company
		}

		if i < boldScanLines {
			if company, ok := boldCompany(line); ok {
				meta.CompanyName = company
			}
		}
	}

	return meta
}

func stripHeading(line string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
}

func companyAfterTrigger(line string) (string, bool) {
	words := strings.Fields(line)
	for j, word := range words {
		if !isTrigger(word) || j+1 >= len(words) {
			continue
		}

		end := min(j+1+companyWords, len(words))
		company := strings.Trim(strings.Join(words[j+1:end], " "), ".,")
		if company == "" {
			continue
		}
		return company, true
	}
	return "", false
}

func boldCompany(line string) (string, bool) {
	match := boldPattern.FindStringSubmatch(line)
	if match == nil {
		return "", false
	}

	candidate := strings.TrimSpace(match[1])
	if candidate == "" || utf8.RuneCountInString(candidate) >= maxCompanyLength {
		return "", false
	}

	lower := strings.ToLower(candidate)
	for _, word := range sectionWords {
		if strings.Contains(lower, word) {
			return "", false
		}
	}

	return candidate, true
}

func isTrigger(word string) bool {
	lower := strings.ToLower(word)
	for _, trigger := range companyTriggers {
		if lower == trigger {
			return true
		}
	}
	return false
}
