// Package extract pulls department, date, and time phrases out of raw
// appointment-request text using ordered pattern matching.
package extract

import (
	"math"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

// Entities holds the phrases recognized in one request. Fields are empty
// when nothing matched; extraction never fails.
type Entities struct {
	DatePhrase string `json:"date_phrase,omitempty"`
	TimePhrase string `json:"time_phrase,omitempty"`
	Department string `json:"department,omitempty"`
}

// Result is the complete extraction output.
type Result struct {
	Entities   Entities `json:"entities"`
	Confidence float64  `json:"entities_confidence"`
}

// departmentKeywords is tried in order; the first keyword found in the text
// wins regardless of where later keywords appear.
var departmentKeywords = []string{
	"dentist", "dental", "cardiology", "cardiologist", "orthopedic",
	"orthopedics", "pediatric", "pediatrics", "dermatology", "dermatologist",
	"neurology", "neurologist", "ophthalmology", "eye", "ent",
	"general", "surgery", "physician", "doctor", "dr", "gynecology",
	"psychiatry", "radiology", "oncology", "urology", "physiotherapy",
	"physio", "physical therapy", "rehabilitation", "rehab",
}

// departmentNames maps matched surface forms to canonical department names.
var departmentNames = map[string]string{
	"dentist":          "Dentistry",
	"dental":           "Dentistry",
	"cardiology":       "Cardiology",
	"cardiologist":     "Cardiology",
	"orthopedic":       "Orthopedics",
	"orthopedics":      "Orthopedics",
	"pediatric":        "Pediatrics",
	"pediatrics":       "Pediatrics",
	"dermatology":      "Dermatology",
	"dermatologist":    "Dermatology",
	"neurology":        "Neurology",
	"neurologist":      "Neurology",
	"ophthalmology":    "Ophthalmology",
	"eye":              "Ophthalmology",
	"ent":              "ENT",
	"general":          "General Medicine",
	"surgery":          "Surgery",
	"physician":        "General Medicine",
	"doctor":           "General Medicine",
	"dr":               "General Medicine",
	"gynecology":       "Gynecology",
	"psychiatry":       "Psychiatry",
	"radiology":        "Radiology",
	"oncology":         "Oncology",
	"urology":          "Urology",
	"physiotherapy":    "Physiotherapy",
	"physio":           "Physiotherapy",
	"physical therapy": "Physiotherapy",
	"rehabilitation":   "Rehabilitation",
	"rehab":            "Rehabilitation",
}

// Patterns run against lowercased text, first match wins per list.
var timePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{1,2})\s*(?::|\.)?(\d{2})?\s*(am|pm)\b`), // 3pm, 3:30pm
	regexp.MustCompile(`\b(\d{1,2})\s*(?::|\.)?(\d{2})\b`),           // 15:30, 3.30
	regexp.MustCompile(`\b(noon|midnight|morning|evening|afternoon)\b`),
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(today|tomorrow|tonight)\b`),
	regexp.MustCompile(`\b(next|this)\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
	regexp.MustCompile(`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
	regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})\b`), // 12/25/2024
	regexp.MustCompile(`\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+(\d{1,2})\b`),
	regexp.MustCompile(`\b(\d{1,2})\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\b`),
	regexp.MustCompile(`\bin\s+(\d{1,2})\s+days?\b`),
}

// departmentPatterns is built once from departmentKeywords. The \w* suffix
// lets "dentist" match "dentistry".
var departmentPatterns = buildDepartmentPatterns()

func buildDepartmentPatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(departmentKeywords))
	for _, kw := range departmentKeywords {
		patterns = append(patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(kw)+`\w*\b`))
	}
	return patterns
}

var titleCaser = cases.Title(language.English)

// Extractor recognizes appointment entities in unstructured text.
type Extractor struct {
	logger *logging.Logger
}

// New creates an Extractor.
func New(logger *logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.Default()
	}
	return &Extractor{logger: logger.Component("extractor")}
}

// Extract scans text for department, time, and date phrases. Matching is
// case-insensitive. Confidence is the share of the three fields that were
// found, rounded to two decimals; it signals completeness, not correctness.
func (e *Extractor) Extract(text string) Result {
	lowered := strings.ToLower(text)

	entities := Entities{
		Department: extractDepartment(lowered),
		TimePhrase: firstMatch(timePatterns, lowered),
		DatePhrase: firstMatch(datePatterns, lowered),
	}

	found := 0
	if entities.Department != "" {
		found++
	}
	if entities.TimePhrase != "" {
		found++
	}
	if entities.DatePhrase != "" {
		found++
	}
	confidence := math.Round(float64(found)/3*100) / 100

	e.logger.Info("entities extracted",
		"department", entities.Department,
		"date_phrase", entities.DatePhrase,
		"time_phrase", entities.TimePhrase,
		"confidence", confidence,
	)

	return Result{Entities: entities, Confidence: confidence}
}

// extractDepartment returns the canonical name for the first keyword in list
// order whose word-bounded occurrence appears in the text. Surface forms not
// in the canonical table (e.g. "dentistry" matched via suffix) are title-cased.
func extractDepartment(lowered string) string {
	for _, pattern := range departmentPatterns {
		surface := pattern.FindString(lowered)
		if surface == "" {
			continue
		}
		if canonical, ok := departmentNames[surface]; ok {
			return canonical
		}
		return titleCaser.String(surface)
	}
	return ""
}

func firstMatch(patterns []*regexp.Regexp, lowered string) string {
	for _, pattern := range patterns {
		if m := pattern.FindString(lowered); m != "" {
			return m
		}
	}
	return ""
}
