// Package normalize converts extracted date and time phrases into absolute,
// timezone-aware calendar values.
package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/appointment-scheduler/internal/extract"
	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

// Unknown is the sentinel for a date or time that could not be resolved.
// It never collides with a real parsed value.
const Unknown = "UNKNOWN"

// Normalized holds the resolved appointment fields. Date and Time are either
// valid calendar/clock strings or the Unknown sentinel, never partially
// malformed.
type Normalized struct {
	Date     string `json:"date"` // YYYY-MM-DD or UNKNOWN
	Time     string `json:"time"` // HH:MM 24-hour or UNKNOWN
	Timezone string `json:"tz"`   // IANA zone name
}

// Result is the complete normalization output.
type Result struct {
	Normalized     Normalized `json:"normalized"`
	DateConfidence float64    `json:"date_confidence"`
	TimeConfidence float64    `json:"time_confidence"`
	Confidence     float64    `json:"normalization_confidence"`
}

// namedTimes is the fixed vocabulary of colloquial times.
var namedTimes = map[string]string{
	"noon":      "12:00",
	"midnight":  "00:00",
	"morning":   "09:00",
	"afternoon": "14:00",
	"evening":   "18:00",
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var (
	inDaysRE      = regexp.MustCompile(`^in\s+(\d{1,2})\s+days?$`)
	numericDateRE = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})$`)
	monthDayRE    = regexp.MustCompile(`^([a-z]+)\s+(\d{1,2})$`)
	dayMonthRE    = regexp.MustCompile(`^(\d{1,2})\s+([a-z]+)$`)
	clockRE       = regexp.MustCompile(`^(\d{1,2})(?:[:.](\d{2}))?\s*(am|pm)?$`)
)

// Normalizer resolves date/time phrases against a caller-supplied timezone.
// "now" is read from the injected clock once per call and reused for every
// decision within that call.
type Normalizer struct {
	clock  func() time.Time
	parser Parser
	logger *logging.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock overrides the time source. Used by tests and by callers that
// need a stable per-request reference instant.
func WithClock(clock func() time.Time) Option {
	return func(n *Normalizer) {
		n.clock = clock
	}
}

// WithParser overrides the natural-language parser.
func WithParser(parser Parser) Option {
	return func(n *Normalizer) {
		n.parser = parser
	}
}

// New creates a Normalizer with the default clock and parser.
func New(logger *logging.Logger, opts ...Option) *Normalizer {
	if logger == nil {
		logger = logging.Default()
	}
	n := &Normalizer{
		clock:  time.Now,
		parser: NewNaturalParser(),
		logger: logger.Component("normalizer"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Location resolves an IANA timezone name, falling back to UTC when the name
// is invalid or empty.
func Location(timezone string) *time.Location {
	if timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Normalize resolves the extracted phrases in the given timezone, reading
// "now" once from the clock.
func (n *Normalizer) Normalize(entities extract.Entities, timezone string) Result {
	now := n.clock().In(Location(timezone))
	return n.NormalizeAt(entities, timezone, now)
}

// NormalizeAt is Normalize with an explicit reference instant, so the caller
// can share the same "now" with the guardrail's future-check.
func (n *Normalizer) NormalizeAt(entities extract.Entities, timezone string, now time.Time) Result {
	dateStr, dateConf := n.normalizeDate(entities.DatePhrase, now)
	timeStr, timeConf := n.normalizeTime(entities.TimePhrase, now)

	// A request like "book me at 3pm" has no date phrase; infer today or
	// tomorrow from whether the time is still ahead.
	if dateStr == Unknown && timeStr != Unknown {
		dateStr, dateConf = inferDateFromTime(timeStr, now)
		n.logger.Info("date inferred from time", "date", dateStr, "time", timeStr)
	}

	confidence := math.Round((dateConf+timeConf)/2*100) / 100

	n.logger.Info("normalized",
		"date", dateStr,
		"time", timeStr,
		"tz", timezone,
		"confidence", confidence,
	)

	return Result{
		Normalized: Normalized{
			Date:     dateStr,
			Time:     timeStr,
			Timezone: timezone,
		},
		DateConfidence: dateConf,
		TimeConfidence: timeConf,
		Confidence:     confidence,
	}
}

// splitModifier strips a leading "next"/"this"/"last" and reports the week
// offset it implies.
func splitModifier(phrase string) (string, int) {
	lowered := strings.TrimSpace(strings.ToLower(phrase))
	switch {
	case strings.HasPrefix(lowered, "next "):
		return strings.TrimSpace(strings.TrimPrefix(lowered, "next ")), 1
	case strings.HasPrefix(lowered, "this "):
		return strings.TrimSpace(strings.TrimPrefix(lowered, "this ")), 0
	case strings.HasPrefix(lowered, "last "):
		return strings.TrimSpace(strings.TrimPrefix(lowered, "last ")), -1
	}
	return lowered, 0
}

func (n *Normalizer) normalizeDate(phrase string, now time.Time) (string, float64) {
	if strings.TrimSpace(phrase) == "" {
		return Unknown, 0
	}

	cleaned, weekOffset := splitModifier(phrase)

	parsed, ok := n.resolveDate(cleaned, now)
	if !ok {
		n.logger.Warn("could not parse date phrase", "phrase", phrase)
		return Unknown, 0
	}

	// The offset applies after future-resolution: "next friday" is one week
	// past the upcoming friday.
	parsed = parsed.AddDate(0, 0, 7*weekOffset)

	return parsed.Format("2006-01-02"), 0.9
}

// resolveDate parses a modifier-free date phrase relative to now, preferring
// future occurrences. The explicit rules cover every shape the extractor
// emits; the natural-language parser extends coverage for direct API callers.
func (n *Normalizer) resolveDate(phrase string, now time.Time) (time.Time, bool) {
	switch phrase {
	case "today", "tonight":
		return now, true
	case "tomorrow":
		return now.AddDate(0, 0, 1), true
	}

	if wd, ok := weekdays[phrase]; ok {
		return nextWeekday(now, wd), true
	}

	if m := inDaysRE.FindStringSubmatch(phrase); m != nil {
		days, _ := strconv.Atoi(m[1])
		return now.AddDate(0, 0, days), true
	}

	if m := numericDateRE.FindStringSubmatch(phrase); m != nil {
		return resolveNumericDate(m, now)
	}

	if m := monthDayRE.FindStringSubmatch(phrase); m != nil {
		if month, ok := monthFromName(m[1]); ok {
			if day, err := strconv.Atoi(m[2]); err == nil {
				return resolveMonthDay(month, day, now)
			}
		}
	}

	if m := dayMonthRE.FindStringSubmatch(phrase); m != nil {
		if month, ok := monthFromName(m[2]); ok {
			if day, err := strconv.Atoi(m[1]); err == nil {
				return resolveMonthDay(month, day, now)
			}
		}
	}

	if t, ok := n.parser.Parse(phrase, now); ok {
		return t, true
	}

	return time.Time{}, false
}

// nextWeekday returns the occurrence of wd on or after now's date, never in
// the past.
func nextWeekday(now time.Time, wd time.Weekday) time.Time {
	delta := (int(wd) - int(now.Weekday()) + 7) % 7
	return now.AddDate(0, 0, delta)
}

func resolveNumericDate(m []string, now time.Time) (time.Time, bool) {
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if year < 100 {
		year += 2000
	}

	// Month-first by default, day-first when the first field cannot be a
	// month.
	month, day := first, second
	if month > 12 && day <= 12 {
		month, day = day, month
	}

	candidate := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	if int(candidate.Month()) != month || candidate.Day() != day || candidate.Year() != year {
		return time.Time{}, false
	}
	return candidate, true
}

func resolveMonthDay(month time.Month, day int, now time.Time) (time.Time, bool) {
	candidate := time.Date(now.Year(), month, day, 0, 0, 0, 0, now.Location())
	if candidate.Month() != month || candidate.Day() != day {
		return time.Time{}, false
	}
	// No year given: prefer the next future occurrence.
	if beforeDate(candidate, now) {
		candidate = candidate.AddDate(1, 0, 0)
	}
	return candidate, true
}

func monthFromName(name string) (time.Month, bool) {
	if len(name) < 3 {
		return 0, false
	}
	month, ok := months[name[:3]]
	return month, ok
}

// beforeDate compares calendar dates only.
func beforeDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}

func (n *Normalizer) normalizeTime(phrase string, now time.Time) (string, float64) {
	phrase = strings.TrimSpace(strings.ToLower(phrase))
	if phrase == "" {
		return Unknown, 0
	}

	if literal, ok := namedTimes[phrase]; ok {
		return literal, 0.7
	}

	// Plain clock phrases resolve by the meridiem rules before anything
	// else; natural-language parsers disagree on "12am" (hour 12, not 0).
	if m := clockRE.FindStringSubmatch(phrase); m != nil {
		if timeStr, ok := manualClock(m); ok {
			return timeStr, 0.85
		}
	}

	if t, ok := n.parser.Parse(phrase, now); ok {
		return t.Format("15:04"), 0.9
	}

	n.logger.Warn("could not parse time phrase", "phrase", phrase)
	return Unknown, 0
}

// manualClock converts hour[:minutes][am|pm] to 24-hour HH:MM.
func manualClock(m []string) (string, bool) {
	hours, _ := strconv.Atoi(m[1])
	minutes := 0
	if m[2] != "" {
		minutes, _ = strconv.Atoi(m[2])
	}
	meridiem := m[3]

	if minutes > 59 {
		return "", false
	}
	switch meridiem {
	case "pm":
		if hours < 1 || hours > 12 {
			return "", false
		}
		if hours != 12 {
			hours += 12
		}
	case "am":
		if hours < 1 || hours > 12 {
			return "", false
		}
		if hours == 12 {
			hours = 0
		}
	default:
		if hours > 23 {
			return "", false
		}
	}

	return fmt.Sprintf("%02d:%02d", hours, minutes), true
}

// inferDateFromTime picks today when the resolved time is still ahead of
// now, otherwise tomorrow.
func inferDateFromTime(timeStr string, now time.Time) (string, float64) {
	parts := strings.SplitN(timeStr, ":", 2)
	if len(parts) != 2 {
		return Unknown, 0
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return Unknown, 0
	}

	todayAt := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if todayAt.After(now) {
		return now.Format("2006-01-02"), 0.85
	}
	return now.AddDate(0, 0, 1).Format("2006-01-02"), 0.85
}
