// Package guardrail decides whether a normalized appointment request is
// complete and valid enough to finalize.
package guardrail

import (
	"strings"
	"time"

	"github.com/wolfman30/appointment-scheduler/internal/extract"
	"github.com/wolfman30/appointment-scheduler/internal/normalize"
)

// Status is the guardrail decision.
type Status string

const (
	StatusOK                 Status = "ok"
	StatusNeedsClarification Status = "needs_clarification"
)

// Verdict is the guardrail output. Message is set only when clarification is
// needed.
type Verdict struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Check collects completeness and validity issues. The timezone must be the
// same one used to produce the normalized values, and now must be the same
// instant the normalizer used, so the future-check cannot disagree with
// date inference across a clock or zone boundary. Pure function, no I/O.
func Check(norm normalize.Normalized, entities extract.Entities, timezone string, now time.Time) Verdict {
	var issues []string

	if entities.Department == "" {
		issues = append(issues, "Department not specified")
	}
	if norm.Date == normalize.Unknown {
		issues = append(issues, "Date is ambiguous or not specified")
	}
	if norm.Time == normalize.Unknown {
		issues = append(issues, "Time is ambiguous or not specified")
	}

	if norm.Date != normalize.Unknown && norm.Time != normalize.Unknown {
		if !isFuture(norm.Date, norm.Time, timezone, now) {
			issues = append(issues, "Appointment time is in the past or invalid")
		}
	}

	if len(issues) > 0 {
		return Verdict{
			Status:  StatusNeedsClarification,
			Message: "Clarification needed: " + strings.Join(issues, "; "),
		}
	}
	return Verdict{Status: StatusOK}
}

// isFuture reports whether date+time, interpreted in the given timezone, is
// strictly after now.
func isFuture(date, clock, timezone string, now time.Time) bool {
	loc := normalize.Location(timezone)
	appointment, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return false
	}
	return appointment.After(now)
}
