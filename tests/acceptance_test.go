// Package tests contains end-to-end acceptance tests that exercise the full
// HTTP surface with the real extraction and normalization stages wired in.
//
// Run with: go test -v ./tests/...
package tests

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wolfman30/appointment-scheduler/internal/api/router"
	"github.com/wolfman30/appointment-scheduler/internal/extract"
	"github.com/wolfman30/appointment-scheduler/internal/normalize"
	"github.com/wolfman30/appointment-scheduler/internal/pipeline"
	"github.com/wolfman30/appointment-scheduler/internal/scheduling"
	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

const acceptanceZone = "Asia/Kolkata"

func newService(t *testing.T) http.Handler {
	t.Helper()
	logger := logging.New("error")
	p := pipeline.New(extract.New(logger), normalize.New(logger), logger)
	handler := scheduling.NewHandler(p, nil, acceptanceZone, logger)
	return router.New(&router.Config{
		Logger:     logger,
		Scheduling: handler,
	})
}

func scheduleText(t *testing.T, srv http.Handler, body string) (int, pipeline.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/schedule/text", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var resp pipeline.Response
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
		}
	}
	return rec.Code, resp
}

// A complete request produces a finalized appointment. "tomorrow at 3pm" is
// always in the future, so this is safe against the wall clock.
func TestCompleteRequestSchedulesAppointment(t *testing.T) {
	srv := newService(t)

	code, resp := scheduleText(t, srv, `{"text": "Book a dentist appointment tomorrow at 3pm"}`)
	if code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if resp.Final.Status != "ok" {
		t.Fatalf("final status = %q (message %q)", resp.Final.Status, resp.Final.Message)
	}

	appt := resp.Final.Appointment
	if appt == nil {
		t.Fatal("expected an appointment in the response")
	}
	if appt.Department != "Dentistry" {
		t.Errorf("department = %q, want Dentistry", appt.Department)
	}
	if appt.Time != "15:00" {
		t.Errorf("time = %q, want 15:00", appt.Time)
	}
	if appt.Timezone != acceptanceZone {
		t.Errorf("tz = %q, want %s", appt.Timezone, acceptanceZone)
	}

	loc, err := time.LoadLocation(acceptanceZone)
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	wantDate := time.Now().In(loc).AddDate(0, 0, 1).Format("2006-01-02")
	if appt.Date != wantDate {
		t.Errorf("date = %q, want %q (tomorrow)", appt.Date, wantDate)
	}

	if resp.Step2Extraction.Confidence != 1.0 {
		t.Errorf("extraction confidence = %v, want 1.0", resp.Step2Extraction.Confidence)
	}
}

// A vague request comes back asking for every missing detail.
func TestVagueRequestNeedsClarification(t *testing.T) {
	srv := newService(t)

	code, resp := scheduleText(t, srv, `{"text": "I need an appointment"}`)
	if code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if resp.Final.Status != "needs_clarification" {
		t.Fatalf("final status = %q", resp.Final.Status)
	}
	if resp.Final.Appointment != nil {
		t.Error("no appointment should be assembled for a vague request")
	}
	if !strings.HasPrefix(resp.Final.Message, "Clarification needed: ") {
		t.Errorf("message = %q", resp.Final.Message)
	}
	for _, issue := range []string{
		"Department not specified",
		"Date is ambiguous or not specified",
		"Time is ambiguous or not specified",
	} {
		if !strings.Contains(resp.Final.Message, issue) {
			t.Errorf("message %q missing %q", resp.Final.Message, issue)
		}
	}
}

// A named time with a partial date still normalizes end to end.
func TestNamedTimeRequest(t *testing.T) {
	srv := newService(t)

	code, resp := scheduleText(t, srv, `{"text": "cardiology checkup tomorrow at noon"}`)
	if code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if resp.Final.Status != "ok" {
		t.Fatalf("final status = %q (message %q)", resp.Final.Status, resp.Final.Message)
	}
	if resp.Final.Appointment.Department != "Cardiology" {
		t.Errorf("department = %q", resp.Final.Appointment.Department)
	}
	if resp.Final.Appointment.Time != "12:00" {
		t.Errorf("time = %q, want 12:00", resp.Final.Appointment.Time)
	}
}

func TestTimezoneOverrideInBody(t *testing.T) {
	srv := newService(t)

	code, resp := scheduleText(t, srv, `{"text": "dermatologist tomorrow at 9am", "timezone": "America/New_York"}`)
	if code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if resp.Final.Status != "ok" {
		t.Fatalf("final status = %q (message %q)", resp.Final.Status, resp.Final.Message)
	}
	if resp.Final.Appointment.Timezone != "America/New_York" {
		t.Errorf("tz = %q, want America/New_York", resp.Final.Appointment.Timezone)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newService(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("body = %s", rec.Body.String())
	}
}
