package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wolfman30/appointment-scheduler/internal/extract"
	"github.com/wolfman30/appointment-scheduler/internal/normalize"
	"github.com/wolfman30/appointment-scheduler/internal/validate"
	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

const testZone = "Asia/Kolkata"

// Monday, so weekday math in downstream assertions stays readable.
func fixedNow(t *testing.T) time.Time {
	t.Helper()
	loc, err := time.LoadLocation(testZone)
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, loc)
	if now.Weekday() != time.Monday {
		t.Fatalf("fixture date must be a Monday, got %s", now.Weekday())
	}
	return now
}

type stubValidator struct {
	result validate.Result
	err    error
	called bool
}

func (s *stubValidator) ValidateEntities(_ context.Context, _ string, _ extract.Entities) (validate.Result, error) {
	s.called = true
	return s.result, s.err
}

func newTestPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	logger := logging.New("error")
	opts = append([]Option{WithClock(func() time.Time { return fixedNow(t) })}, opts...)
	return New(extract.New(logger), normalize.New(logger), logger, opts...)
}

func TestRunCompleteRequest(t *testing.T) {
	p := newTestPipeline(t)
	resp := p.Run(context.Background(), "Book a dentist appointment tomorrow at 3pm", testZone, 1.0)

	if resp.Final.Status != StatusOK {
		t.Fatalf("status = %q (message %q), want ok", resp.Final.Status, resp.Final.Message)
	}
	appt := resp.Final.Appointment
	if appt == nil {
		t.Fatal("expected an appointment")
	}
	if appt.Department != "Dentistry" {
		t.Errorf("department = %q, want Dentistry", appt.Department)
	}
	if appt.Date != "2024-01-02" {
		t.Errorf("date = %q, want 2024-01-02", appt.Date)
	}
	if appt.Time != "15:00" {
		t.Errorf("time = %q, want 15:00", appt.Time)
	}
	if appt.Timezone != testZone {
		t.Errorf("tz = %q, want %s", appt.Timezone, testZone)
	}
	if resp.Final.Message != "Appointment scheduled successfully" {
		t.Errorf("message = %q", resp.Final.Message)
	}
	if resp.AIValidation != nil {
		t.Error("no validator configured, ai_validation should be absent")
	}
}

func TestRunIncompleteRequest(t *testing.T) {
	p := newTestPipeline(t)
	resp := p.Run(context.Background(), "I need an appointment", testZone, 1.0)

	if resp.Final.Status != StatusNeedsClarification {
		t.Fatalf("status = %q, want needs_clarification", resp.Final.Status)
	}
	if resp.Final.Appointment != nil {
		t.Error("no appointment should be assembled")
	}
	for _, issue := range []string{
		"Department not specified",
		"Date is ambiguous or not specified",
		"Time is ambiguous or not specified",
	} {
		if !strings.Contains(resp.Final.Message, issue) {
			t.Errorf("message %q missing issue %q", resp.Final.Message, issue)
		}
	}
}

func TestRunEmptyText(t *testing.T) {
	p := newTestPipeline(t)
	resp := p.Run(context.Background(), "   ", testZone, 0)

	if resp.Final.Status != StatusError {
		t.Fatalf("status = %q, want error", resp.Final.Status)
	}
	if resp.Final.Message != "No text to process" {
		t.Errorf("message = %q", resp.Final.Message)
	}
}

func TestRunBlendsValidatorConfidence(t *testing.T) {
	stub := &stubValidator{result: validate.Result{
		Status:     validate.StatusValid,
		Confidence: 0.8,
		Notes:      "looks fine",
	}}
	p := newTestPipeline(t, WithValidator(stub, time.Second))
	resp := p.Run(context.Background(), "Book a dentist appointment tomorrow at 3pm", testZone, 1.0)

	if !stub.called {
		t.Fatal("validator was not invoked")
	}
	if resp.AIValidation == nil || resp.AIValidation.Status != validate.StatusValid {
		t.Fatalf("ai_validation = %+v", resp.AIValidation)
	}
	// 1.0*0.2 + 1.0*0.4 + 0.8*0.4
	if resp.OverallConfidence != 0.92 {
		t.Errorf("overall confidence = %v, want 0.92", resp.OverallConfidence)
	}
	if resp.Final.Status != StatusOK {
		t.Errorf("status = %q, validator must not change the verdict", resp.Final.Status)
	}
}

func TestRunValidatorFailureIsAdvisory(t *testing.T) {
	stub := &stubValidator{err: errors.New("model offline")}
	p := newTestPipeline(t, WithValidator(stub, time.Second))
	resp := p.Run(context.Background(), "Book a dentist appointment tomorrow at 3pm", testZone, 1.0)

	if resp.Final.Status != StatusOK {
		t.Fatalf("status = %q, validator failure must not fail the request", resp.Final.Status)
	}
	if resp.AIValidation == nil || !resp.AIValidation.Fallback {
		t.Fatalf("expected fallback validation record, got %+v", resp.AIValidation)
	}
	if resp.AIValidation.Status != validate.StatusError || resp.AIValidation.Confidence != 0.5 {
		t.Errorf("fallback record = %+v", resp.AIValidation)
	}
}
