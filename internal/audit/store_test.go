package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v3"
)

func TestStoreRecord(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock, nil)

	mock.ExpectExec("INSERT INTO scheduling_requests").
		WithArgs(pgxmock.AnyArg(), "text", "Book a dentist appointment tomorrow at 3pm", "Asia/Kolkata",
			"ok", "Appointment scheduled successfully", "Dentistry", "2024-01-02", "15:00", "valid", 0.92).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := store.Record(context.Background(), Entry{
		Source:            "text",
		RawText:           "Book a dentist appointment tomorrow at 3pm",
		Timezone:          "Asia/Kolkata",
		Status:            "ok",
		Message:           "Appointment scheduled successfully",
		Department:        "Dentistry",
		Date:              "2024-01-02",
		Time:              "15:00",
		AIStatus:          "valid",
		OverallConfidence: 0.92,
	})
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if id == uuid.Nil {
		t.Fatal("expected a generated id")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStoreRecent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock, nil)

	now := time.Now().UTC()
	id := uuid.New()
	rows := pgxmock.NewRows([]string{
		"id", "source", "raw_text", "tz", "status", "message",
		"department", "date", "time", "ai_status", "overall_confidence", "created_at",
	}).AddRow(id, "text", "dentist tomorrow 3pm", "Asia/Kolkata", "ok", "Appointment scheduled successfully",
		"Dentistry", "2024-01-02", "15:00", "valid", 0.92, now)
	mock.ExpectQuery("SELECT id").WithArgs(int32(10)).WillReturnRows(rows)

	entries, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != id || entries[0].Department != "Dentistry" {
		t.Fatalf("unexpected entries: %#v", entries)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
