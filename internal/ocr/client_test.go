package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExtractImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/extract" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"text":       "  Book a dentist appointment tomorrow at 3pm  ",
			"confidence": 0.92,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	got, err := c.ExtractImage(context.Background(), []byte("fake-image-bytes"), "note.png")
	if err != nil {
		t.Fatalf("ExtractImage: %v", err)
	}
	if got.RawText != "Book a dentist appointment tomorrow at 3pm" {
		t.Errorf("raw text = %q", got.RawText)
	}
	if got.Confidence != 0.92 {
		t.Errorf("confidence = %v, want 0.92", got.Confidence)
	}
}

func TestExtractImageNoText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"text": "   ", "confidence": 0.1})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.ExtractImage(context.Background(), []byte("fake"), "")
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
}

func TestExtractImageSidecarError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.ExtractImage(context.Background(), []byte("fake"), ""); err == nil {
		t.Fatal("expected error on sidecar 500")
	}
}

func TestExtractImageEmptyInput(t *testing.T) {
	c := NewClient("http://localhost:0", time.Second)
	if _, err := c.ExtractImage(context.Background(), nil, ""); !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
}

func TestExtractImageConfidenceClamped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"text": "hello", "confidence": 1.7})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	got, err := c.ExtractImage(context.Background(), []byte("fake"), "")
	if err != nil {
		t.Fatalf("ExtractImage: %v", err)
	}
	if got.Confidence != 1.0 {
		t.Errorf("confidence = %v, want clamped 1.0", got.Confidence)
	}
}

func TestProcessText(t *testing.T) {
	got := ProcessText("  schedule me  ")
	if got.RawText != "schedule me" || got.Confidence != 1.0 {
		t.Errorf("got %+v", got)
	}

	empty := ProcessText("   ")
	if empty.RawText != "" || empty.Confidence != 0 {
		t.Errorf("got %+v, want empty zero-confidence result", empty)
	}
}
