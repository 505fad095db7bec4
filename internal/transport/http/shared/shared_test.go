package shared

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseDateFormats(t *testing.T) {
	got, err := ParseDate("2026-08-01")
	if err != nil {
		t.Fatalf("date-only: %v", err)
	}
	if want := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}

	got, err = ParseDate("2026-08-01T09:30:00Z")
	if err != nil {
		t.Fatalf("rfc3339: %v", err)
	}
	if got.Hour() != 9 || got.Minute() != 30 {
		t.Fatalf("expected time component preserved, got %s", got)
	}

	if got, err = ParseDate(""); err != nil || !got.IsZero() {
		t.Fatalf("empty input must yield zero time, got %s (%v)", got, err)
	}

	if _, err = ParseDate("08/01/2026"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParsePaginationDefaultsAndClamp(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/notifications", nil)
	page := ParsePagination(req, DefaultPageSize, MaxPageSize)
	if page.Limit != DefaultPageSize || page.Offset != 0 {
		t.Fatalf("expected defaults, got %+v", page)
	}

	req = httptest.NewRequest("GET", "/api/v1/notifications?limit=9999&offset=20", nil)
	page = ParsePagination(req, DefaultPageSize, MaxPageSize)
	if page.Limit != MaxPageSize || page.Offset != 20 {
		t.Fatalf("expected clamped limit %d with offset 20, got %+v", MaxPageSize, page)
	}

	req = httptest.NewRequest("GET", "/api/v1/notifications?limit=-3&offset=-7", nil)
	page = ParsePagination(req, DefaultPageSize, MaxPageSize)
	if page.Limit != DefaultPageSize || page.Offset != 0 {
		t.Fatalf("negative inputs must fall back to defaults, got %+v", page)
	}
}
