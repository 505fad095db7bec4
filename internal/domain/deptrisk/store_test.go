package deptrisk

import (
	"context"
	"testing"
	"time"
)

type fakeOverprivCounter struct {
	count      int
	department string
}

func (f *fakeOverprivCounter) OpenCountByDepartment(_ context.Context, _, department string) (int, error) {
	f.department = department
	return f.count, nil
}

type fakeDormantCounter struct {
	count  int
	cutoff time.Time
}

func (f *fakeDormantCounter) DormantCountByDepartment(_ context.Context, _, _ string, cutoff time.Time) (int, error) {
	f.cutoff = cutoff
	return f.count, nil
}

func TestOverprivilegedCountDelegatesToAlertStore(t *testing.T) {
	counter := &fakeOverprivCounter{count: 4}
	store := &Store{Overpriv: counter, Now: time.Now}

	got, err := store.OverprivilegedCount(context.Background(), "t1", "Engineering")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if got != 4 || counter.department != "Engineering" {
		t.Fatalf("expected delegated count 4 for Engineering, got %d (%q)", got, counter.department)
	}
}

func TestDormantGrantsDelegatesWithCutoff(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	counter := &fakeDormantCounter{count: 7}
	store := &Store{Dormant: counter, Now: func() time.Time { return now }}

	got, err := store.DormantGrants(context.Background(), "t1", "Finance")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if got != 7 {
		t.Fatalf("expected delegated count 7, got %d", got)
	}
	want := now.AddDate(0, 0, -DormantCutoffDays)
	if !counter.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, counter.cutoff)
	}
}
