package leave

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalculateDays(t *testing.T) {
	days, err := CalculateDays(day(2025, 1, 10), day(2025, 1, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 1 {
		t.Fatalf("expected 1 day, got %v", days)
	}

	days, err = CalculateDays(day(2025, 1, 10), day(2025, 1, 12))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 3 {
		t.Fatalf("expected 3 days, got %v", days)
	}
}

func TestCalculateDaysInvalid(t *testing.T) {
	if _, err := CalculateDays(day(2025, 2, 10), day(2025, 2, 9)); err == nil {
		t.Fatal("expected error for invalid range")
	}
}

func TestCoversIsInclusive(t *testing.T) {
	l := ApprovedLeave{StartDate: day(2025, 3, 4), EndDate: day(2025, 3, 6)}
	if !l.Covers(day(2025, 3, 4)) || !l.Covers(day(2025, 3, 6)) {
		t.Fatal("expected window edges to be covered")
	}
	if l.Covers(day(2025, 3, 3)) || l.Covers(day(2025, 3, 7)) {
		t.Fatal("expected days outside window to be uncovered")
	}
	afternoon := time.Date(2025, 3, 6, 17, 30, 0, 0, time.UTC)
	if !l.Covers(afternoon) {
		t.Fatal("expected time of day to be ignored")
	}
}

func TestSubtype(t *testing.T) {
	cases := map[string]string{
		"SICK":       SubtypeSickLeave,
		"sick_leave": SubtypeSickLeave,
		"casual":     SubtypeCasualLeave,
		"CL":         SubtypeCasualLeave,
		"annual":     SubtypeLeave,
		"":           SubtypeLeave,
	}
	for code, want := range cases {
		got := ApprovedLeave{TypeCode: code}.Subtype()
		if got != want {
			t.Fatalf("code %q: expected %s, got %s", code, want, got)
		}
	}
}

func TestFirstCoveringPrefersEarliestStart(t *testing.T) {
	leaves := []ApprovedLeave{
		{ID: "b", TypeCode: "casual", StartDate: day(2025, 3, 5), EndDate: day(2025, 3, 8)},
		{ID: "a", TypeCode: "sick", StartDate: day(2025, 3, 3), EndDate: day(2025, 3, 6)},
		{ID: "c", TypeCode: "annual", StartDate: day(2025, 3, 3), EndDate: day(2025, 3, 5)},
	}
	got, ok := FirstCovering(leaves, day(2025, 3, 5))
	if !ok {
		t.Fatal("expected a covering leave")
	}
	if got.ID != "a" {
		t.Fatalf("expected leave a, got %s", got.ID)
	}
	if _, ok := FirstCovering(leaves, day(2025, 3, 9)); ok {
		t.Fatal("expected no covering leave")
	}
}
