package booking

import (
	"testing"
	"time"
)

func TestDefaultScheduleGrid(t *testing.T) {
	s := DefaultSchedule()
	slots := s.Slots()

	if len(slots) != 11 {
		t.Fatalf("expected 11 hourly slots, got %d", len(slots))
	}
	if slots[0] != "09:00 AM" {
		t.Errorf("first slot = %q, want 09:00 AM", slots[0])
	}
	if slots[len(slots)-1] != "07:00 PM" {
		t.Errorf("last slot = %q, want 07:00 PM", slots[len(slots)-1])
	}
	if !s.Contains("12:00 PM") {
		t.Error("schedule should contain 12:00 PM")
	}
	if s.Contains("09:30 AM") {
		t.Error("schedule should not contain 09:30 AM")
	}
}

func TestNewScheduleRejectsBadInput(t *testing.T) {
	if _, err := NewSchedule(nil); err == nil {
		t.Error("empty schedule should be rejected")
	}
	if _, err := NewSchedule([]string{"25:00 AM"}); err == nil {
		t.Error("unparseable slot should be rejected")
	}
	if _, err := NewSchedule([]string{"09:00 AM", "09:00 AM"}); err == nil {
		t.Error("duplicate slot should be rejected")
	}
}

func TestAnnotateReturnsFullGrid(t *testing.T) {
	s := DefaultSchedule()

	// No bookings: everything available
	all := s.Annotate(nil)
	if len(all) != 11 {
		t.Fatalf("expected full grid, got %d slots", len(all))
	}
	for _, slot := range all {
		if !slot.Available {
			t.Errorf("slot %s should be available on an empty day", slot.Time)
		}
	}

	// One booked slot: flagged unavailable, the rest unchanged
	annotated := s.Annotate([]string{"10:00 AM"})
	if len(annotated) != 11 {
		t.Fatalf("booked slots must stay in the grid, got %d", len(annotated))
	}
	for _, slot := range annotated {
		if slot.Time == "10:00 AM" && slot.Available {
			t.Error("10:00 AM should be marked unavailable")
		}
		if slot.Time != "10:00 AM" && !slot.Available {
			t.Errorf("slot %s should remain available", slot.Time)
		}
	}
}

// The 12-hour labels do not sort lexicographically ("01:00 PM" < "09:00 AM"
// as strings), which is why listing queries convert booking_time with
// to_timestamp instead of ordering on the raw column. sessionStart is the
// Go-side equivalent of that conversion.
func TestSlotChronologyDiffersFromLexicographic(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	slots := DefaultSchedule().Slots()

	for i := 1; i < len(slots); i++ {
		prev := sessionStart(day, slots[i-1], time.UTC)
		cur := sessionStart(day, slots[i], time.UTC)
		if !cur.After(prev) {
			t.Errorf("slot %q should start after %q", slots[i], slots[i-1])
		}
	}

	morning := sessionStart(day, "09:00 AM", time.UTC)
	afternoon := sessionStart(day, "01:00 PM", time.UTC)
	if !afternoon.After(morning) {
		t.Error("01:00 PM should start after 09:00 AM")
	}
	if !("01:00 PM" < "09:00 AM") {
		t.Error("string comparison should order 01:00 PM first; if not, the conversion is redundant")
	}
}

func TestAnnotateFullyBookedDay(t *testing.T) {
	s := DefaultSchedule()
	annotated := s.Annotate(s.Slots())

	if len(annotated) != 11 {
		t.Fatalf("fully booked day must return the full grid, got %d", len(annotated))
	}
	for _, slot := range annotated {
		if slot.Available {
			t.Errorf("slot %s should be unavailable", slot.Time)
		}
	}
}
