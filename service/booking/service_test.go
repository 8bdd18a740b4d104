package booking

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/fitcore/fitcore-server/cmd/models"
)

func testService(now time.Time, cfg Config) *Service {
	if cfg.Schedule == nil {
		cfg.Schedule = DefaultSchedule()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{cfg: cfg, now: func() time.Time { return now }}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to models.BookingStatus
		want     bool
	}{
		{models.BookingPending, models.BookingConfirmed, true},
		{models.BookingPending, models.BookingCancelled, true},
		{models.BookingPending, models.BookingCompleted, true},
		{models.BookingConfirmed, models.BookingCompleted, true},
		{models.BookingConfirmed, models.BookingNoShow, true},
		{models.BookingConfirmed, models.BookingConfirmed, false},
		{models.BookingCompleted, models.BookingCancelled, false},
		{models.BookingCancelled, models.BookingConfirmed, false},
		{models.BookingNoShow, models.BookingCompleted, false},
		{models.BookingCancelled, models.BookingCancelled, false},
	}
	for _, c := range cases {
		if got := canTransition(c.from, c.to); got != c.want {
			t.Errorf("canTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestTerminalStatesAreClosed(t *testing.T) {
	terminals := []models.BookingStatus{models.BookingCompleted, models.BookingCancelled, models.BookingNoShow}
	targets := []models.BookingStatus{
		models.BookingPending, models.BookingConfirmed, models.BookingCompleted,
		models.BookingCancelled, models.BookingNoShow,
	}
	for _, from := range terminals {
		for _, to := range targets {
			if canTransition(from, to) {
				t.Errorf("terminal state %s must not transition to %s", from, to)
			}
		}
	}
}

func TestParseSlotValidation(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	s := testService(now, Config{})

	if _, err := s.parseSlot("2026-03-10", "10:00 AM"); err != nil {
		t.Fatalf("valid future slot rejected: %v", err)
	}
	// Same-day booking is allowed with zero lead time
	if _, err := s.parseSlot("2026-03-09", "05:00 PM"); err != nil {
		t.Errorf("same-day booking rejected: %v", err)
	}

	if _, err := s.parseSlot("2026-03-08", "10:00 AM"); kindOf(err) != KindValidation {
		t.Errorf("past date should fail validation, got %v", err)
	}
	if _, err := s.parseSlot("10/03/2026", "10:00 AM"); kindOf(err) != KindValidation {
		t.Errorf("malformed date should fail validation, got %v", err)
	}
	if _, err := s.parseSlot("2026-03-10", "10:15 AM"); kindOf(err) != KindValidation {
		t.Errorf("off-grid slot should fail validation, got %v", err)
	}
}

func TestParseSlotLeadTime(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	s := testService(now, Config{LeadTime: 24 * time.Hour})

	// 10:00 AM next day is under 24h away
	if _, err := s.parseSlot("2026-03-10", "10:00 AM"); kindOf(err) != KindValidation {
		t.Errorf("slot inside lead time should fail validation, got %v", err)
	}
	// 01:00 PM next day clears the 24h notice
	if _, err := s.parseSlot("2026-03-10", "01:00 PM"); err != nil {
		t.Errorf("slot outside lead time rejected: %v", err)
	}
}

func TestWithinNoticeFlagsLateCancellation(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	s := testService(now, Config{CancellationNotice: 24 * time.Hour})

	late := models.Booking{
		BookingDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		BookingTime: "10:00 AM",
	}
	if !s.withinNotice(late) {
		t.Error("cancellation 22h before the session should be flagged late")
	}

	early := models.Booking{
		BookingDate: time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		BookingTime: "10:00 AM",
	}
	if s.withinNotice(early) {
		t.Error("cancellation 3 days out should not be flagged late")
	}
}

func TestClassifyViews(t *testing.T) {
	today := time.Date(2026, 3, 9, 15, 30, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }

	cases := []struct {
		booking models.Booking
		want    View
	}{
		{models.Booking{Status: models.BookingPending, BookingDate: day(10)}, ViewUpcoming},
		{models.Booking{Status: models.BookingConfirmed, BookingDate: day(9)}, ViewUpcoming},
		{models.Booking{Status: models.BookingConfirmed, BookingDate: day(8)}, ViewPast},
		{models.Booking{Status: models.BookingCancelled, BookingDate: day(10)}, ViewPast},
		{models.Booking{Status: models.BookingCompleted, BookingDate: day(8)}, ViewPast},
		{models.Booking{Status: models.BookingNoShow, BookingDate: day(12)}, ViewPast},
	}
	for i, c := range cases {
		if got := Classify(c.booking, today); got != c.want {
			t.Errorf("case %d: Classify = %q, want %q", i, got, c.want)
		}
	}
}

// Cancellation and feedback guards reject bad input before touching the
// database. Slot uniqueness itself is delegated to the partial unique index;
// TestIsDuplicateKey covers how a violation surfaces as a conflict.
func TestCancelRequiresMemberReason(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	s := testService(now, Config{})

	for _, reason := range []string{"", "   ", "\t"} {
		if _, err := s.Cancel(1, ActorMember, 1, reason); kindOf(err) != KindValidation {
			t.Errorf("member cancel with blank reason %q should fail validation, got %v", reason, err)
		}
	}
}

func TestFeedbackRatingRange(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	s := testService(now, Config{})

	for _, rating := range []int{-1, 0, 6, 100} {
		if _, err := s.AttachFeedback(1, 1, FeedbackInput{Rating: rating}); kindOf(err) != KindValidation {
			t.Errorf("rating %d should fail validation, got %v", rating, err)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, raw := range []string{"", "pending", "confirmed", "completed", "cancelled", "no-show"} {
		if _, err := ParseStatus(raw); err != nil {
			t.Errorf("ParseStatus(%q) unexpectedly failed: %v", raw, err)
		}
	}
	if _, err := ParseStatus("finished"); kindOf(err) != KindValidation {
		t.Errorf("unknown status should fail validation, got %v", err)
	}
}

func TestParseView(t *testing.T) {
	for _, raw := range []string{"", "upcoming", "past", "pending", "confirmed", "cancelled"} {
		if _, err := ParseView(raw); err != nil {
			t.Errorf("ParseView(%q) unexpectedly failed: %v", raw, err)
		}
	}
	if _, err := ParseView("finished"); kindOf(err) != KindValidation {
		t.Errorf("unknown view should fail validation, got %v", err)
	}
}

func TestBookingNumberFormat(t *testing.T) {
	n := newBookingNumber()
	if !strings.HasPrefix(n, "BK-") {
		t.Fatalf("booking number %q missing BK- prefix", n)
	}
	parts := strings.Split(n, "-")
	if len(parts) != 3 || len(parts[1]) != 8 || len(parts[2]) != 8 {
		t.Fatalf("booking number %q not in BK-YYYYMMDD-XXXXXXXX form", n)
	}
	if n == newBookingNumber() {
		t.Error("consecutive booking numbers should differ")
	}
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NewValidationError("bad"), http.StatusBadRequest},
		{NewNotFoundError("missing"), http.StatusNotFound},
		{NewConflictError("taken"), http.StatusConflict},
		{NewInvalidStateError("done"), http.StatusConflict},
	}
	for _, c := range cases {
		if got := HTTPStatus(c.err); got != c.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestIsDuplicateKey(t *testing.T) {
	if !isDuplicateKey(errDuplicate{}) {
		t.Error("postgres duplicate key error not detected")
	}
	if isDuplicateKey(nil) {
		t.Error("nil is not a duplicate key error")
	}
}

type errDuplicate struct{}

func (errDuplicate) Error() string {
	return `ERROR: duplicate key value violates unique constraint "idx_active_trainer_slot" (SQLSTATE 23505)`
}

func kindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return ""
}
