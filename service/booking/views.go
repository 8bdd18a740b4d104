package booking

import (
	"time"

	"github.com/fitcore/fitcore-server/cmd/models"
	"gorm.io/gorm"
)

// View is a derived listing filter over status plus booking_date relative to
// "today". It is computed here, once, rather than re-derived by every caller.
type View string

const (
	ViewAll       View = ""
	ViewUpcoming  View = "upcoming"
	ViewPast      View = "past"
	ViewPending   View = "pending"
	ViewConfirmed View = "confirmed"
	ViewCancelled View = "cancelled"
)

// ParseView validates a view query parameter.
func ParseView(raw string) (View, error) {
	switch View(raw) {
	case ViewAll, ViewUpcoming, ViewPast, ViewPending, ViewConfirmed, ViewCancelled:
		return View(raw), nil
	}
	return ViewAll, NewValidationError("unknown view %q", raw)
}

// ParseStatus validates a status filter parameter against the closed status
// enum. Empty means no filter; anything else unknown is rejected rather than
// silently matching nothing.
func ParseStatus(raw string) (models.BookingStatus, error) {
	switch s := models.BookingStatus(raw); s {
	case "", models.BookingPending, models.BookingConfirmed, models.BookingCompleted,
		models.BookingCancelled, models.BookingNoShow:
		return s, nil
	}
	return "", NewValidationError("unknown status %q", raw)
}

// applyView narrows a bookings query to the requested derived view.
// upcoming = booking_date >= today and still active;
// past = booking_date < today or the booking reached a terminal status.
func applyView(q *gorm.DB, v View, today time.Time) *gorm.DB {
	day := civilDate(today)
	switch v {
	case ViewUpcoming:
		return q.Where("booking_date >= ? AND status IN ?", day,
			[]models.BookingStatus{models.BookingPending, models.BookingConfirmed})
	case ViewPast:
		return q.Where("booking_date < ? OR status IN ?", day,
			[]models.BookingStatus{models.BookingCompleted, models.BookingCancelled, models.BookingNoShow})
	case ViewPending:
		return q.Where("status = ?", models.BookingPending)
	case ViewConfirmed:
		return q.Where("status = ?", models.BookingConfirmed)
	case ViewCancelled:
		return q.Where("status = ?", models.BookingCancelled)
	default:
		return q
	}
}

// Classify returns which of the upcoming/past views a booking belongs to.
// The two are exhaustive and mutually exclusive: an active booking dated
// today or later is upcoming, everything else is past.
func Classify(b models.Booking, today time.Time) View {
	if b.Status.Active() && !b.BookingDate.Before(civilDate(today)) {
		return ViewUpcoming
	}
	return ViewPast
}

// civilDate truncates a timestamp to its calendar date.
func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
