package booking

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fitcore/fitcore-server/cmd/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const dateLayout = "2006-01-02"

type EventKind string

const (
	EventCreated     EventKind = "booking.created"
	EventCancelled   EventKind = "booking.cancelled"
	EventRescheduled EventKind = "booking.rescheduled"
)

// Event is handed to the Notifier when a booking changes state. Delivery is
// best-effort; a notifier failure never rolls back the booking.
type Event struct {
	BookingID uint      `json:"booking_id"`
	MemberID  uint      `json:"member_id"`
	Kind      EventKind `json:"kind"`
}

type Notifier interface {
	NotifyBookingEvent(event Event) error
}

// Actor distinguishes member self-service from back-office actions.
// Members may only touch their own bookings and must give a cancellation
// reason; admins are exempt from both.
type Actor string

const (
	ActorMember Actor = "member"
	ActorAdmin  Actor = "admin"
)

type Config struct {
	Schedule *Schedule
	Location *time.Location

	// LeadTime is the minimum notice required between now and the session
	// start for create/reschedule. Zero allows same-day booking.
	LeadTime time.Duration

	// CancellationNotice is the window inside which a cancellation is still
	// permitted but flagged late_cancellation for downstream fee logic.
	CancellationNotice time.Duration
}

// ConfigFromEnv loads the booking policy from the environment:
// GYM_SLOT_TIMES, GYM_TIMEZONE, BOOKING_LEAD_TIME, CANCELLATION_NOTICE.
func ConfigFromEnv() Config {
	cfg := Config{
		Schedule:           ScheduleFromEnv(),
		Location:           time.Local,
		CancellationNotice: 24 * time.Hour,
	}
	if tz := os.Getenv("GYM_TIMEZONE"); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			cfg.Location = loc
		} else {
			log.Printf("Invalid GYM_TIMEZONE %q, using local time: %v", tz, err)
		}
	}
	if raw := os.Getenv("BOOKING_LEAD_TIME"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
			cfg.LeadTime = d
		}
	}
	if raw := os.Getenv("CANCELLATION_NOTICE"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
			cfg.CancellationNotice = d
		}
	}
	return cfg
}

// Service owns booking records and their lifecycle. All slot-conflict checks
// run inside a transaction and are backed by a partial unique index on
// (trainer_id, booking_date, booking_time) over active bookings, so two
// concurrent claims on the same slot cannot both commit.
type Service struct {
	db       *gorm.DB
	cfg      Config
	notifier Notifier
	now      func() time.Time
}

func NewService(db *gorm.DB, cfg Config, notifier Notifier) *Service {
	if cfg.Schedule == nil {
		cfg.Schedule = DefaultSchedule()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Service{db: db, cfg: cfg, notifier: notifier, now: time.Now}
}

// Schedule exposes the configured slot grid to the availability handlers.
func (s *Service) Schedule() *Schedule {
	return s.cfg.Schedule
}

type CreateInput struct {
	MemberID    uint
	TrainerID   uint
	ServiceID   uint
	Date        string
	Time        string
	SessionType models.SessionType
	Notes       string
}

// Create books a trainer slot for a member. The new booking starts pending
// with the duration defaulted from the service catalog entry.
func (s *Service) Create(in CreateInput) (*models.Booking, error) {
	if in.MemberID == 0 || in.TrainerID == 0 || in.ServiceID == 0 || in.Date == "" || in.Time == "" {
		return nil, NewValidationError("member, trainer, service, date and time are required")
	}
	sessionType := in.SessionType
	if sessionType == "" {
		sessionType = models.SessionOneOnOne
	}
	if sessionType != models.SessionOneOnOne && sessionType != models.SessionGroup {
		return nil, NewValidationError("unknown session type %q", sessionType)
	}
	date, err := s.parseSlot(in.Date, in.Time)
	if err != nil {
		return nil, err
	}

	var created models.Booking
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var trainer models.Trainer
		if err := tx.First(&trainer, in.TrainerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError("trainer not found")
			}
			return err
		}
		var svc models.Service
		if err := tx.First(&svc, in.ServiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError("service not found")
			}
			return err
		}
		if err := s.checkSlotFree(tx, in.TrainerID, date, in.Time, 0); err != nil {
			return err
		}

		booking := models.Booking{
			BookingNumber:   newBookingNumber(),
			MemberID:        in.MemberID,
			TrainerID:       in.TrainerID,
			ServiceID:       in.ServiceID,
			BookingDate:     date,
			BookingTime:     in.Time,
			DurationMinutes: svc.DurationMinutes,
			SessionType:     sessionType,
			Status:          models.BookingPending,
			PaymentStatus:   models.PaymentUnpaid,
			Notes:           in.Notes,
		}
		if err := tx.Create(&booking).Error; err != nil {
			if isDuplicateKey(err) {
				return NewConflictError("time slot is already booked")
			}
			return err
		}
		created = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(Event{BookingID: created.ID, MemberID: created.MemberID, Kind: EventCreated})
	return &created, nil
}

// Cancel transitions a booking to cancelled. Members must supply a reason;
// cancellations inside the notice window are flagged late_cancellation.
// Already-paid bookings flip payment_status to refunded.
func (s *Service) Cancel(bookingID uint, actor Actor, actorID uint, reason string) (*models.Booking, error) {
	reason = strings.TrimSpace(reason)
	if actor == ActorMember && reason == "" {
		return nil, NewValidationError("cancellation reason is required")
	}

	var out models.Booking
	err := s.db.Transaction(func(tx *gorm.DB) error {
		b, err := s.lockBooking(tx, bookingID, actor, actorID)
		if err != nil {
			return err
		}
		if b.Status.Terminal() {
			return NewInvalidStateError("cannot cancel a %s booking", b.Status)
		}

		b.Status = models.BookingCancelled
		b.LateCancellation = s.withinNotice(*b)
		if actor == ActorMember {
			b.CancellationReason = reason
		}
		if b.PaymentStatus == models.PaymentPaid {
			b.PaymentStatus = models.PaymentRefunded
		}
		if err := tx.Save(b).Error; err != nil {
			return err
		}
		out = *b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(Event{BookingID: out.ID, MemberID: out.MemberID, Kind: EventCancelled})
	return &out, nil
}

type RescheduleInput struct {
	Date string
	Time string
}

// Reschedule moves a pending or confirmed booking to a new slot under the
// same atomic conflict guard as Create, and increments reschedule_count.
func (s *Service) Reschedule(bookingID uint, actor Actor, actorID uint, in RescheduleInput) (*models.Booking, error) {
	if in.Date == "" || in.Time == "" {
		return nil, NewValidationError("new date and time are required")
	}
	date, err := s.parseSlot(in.Date, in.Time)
	if err != nil {
		return nil, err
	}

	var out models.Booking
	err = s.db.Transaction(func(tx *gorm.DB) error {
		b, err := s.lockBooking(tx, bookingID, actor, actorID)
		if err != nil {
			return err
		}
		if !b.Status.Active() {
			return NewInvalidStateError("cannot reschedule a %s booking", b.Status)
		}
		if err := s.checkSlotFree(tx, b.TrainerID, date, in.Time, b.ID); err != nil {
			return err
		}

		b.BookingDate = date
		b.BookingTime = in.Time
		b.RescheduleCount++
		if err := tx.Save(b).Error; err != nil {
			if isDuplicateKey(err) {
				return NewConflictError("time slot is already booked")
			}
			return err
		}
		out = *b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(Event{BookingID: out.ID, MemberID: out.MemberID, Kind: EventRescheduled})
	return &out, nil
}

// Confirm marks a pending booking confirmed (back-office action).
func (s *Service) Confirm(bookingID uint) (*models.Booking, error) {
	return s.transition(bookingID, models.BookingConfirmed)
}

// Complete marks a session as having taken place.
func (s *Service) Complete(bookingID uint) (*models.Booking, error) {
	return s.transition(bookingID, models.BookingCompleted)
}

// MarkNoShow records that the member did not turn up.
func (s *Service) MarkNoShow(bookingID uint) (*models.Booking, error) {
	return s.transition(bookingID, models.BookingNoShow)
}

// canTransition encodes the lifecycle: pending may be confirmed; any active
// booking may be completed, cancelled or marked no-show; terminal states
// accept nothing.
func canTransition(from, to models.BookingStatus) bool {
	switch to {
	case models.BookingConfirmed:
		return from == models.BookingPending
	case models.BookingCompleted, models.BookingCancelled, models.BookingNoShow:
		return from.Active()
	default:
		return false
	}
}

func (s *Service) transition(bookingID uint, to models.BookingStatus) (*models.Booking, error) {
	var out models.Booking
	err := s.db.Transaction(func(tx *gorm.DB) error {
		b, err := s.lockBooking(tx, bookingID, ActorAdmin, 0)
		if err != nil {
			return err
		}
		if !canTransition(b.Status, to) {
			return NewInvalidStateError("cannot mark a %s booking %s", b.Status, to)
		}
		b.Status = to
		if err := tx.Save(b).Error; err != nil {
			return err
		}
		out = *b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type FeedbackInput struct {
	Rating         int
	Review         string
	WouldRecommend bool
}

// AttachFeedback records the one permitted rating on a completed booking and
// folds it into the trainer's aggregate.
func (s *Service) AttachFeedback(bookingID uint, memberID uint, in FeedbackInput) (*models.Feedback, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, NewValidationError("rating must be between 1 and 5")
	}

	var out models.Feedback
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var b models.Booking
		if err := tx.First(&b, bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError("booking not found")
			}
			return err
		}
		if memberID != 0 && b.MemberID != memberID {
			return NewNotFoundError("booking not found")
		}
		if b.Status != models.BookingCompleted {
			return NewInvalidStateError("feedback is only accepted on completed sessions")
		}

		feedback := models.Feedback{
			BookingID:      b.ID,
			MemberID:       b.MemberID,
			TrainerID:      b.TrainerID,
			Rating:         in.Rating,
			Review:         in.Review,
			WouldRecommend: in.WouldRecommend,
		}
		if err := tx.Create(&feedback).Error; err != nil {
			if isDuplicateKey(err) {
				return NewConflictError("feedback already submitted for this booking")
			}
			return err
		}

		var trainer models.Trainer
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&trainer, b.TrainerID).Error; err != nil {
			return err
		}
		total := trainer.TotalRatings + 1
		trainer.AverageRating = (trainer.AverageRating*float64(trainer.TotalRatings) + float64(in.Rating)) / float64(total)
		trainer.TotalRatings = total
		if err := tx.Save(&trainer).Error; err != nil {
			return err
		}

		out = feedback
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePaymentStatus sets the payment axis independently of the lifecycle.
func (s *Service) UpdatePaymentStatus(bookingID uint, status models.PaymentStatus) (*models.Booking, error) {
	switch status {
	case models.PaymentUnpaid, models.PaymentPaid, models.PaymentRefunded:
	default:
		return nil, NewValidationError("unknown payment status %q", status)
	}
	var b models.Booking
	if err := s.db.First(&b, bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("booking not found")
		}
		return nil, err
	}
	if err := s.db.Model(&b).Update("payment_status", status).Error; err != nil {
		return nil, err
	}
	b.PaymentStatus = status
	return &b, nil
}

// Get loads a booking with its display relations.
func (s *Service) Get(bookingID uint) (*models.Booking, error) {
	var b models.Booking
	err := s.db.Preload("Member").Preload("Trainer").Preload("Trainer.User").Preload("Service").
		First(&b, bookingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("booking not found")
		}
		return nil, err
	}
	return &b, nil
}

// ListByMember returns a member's bookings narrowed to a derived view, newest
// session first, with the total for pagination.
func (s *Service) ListByMember(memberID uint, view View, page, pageSize int) ([]models.Booking, int64, error) {
	q := s.db.Model(&models.Booking{}).Where("member_id = ?", memberID)
	return s.list(q, view, page, pageSize)
}

// ListByTrainer returns a trainer's bookings narrowed to a derived view.
func (s *Service) ListByTrainer(trainerID uint, view View, page, pageSize int) ([]models.Booking, int64, error) {
	q := s.db.Model(&models.Booking{}).Where("trainer_id = ?", trainerID)
	return s.list(q, view, page, pageSize)
}

// ListAll is the back-office listing with optional status and date filters.
func (s *Service) ListAll(status models.BookingStatus, date string, page, pageSize int) ([]models.Booking, int64, error) {
	q := s.db.Model(&models.Booking{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if date != "" {
		q = q.Where("booking_date = ?", date)
	}
	return s.list(q, ViewAll, page, pageSize)
}

func (s *Service) list(q *gorm.DB, view View, page, pageSize int) ([]models.Booking, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	q = applyView(q, view, s.now().In(s.cfg.Location))

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// booking_time holds 12-hour labels, so a plain ORDER BY would sort
	// "01:00 PM" ahead of "09:00 AM" within a day.
	var bookings []models.Booking
	err := q.Preload("Trainer").Preload("Trainer.User").Preload("Service").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Order("booking_date DESC, to_timestamp(booking_time, 'HH12:MI AM') DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// BookedTimes returns the slot labels claimed by active bookings for a
// trainer on a date.
func (s *Service) BookedTimes(trainerID uint, date time.Time) ([]string, error) {
	var times []string
	err := s.db.Model(&models.Booking{}).
		Where("trainer_id = ? AND booking_date = ? AND status IN ?", trainerID, date,
			[]models.BookingStatus{models.BookingPending, models.BookingConfirmed}).
		Pluck("booking_time", &times).Error
	return times, err
}

// Availability computes the full annotated slot grid for a trainer and date.
// Every configured slot is returned, booked ones flagged unavailable.
func (s *Service) Availability(trainerID uint, dateStr string) ([]SlotStatus, error) {
	date, err := time.ParseInLocation(dateLayout, dateStr, s.cfg.Location)
	if err != nil {
		return nil, NewValidationError("invalid date format, use YYYY-MM-DD")
	}
	var trainer models.Trainer
	if err := s.db.First(&trainer, trainerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("trainer not found")
		}
		return nil, err
	}
	booked, err := s.BookedTimes(trainerID, date)
	if err != nil {
		return nil, err
	}
	return s.cfg.Schedule.Annotate(booked), nil
}

// parseSlot validates a date/slot pair for create and reschedule: the date
// must parse, the slot must be on the schedule, and the session start must
// honor the lead-time policy.
func (s *Service) parseSlot(dateStr, slot string) (time.Time, error) {
	date, err := time.ParseInLocation(dateLayout, dateStr, s.cfg.Location)
	if err != nil {
		return time.Time{}, NewValidationError("invalid date format, use YYYY-MM-DD")
	}
	if !s.cfg.Schedule.Contains(slot) {
		return time.Time{}, NewValidationError("%q is not a bookable time slot", slot)
	}
	now := s.now().In(s.cfg.Location)
	if date.Before(civilDate(now)) {
		return time.Time{}, NewValidationError("booking date cannot be in the past")
	}
	if s.cfg.LeadTime > 0 {
		start := sessionStart(date, slot, s.cfg.Location)
		if start.Before(now.Add(s.cfg.LeadTime)) {
			return time.Time{}, NewValidationError("bookings require at least %s notice", s.cfg.LeadTime)
		}
	}
	return date, nil
}

// checkSlotFree is the advisory in-transaction pre-check; the partial unique
// index remains the authoritative guard against concurrent inserts.
func (s *Service) checkSlotFree(tx *gorm.DB, trainerID uint, date time.Time, slot string, excludeID uint) error {
	q := tx.Model(&models.Booking{}).
		Where("trainer_id = ? AND booking_date = ? AND booking_time = ? AND status IN ?", trainerID, date, slot,
			[]models.BookingStatus{models.BookingPending, models.BookingConfirmed})
	if excludeID != 0 {
		q = q.Where("id != ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return NewConflictError("time slot is already booked")
	}
	return nil
}

// lockBooking loads a booking FOR UPDATE and enforces member ownership.
// Foreign bookings look like not-found to members.
func (s *Service) lockBooking(tx *gorm.DB, bookingID uint, actor Actor, actorID uint) (*models.Booking, error) {
	var b models.Booking
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, bookingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("booking not found")
		}
		return nil, err
	}
	if actor == ActorMember && actorID != 0 && b.MemberID != actorID {
		return nil, NewNotFoundError("booking not found")
	}
	return &b, nil
}

// withinNotice reports whether the session starts inside the cancellation
// notice window.
func (s *Service) withinNotice(b models.Booking) bool {
	if s.cfg.CancellationNotice <= 0 {
		return false
	}
	start := sessionStart(b.BookingDate, b.BookingTime, s.cfg.Location)
	return start.Sub(s.now().In(s.cfg.Location)) < s.cfg.CancellationNotice
}

func newBookingNumber() string {
	ref := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return "BK-" + time.Now().Format("20060102") + "-" + ref[:8]
}

func (s *Service) notify(e Event) {
	if s.notifier == nil {
		return
	}
	go func() {
		if err := s.notifier.NotifyBookingEvent(e); err != nil {
			log.Printf("Error delivering %s notification for booking %d: %v", e.Kind, e.BookingID, err)
		}
	}()
}
