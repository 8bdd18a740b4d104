package models

import (
	"time"

	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
	BookingNoShow    BookingStatus = "no-show"
)

// Terminal reports whether no further status transition is allowed.
func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled || s == BookingNoShow
}

// Active reports whether the booking still claims its trainer slot.
func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingConfirmed
}

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

type SessionType string

const (
	SessionOneOnOne SessionType = "one-on-one"
	SessionGroup    SessionType = "group"
)

type Booking struct {
	gorm.Model
	BookingNumber      string        `gorm:"column:booking_number;size:30;not null;uniqueIndex" json:"booking_number"`
	MemberID           uint          `gorm:"column:member_id;not null;index" json:"member_id"`
	TrainerID          uint          `gorm:"column:trainer_id;not null;index" json:"trainer_id"`
	ServiceID          uint          `gorm:"column:service_id;not null" json:"service_id"`
	BookingDate        time.Time     `gorm:"column:booking_date;type:date;not null;index" json:"booking_date"`
	BookingTime        string        `gorm:"column:booking_time;size:10;not null" json:"booking_time"`
	DurationMinutes    int           `gorm:"column:duration_minutes;not null" json:"duration_minutes"`
	SessionType        SessionType   `gorm:"column:session_type;size:20;not null;default:one-on-one" json:"session_type"`
	Status             BookingStatus `gorm:"column:status;size:20;not null;default:pending" json:"status"`
	PaymentStatus      PaymentStatus `gorm:"column:payment_status;size:20;not null;default:unpaid" json:"payment_status"`
	Notes              string        `gorm:"column:notes;type:text" json:"notes,omitempty"`
	CancellationReason string        `gorm:"column:cancellation_reason;type:text" json:"cancellation_reason,omitempty"`
	LateCancellation   bool          `gorm:"column:late_cancellation;default:false" json:"late_cancellation"`
	RescheduleCount    int           `gorm:"column:reschedule_count;not null;default:0" json:"reschedule_count"`

	Member  *User    `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	Trainer *Trainer `gorm:"foreignKey:TrainerID" json:"trainer,omitempty"`
	Service *Service `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
}

func (Booking) TableName() string {
	return "bookings"
}

type Feedback struct {
	gorm.Model
	BookingID      uint   `gorm:"column:booking_id;not null;uniqueIndex" json:"booking_id"`
	MemberID       uint   `gorm:"column:member_id;not null" json:"member_id"`
	TrainerID      uint   `gorm:"column:trainer_id;not null;index" json:"trainer_id"`
	Rating         int    `gorm:"column:rating;not null" json:"rating"`
	Review         string `gorm:"column:review;type:text" json:"review,omitempty"`
	WouldRecommend bool   `gorm:"column:would_recommend;default:false" json:"would_recommend"`

	Booking *Booking `gorm:"foreignKey:BookingID" json:"-"`
	Member  *User    `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	Trainer *Trainer `gorm:"foreignKey:TrainerID" json:"-"`
}

func (Feedback) TableName() string {
	return "feedbacks"
}
