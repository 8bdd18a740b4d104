package notification

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/fitcore/fitcore-server/cmd/models"
	"github.com/fitcore/fitcore-server/service/booking"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"
)

// BookingNotifier fans booking lifecycle events out to the member's email
// and registered devices. It satisfies booking.Notifier.
type BookingNotifier struct {
	handler *NotificationHandler
	db      *gorm.DB
}

func NewBookingNotifier(db *gorm.DB) *BookingNotifier {
	return &BookingNotifier{
		handler: NewNotificationHandler(db),
		db:      db,
	}
}

var eventMessages = map[booking.EventKind]struct {
	subject string
	body    string
}{
	booking.EventCreated: {
		subject: "Booking received",
		body:    "Your session request %s has been received and is awaiting confirmation.",
	},
	booking.EventCancelled: {
		subject: "Booking cancelled",
		body:    "Your session %s has been cancelled.",
	},
	booking.EventRescheduled: {
		subject: "Booking rescheduled",
		body:    "Your session %s has been moved to a new time.",
	},
}

// NotifyBookingEvent delivers email and push for a booking event. Failures
// are returned so the caller can log them, but the booking itself has
// already been committed by the time this runs.
func (n *BookingNotifier) NotifyBookingEvent(event booking.Event) error {
	msg, ok := eventMessages[event.Kind]
	if !ok {
		return fmt.Errorf("unknown booking event kind: %s", event.Kind)
	}

	var bk models.Booking
	if err := n.db.First(&bk, event.BookingID).Error; err != nil {
		return fmt.Errorf("loading booking %d: %w", event.BookingID, err)
	}

	var member models.User
	if err := n.db.First(&member, event.MemberID).Error; err != nil {
		return fmt.Errorf("loading member %d: %w", event.MemberID, err)
	}

	body := fmt.Sprintf(msg.body, bk.BookingNumber)

	if err := sendBookingEmail(member.Email, msg.subject, body); err != nil {
		log.Printf("Error sending booking email to %s: %v", member.Email, err)
	}

	n.pushToMemberDevices(event, member.ID, msg.subject, body)

	history := models.NotificationHistory{
		UserID: member.ID,
		Title:  msg.subject,
		Body:   body,
		Data:   encodeEventData(event),
		Status: "sent",
		SentAt: time.Now(),
	}
	if err := n.db.Create(&history).Error; err != nil {
		log.Printf("Error creating notification history: %v", err)
	}

	return nil
}

func (n *BookingNotifier) pushToMemberDevices(event booking.Event, userID uint, title, body string) {
	var devices []models.Device
	if err := n.db.Where("user_id = ?", userID).Find(&devices).Error; err != nil {
		log.Printf("Error retrieving devices for user %d: %v", userID, err)
		return
	}
	if len(devices) == 0 {
		return
	}

	var tokens []string
	for _, device := range devices {
		tokens = append(tokens, device.Token)
	}

	data := map[string]interface{}{
		"booking_id": event.BookingID,
		"kind":       string(event.Kind),
	}

	if _, err := n.handler.sendExpoNotificationSDK(tokens, title, body, data); err != nil {
		log.Printf("Error sending push notification for booking %d: %v", event.BookingID, err)
	}
}

func encodeEventData(event booking.Event) string {
	data, _ := json.Marshal(event)
	return string(data)
}

func sendBookingEmail(email, subject, body string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")

	m := gomail.NewMessage()
	m.SetHeader("From", smtpUser)
	m.SetHeader("To", email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	port, err := strconv.Atoi(smtpPort)
	if err != nil {
		return fmt.Errorf("invalid SMTP port: %v", err)
	}
	d := gomail.NewDialer(smtpHost, port, smtpUser, smtpPass)

	return d.DialAndSend(m)
}
