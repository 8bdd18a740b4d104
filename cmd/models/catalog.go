package models

import (
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Service is a catalog entry for a bookable session type, e.g. personal
// training or a yoga class. DurationMinutes is copied onto bookings at
// creation time.
type Service struct {
	gorm.Model
	Name            string         `gorm:"column:name;size:255;not null" json:"name"`
	Description     string         `gorm:"column:description;type:text" json:"description"`
	DurationMinutes int            `gorm:"column:duration_minutes;not null;default:60" json:"duration_minutes"`
	Price           float64        `gorm:"column:price;not null" json:"price"`
	Tags            pq.StringArray `gorm:"column:tags;type:text[]" json:"tags,omitempty"`
	Active          bool           `gorm:"column:active;default:true" json:"active"`
}

func (Service) TableName() string {
	return "services"
}
