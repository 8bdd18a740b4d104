package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	FullName              string    `gorm:"column:full_name;size:255;not null" json:"full_name"`
	Email                 string    `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	PasswordHash          string    `gorm:"column:password_hash;size:255;not null" json:"-"`
	Role                  string    `gorm:"column:role;size:50;not null;default:member" json:"role"`
	Phone                 string    `gorm:"column:phone;size:20;not null" json:"phone"`
	PhoneVerified         bool      `gorm:"column:phone_verified;default:false" json:"phone_verified"`
	EmailVerified         bool      `gorm:"column:email_verified;default:false" json:"email_verified"`
	Status                string    `gorm:"column:status;size:50;not null;default:inactive" json:"status"`
	Refresh               string    `gorm:"column:refresh_token;size:255" json:"-"`
	RefreshTokenExpiredAt time.Time `gorm:"column:refresh_token_expired_at" json:"-"`
	ProfilePicturePath    string    `gorm:"column:profile_picture_path;size:255" json:"profile_picture_path"`
	EmailVerificationCode string    `gorm:"size:6" json:"-"`
	VerificationExpiry    time.Time `json:"-"`

	Trainer *Trainer `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"trainer,omitempty"`
}

type Trainer struct {
	gorm.Model
	UserID      uint           `gorm:"column:user_id;not null" json:"user_id"`
	Specialties pq.StringArray `gorm:"column:specialties;type:text[]" json:"specialties"`
	Bio         string         `gorm:"column:bio;type:text" json:"bio"`
	Verified    bool           `gorm:"column:verified;default:false" json:"verified"`

	// Maintained from feedback as sessions get rated
	AverageRating float64 `gorm:"column:average_rating;default:0" json:"average_rating"`
	TotalRatings  int     `gorm:"column:total_ratings;default:0" json:"total_ratings"`

	User      *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Feedbacks []Feedback `gorm:"foreignKey:TrainerID" json:"feedbacks,omitempty"`
}

func (Trainer) TableName() string {
	return "trainers"
}

type PasswordResetToken struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null"`
	Token     string    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
}
