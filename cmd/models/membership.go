package models

import (
	"time"

	"gorm.io/gorm"
)

type MembershipPlan struct {
	gorm.Model
	Name        string  `gorm:"column:name;size:255;not null" json:"name"`
	Description string  `gorm:"column:description;type:text" json:"description"`
	Interval    string  `gorm:"column:interval;size:20;not null" json:"interval"` // monthly, quarterly, annual
	Price       float64 `gorm:"column:price;not null" json:"price"`
	Active      bool    `gorm:"column:active;default:true" json:"active"`
}

func (MembershipPlan) TableName() string {
	return "membership_plans"
}

type Membership struct {
	gorm.Model
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	PlanID    uint      `gorm:"not null" json:"plan_id"`
	Status    string    `gorm:"size:20;not null;default:pending" json:"status"` // pending, active, expired, cancelled
	Amount    float64   `json:"amount"`
	PaymentID string    `gorm:"unique;not null" json:"payment_id"`
	StartDate time.Time `gorm:"index" json:"start_date"`
	EndDate   time.Time `gorm:"index" json:"end_date"`

	User User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user,omitempty"`
	Plan MembershipPlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}

func (Membership) TableName() string {
	return "memberships"
}

type Transaction struct {
	gorm.Model
	UserID  uint    `gorm:"column:user_id;not null" json:"user_id"`
	Amount  float64 `gorm:"column:amount;type:float;not null" json:"amount"`
	Method  string  `gorm:"column:method;type:text;not null" json:"method"`
	Purpose string  `gorm:"column:purpose;type:text;not null" json:"purpose"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
