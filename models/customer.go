package models

import (
	"time"

	"gorm.io/gorm"
)

// Customer represents a customer record in the shop's CRM
type Customer struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	Name            string           `gorm:"not null" json:"name"`
	NIC             string           `gorm:"column:nic;not null" json:"nic"` // national identity card number
	Contact         string           `gorm:"not null" json:"contact"`
	OrderHistory    string           `gorm:"type:text" json:"order_history"`
	Preferences     string           `gorm:"type:text" json:"preferences"`
	UserID          uint             `gorm:"not null;index" json:"user_id"` // foreign key to users table (owning shop user)
	User            User             `gorm:"foreignKey:UserID" json:"-"`
	MeasurementSets []MeasurementSet `gorm:"foreignKey:CustomerID" json:"measurement_sets,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	DeletedAt       gorm.DeletedAt   `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Customer model
func (Customer) TableName() string {
	return "customers"
}
