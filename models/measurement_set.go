package models

import (
	"time"

	"gorm.io/gorm"
)

// MeasurementSet represents one order's garment measurements plus its
// job/payment/fulfillment metadata, scoped to a customer
type MeasurementSet struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	CustomerID     uint           `gorm:"not null;index" json:"customer_id"` // foreign key to customers table
	Customer       Customer       `gorm:"foreignKey:CustomerID" json:"-"`
	Date           time.Time      `gorm:"not null" json:"date"`                     // stamped with the current time on creation
	Measurements   string         `gorm:"type:text" json:"measurements"`            // opaque JSON payload, not validated here
	JobNumber      *string        `json:"job_number"`                               // nullable
	RequestDate    *time.Time     `json:"request_date"`                             // nullable
	PaymentStatus  string         `gorm:"not null;default:'Unpaid'" json:"payment_status"`
	OrderStatus    string         `gorm:"not null;default:'Pending'" json:"order_status"`
	CompletionDate *time.Time     `json:"completion_date"`                          // nullable, stamped when order status becomes Completed
	HandoverDate   *time.Time     `json:"handover_date"`                            // nullable, stamped when order status becomes Handed Over
	PhotoS3Key     *string        `json:"photo_s3_key"`                             // nullable, S3 key for the garment reference photo
	PhotoURL       *string        `gorm:"-" json:"photo_url,omitempty"`             // computed field, presigned URL for the photo
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the MeasurementSet model
func (MeasurementSet) TableName() string {
	return "measurement_sets"
}

// ApplyOrderStatus overwrites the order status and stamps the derived dates.
// Completed stamps the completion date with now, Handed Over stamps the
// handover date with now. No other status touches either date, so a stamped
// date survives a regression to an earlier stage.
func (m *MeasurementSet) ApplyOrderStatus(status OrderStatus, now time.Time) {
	m.OrderStatus = string(status)
	switch status {
	case OrderStatusCompleted:
		m.CompletionDate = &now
	case OrderStatusHandedOver:
		m.HandoverDate = &now
	}
}
