package services

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/tailorbook/tailorbook-api/models"
)

// Lifecycle errors
var (
	ErrCustomerNotFound       = errors.New("customer not found")
	ErrMeasurementSetNotFound = errors.New("measurement set not found")
	ErrInvalidOrderStatus     = errors.New("invalid order status")
	ErrInvalidPaymentStatus   = errors.New("invalid payment status")
)

// AddMeasurementSetInput carries the caller-supplied fields for a new
// measurement set. Fields are copied through verbatim; empty statuses fall
// back to Pending / Unpaid.
type AddMeasurementSetInput struct {
	Measurements  string
	JobNumber     *string
	RequestDate   *time.Time
	PaymentStatus models.PaymentStatus
	OrderStatus   models.OrderStatus
}

// OrderLifecycleService applies status transitions to a customer's
// measurement sets and derives the completion/handover timestamps from them.
// Transitions are unrestricted: any valid status may overwrite any other,
// and a stamped date is never cleared by a later transition.
type OrderLifecycleService struct {
	db    *gorm.DB
	cache CustomerViewCache
}

// NewOrderLifecycleService creates a new order lifecycle service
func NewOrderLifecycleService(db *gorm.DB, cache CustomerViewCache) *OrderLifecycleService {
	return &OrderLifecycleService{db: db, cache: cache}
}

// UpdateOrderStatus overwrites the order status of the measurement set
// belonging to the customer. Completed stamps the completion date with the
// current time, Handed Over stamps the handover date; no other status has a
// timestamp side effect. The cached customer view is invalidated.
func (s *OrderLifecycleService) UpdateOrderStatus(ctx context.Context, customerID, setID uint, status models.OrderStatus) (*models.MeasurementSet, error) {
	if !status.Valid() {
		return nil, ErrInvalidOrderStatus
	}

	set, err := s.findSet(ctx, customerID, setID)
	if err != nil {
		return nil, err
	}

	set.ApplyOrderStatus(status, time.Now())

	updates := map[string]interface{}{
		"order_status": set.OrderStatus,
	}
	switch status {
	case models.OrderStatusCompleted:
		updates["completion_date"] = set.CompletionDate
	case models.OrderStatusHandedOver:
		updates["handover_date"] = set.HandoverDate
	}

	if err := s.db.WithContext(ctx).Model(set).Updates(updates).Error; err != nil {
		return nil, err
	}

	s.invalidate(ctx, customerID)
	return set, nil
}

// UpdatePaymentStatus overwrites the payment status unconditionally. No
// derived timestamps. The cached customer view is invalidated.
func (s *OrderLifecycleService) UpdatePaymentStatus(ctx context.Context, customerID, setID uint, status models.PaymentStatus) (*models.MeasurementSet, error) {
	if !status.Valid() {
		return nil, ErrInvalidPaymentStatus
	}

	set, err := s.findSet(ctx, customerID, setID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(set).Update("payment_status", string(status)).Error; err != nil {
		return nil, err
	}
	set.PaymentStatus = string(status)

	s.invalidate(ctx, customerID)
	return set, nil
}

// AddMeasurementSet creates a new measurement set for the customer, stamped
// with the current time as its creation date. Caller-supplied fields are
// copied through verbatim. Fails if the customer does not exist or the
// insert is rejected by the store.
func (s *OrderLifecycleService) AddMeasurementSet(ctx context.Context, customerID uint, input AddMeasurementSetInput) (*models.MeasurementSet, error) {
	if input.OrderStatus != "" && !input.OrderStatus.Valid() {
		return nil, ErrInvalidOrderStatus
	}
	if input.PaymentStatus != "" && !input.PaymentStatus.Valid() {
		return nil, ErrInvalidPaymentStatus
	}

	var customer models.Customer
	if err := s.db.WithContext(ctx).First(&customer, customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}

	if input.OrderStatus == "" {
		input.OrderStatus = models.OrderStatusPending
	}
	if input.PaymentStatus == "" {
		input.PaymentStatus = models.PaymentStatusUnpaid
	}

	set := models.MeasurementSet{
		CustomerID:    customerID,
		Date:          time.Now(),
		Measurements:  input.Measurements,
		JobNumber:     input.JobNumber,
		RequestDate:   input.RequestDate,
		PaymentStatus: string(input.PaymentStatus),
		OrderStatus:   string(input.OrderStatus),
	}

	if err := s.db.WithContext(ctx).Create(&set).Error; err != nil {
		return nil, err
	}

	s.invalidate(ctx, customerID)
	return &set, nil
}

// findSet fetches the measurement set, scoped to the owning customer
func (s *OrderLifecycleService) findSet(ctx context.Context, customerID, setID uint) (*models.MeasurementSet, error) {
	var set models.MeasurementSet
	err := s.db.WithContext(ctx).
		Where("id = ? AND customer_id = ?", setID, customerID).
		First(&set).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMeasurementSetNotFound
		}
		return nil, err
	}
	return &set, nil
}

// invalidate drops the cached customer view. Cache failures are logged but
// never fail the operation.
func (s *OrderLifecycleService) invalidate(ctx context.Context, customerID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCustomer(ctx, customerID); err != nil {
		log.Printf("warning: failed to invalidate customer view cache for customer %d: %v", customerID, err)
	}
}
