package models

// OrderStatus is the fulfillment stage of a measurement set.
//
// Transitions are unrestricted: any valid status may overwrite
// any other, and a regression to an earlier stage never clears a previously
// stamped completion or handover date. The only coupling between a status
// value and a side effect is the date stamping on Completed and Handed Over
// (see MeasurementSet.ApplyOrderStatus).
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusInProgress OrderStatus = "In Progress"
	OrderStatusReady      OrderStatus = "Ready"
	OrderStatusCompleted  OrderStatus = "Completed"
	OrderStatusHandedOver OrderStatus = "Handed Over"
)

// Valid reports whether s is one of the known order statuses
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusInProgress, OrderStatusReady,
		OrderStatusCompleted, OrderStatusHandedOver:
		return true
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

// PaymentStatus is the payment state of a measurement set, independent of
// the order status. Direct overwrite, no derived timestamps.
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "Unpaid"
	PaymentStatusPartial PaymentStatus = "Partial"
	PaymentStatusPaid    PaymentStatus = "Paid"
)

// Valid reports whether s is one of the known payment statuses
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPartial, PaymentStatusPaid:
		return true
	}
	return false
}

func (s PaymentStatus) String() string {
	return string(s)
}
