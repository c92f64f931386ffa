package order

// Status is the order lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// PaymentStatus is the payment lifecycle state.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// fulfillmentRank orders the forward chain
// pending -> confirmed -> processing -> shipped -> delivered.
var fulfillmentRank = map[Status]int{
	StatusPending:    0,
	StatusConfirmed:  1,
	StatusProcessing: 2,
	StatusShipped:    3,
	StatusDelivered:  4,
}

// Valid reports whether s is one of the seven known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// Terminal reports whether no further transitions leave s.
func (s Status) Terminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo reports whether s -> next is a legal transition: any
// strictly forward move along the fulfillment chain, or cancelled/refunded
// from any non-terminal state.
func (s Status) CanTransitionTo(next Status) bool {
	if s.Terminal() || !next.Valid() {
		return false
	}
	if next == StatusCancelled || next == StatusRefunded {
		return true
	}
	from, ok := fulfillmentRank[s]
	if !ok {
		return false
	}
	to, ok := fulfillmentRank[next]
	if !ok {
		return false
	}
	return to > from
}
