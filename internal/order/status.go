package order

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
	PaymentFailed  PaymentStatus = "Failed"
)

type DeliveryStatus string

const (
	DeliveryPending        DeliveryStatus = "Pending"
	DeliveryDispatched     DeliveryStatus = "Dispatched"
	DeliveryOutForDelivery DeliveryStatus = "Out for delivery"
	DeliveryCancelled      DeliveryStatus = "Cancelled"
)

var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryPending:    {DeliveryDispatched, DeliveryCancelled},
	DeliveryDispatched: {DeliveryOutForDelivery, DeliveryCancelled},
}

func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryPending, DeliveryDispatched, DeliveryOutForDelivery, DeliveryCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether a seller may move an order from s to next.
func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	for _, allowed := range deliveryTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
