package order

type Status string

const (
	StatusPending       Status = "pending"
	StatusProcessing    Status = "processing"
	StatusShipped       Status = "shipped"
	StatusDelivered     Status = "delivered"
	StatusCancelled     Status = "cancelled"
	StatusPaymentFailed Status = "payment_failed"
	StatusError         Status = "error"
)

var statusDescriptions = map[Status]string{
	StatusPending:       "Order is pending",
	StatusProcessing:    "Order is being processed",
	StatusShipped:       "Order has been shipped",
	StatusDelivered:     "Order has been delivered",
	StatusCancelled:     "Order has been cancelled",
	StatusPaymentFailed: "Payment failed for order",
	StatusError:         "Error processing order",
}

// statusTransitions lists every legal order status move. Statuses without an entry are sinks.
var statusTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled, StatusPaymentFailed, StatusError},
	StatusProcessing: {StatusShipped, StatusCancelled, StatusPaymentFailed, StatusError},
	StatusShipped:    {StatusDelivered},
}

func (s Status) Description() string {
	if d, ok := statusDescriptions[s]; ok {
		return d
	}
	return "Unknown order status"
}

func (s Status) Terminal() bool {
	return len(statusTransitions[s]) == 0
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

var paymentDescriptions = map[PaymentStatus]string{
	PaymentPending:  "Payment is pending",
	PaymentPaid:     "Payment completed successfully",
	PaymentFailed:   "Payment failed",
	PaymentRefunded: "Payment has been refunded",
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending: {PaymentPaid, PaymentFailed},
	PaymentPaid:    {PaymentRefunded},
}

func (s PaymentStatus) Description() string {
	if d, ok := paymentDescriptions[s]; ok {
		return d
	}
	return "Unknown payment status"
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
