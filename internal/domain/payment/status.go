package payment

// Status is the state of a logged transaction: pending until the backend answers.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

var statusDescriptions = map[Status]string{
	StatusPending: "Payment is being processed",
	StatusSuccess: "Payment completed successfully",
	StatusFailed:  "Payment failed",
}

func (s Status) Description() string {
	if d, ok := statusDescriptions[s]; ok {
		return d
	}
	return "Unknown payment status"
}
