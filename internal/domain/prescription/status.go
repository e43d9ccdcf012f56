package prescription

type Status string

const (
	StatusPending   Status = "pending"
	StatusVerified  Status = "verified"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

var statusDescriptions = map[Status]string{
	StatusPending:   "Prescription is pending verification",
	StatusVerified:  "Prescription has been verified",
	StatusExpired:   "Prescription has expired",
	StatusCancelled: "Prescription has been cancelled",
}

func (s Status) Description() string {
	if d, ok := statusDescriptions[s]; ok {
		return d
	}
	return "Unknown prescription status"
}
