package notification

// Message is the channel-agnostic payload handed to the gateway. Delivery
// (email/SMS/push) is the gateway implementation's concern.
type Message struct {
	Event         string            `json:"event"`
	ApplicationID string            `json:"application_id,omitempty"`
	LoanID        string            `json:"loan_id,omitempty"`
	StepID        string            `json:"step_id,omitempty"`
	Body          string            `json:"body,omitempty"`
	Meta          map[string]string `json:"meta,omitempty"`
}

// Gateway is best-effort and asynchronous: implementations must never
// block workflow commits, and failures are logged, not returned.
type Gateway interface {
	NotifyRoles(roles []string, msg Message)
	NotifyUser(userID string, msg Message)
}
