package workflow

type ActionType string

const (
	ActionApprove     ActionType = "approve"
	ActionReject      ActionType = "reject"
	ActionRequestInfo ActionType = "request_info"
	ActionResume      ActionType = "resume"
	ActionAssignAgent ActionType = "assign_agent"
	ActionVerify      ActionType = "verify"
	ActionDisburse    ActionType = "disburse"
)

func (t ActionType) Valid() bool {
	switch t {
	case ActionApprove, ActionReject, ActionRequestInfo, ActionResume,
		ActionAssignAgent, ActionVerify, ActionDisburse:
		return true
	}
	return false
}

// Action is a reviewer (or system) decision against the application's
// current blocking step.
type Action struct {
	ApplicationID   string            `json:"application_id"`
	Type            ActionType        `json:"action_type"`
	PerformedBy     string            `json:"performed_by"`
	PerformedByRole string            `json:"performed_by_role"`
	Remarks         string            `json:"remarks,omitempty"`
	Data            map[string]string `json:"data,omitempty"`
}
