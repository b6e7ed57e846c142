package workflow

import (
	"errors"
	"fmt"
)

// Actor roles known to the review pipeline.
const (
	RoleLoanOfficer      = "loan_officer"
	RoleKYCOfficer       = "kyc_officer"
	RoleDocumentVerifier = "document_verifier"
	RoleFieldAgent       = "field_agent"
	RoleGoldAppraiser    = "gold_appraiser"
	RoleBranchManager    = "branch_manager"
	RoleFinanceOfficer   = "finance_officer"
	RoleOperationsHead   = "operations_head"
)

// SystemActor performs machine transitions (auto-approve chaining,
// timeout auto-rejection). It bypasses the role check.
const SystemActor = "system"

// StepDefinition is the static description of one pipeline stage.
// Definitions are loaded once at startup and never mutated.
type StepDefinition struct {
	StepID              string
	Name                string
	Order               int
	AllowedRoles        []string
	TimeoutHours        int // 0 means no timeout
	AutoApprove         bool
	AutoRejectOnTimeout bool
	// FieldVerification marks the step at which agent assignment and
	// on-site verification actions are valid.
	FieldVerification bool
	// Disbursement marks the terminal money-out step.
	Disbursement bool
}

// Definition is an immutable, validated, ordered pipeline. Inject it into
// the engine; never hold it as package state.
type Definition struct {
	steps   []StepDefinition
	byID    map[string]int
	byOrder map[int]int
}

func NewDefinition(steps []StepDefinition) (*Definition, error) {
	if len(steps) == 0 {
		return nil, errors.New("workflow definition needs at least one step")
	}
	d := &Definition{
		steps:   make([]StepDefinition, len(steps)),
		byID:    make(map[string]int, len(steps)),
		byOrder: make(map[int]int, len(steps)),
	}
	copy(d.steps, steps)

	prevOrder := 0
	for i, s := range d.steps {
		if s.StepID == "" {
			return nil, fmt.Errorf("step %d: empty step id", i)
		}
		if _, dup := d.byID[s.StepID]; dup {
			return nil, fmt.Errorf("duplicate step id %q", s.StepID)
		}
		if s.Order <= prevOrder {
			return nil, fmt.Errorf("step %q: order %d must be strictly increasing", s.StepID, s.Order)
		}
		if len(s.AllowedRoles) == 0 {
			return nil, fmt.Errorf("step %q: allowed roles must not be empty", s.StepID)
		}
		if s.TimeoutHours < 0 {
			return nil, fmt.Errorf("step %q: negative timeout", s.StepID)
		}
		prevOrder = s.Order
		d.byID[s.StepID] = i
		d.byOrder[s.Order] = i
	}
	if last := d.steps[len(d.steps)-1]; !last.Disbursement {
		return nil, fmt.Errorf("last step %q must be the disbursement step", last.StepID)
	}
	return d, nil
}

func (d *Definition) Len() int { return len(d.steps) }

// Steps returns a copy; callers cannot mutate the definition.
func (d *Definition) Steps() []StepDefinition {
	out := make([]StepDefinition, len(d.steps))
	copy(out, d.steps)
	return out
}

func (d *Definition) ByStepID(stepID string) (StepDefinition, bool) {
	i, ok := d.byID[stepID]
	if !ok {
		return StepDefinition{}, false
	}
	return d.steps[i], true
}

func (d *Definition) ByOrder(order int) (StepDefinition, bool) {
	i, ok := d.byOrder[order]
	if !ok {
		return StepDefinition{}, false
	}
	return d.steps[i], true
}

func (d *Definition) First() StepDefinition { return d.steps[0] }
func (d *Definition) Last() StepDefinition  { return d.steps[len(d.steps)-1] }

func (d StepDefinition) RoleAllowed(role string) bool {
	for _, r := range d.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// DefaultGoldLoanPipeline is the stock seven-stage review pipeline.
func DefaultGoldLoanPipeline() *Definition {
	d, err := NewDefinition([]StepDefinition{
		{StepID: "document_collection", Name: "Document Collection", Order: 1, AllowedRoles: []string{RoleLoanOfficer}, TimeoutHours: 48},
		{StepID: "kyc_review", Name: "KYC Review", Order: 2, AllowedRoles: []string{RoleKYCOfficer}, TimeoutHours: 24},
		{StepID: "document_verification", Name: "Document Verification", Order: 3, AllowedRoles: []string{RoleDocumentVerifier}, TimeoutHours: 24},
		{StepID: "field_verification", Name: "Field Verification", Order: 4, AllowedRoles: []string{RoleFieldAgent, RoleLoanOfficer}, TimeoutHours: 72, FieldVerification: true},
		{StepID: "gold_appraisal", Name: "Gold Appraisal", Order: 5, AllowedRoles: []string{RoleGoldAppraiser}, TimeoutHours: 24},
		{StepID: "manager_approval", Name: "Manager Approval", Order: 6, AllowedRoles: []string{RoleBranchManager}, TimeoutHours: 48},
		{StepID: "disbursement", Name: "Disbursement", Order: 7, AllowedRoles: []string{RoleFinanceOfficer}, TimeoutHours: 24, Disbursement: true},
	})
	if err != nil {
		panic(err) // static table, cannot fail
	}
	return d
}
