package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"goldloan-backend/internal/calculator"
	"goldloan-backend/internal/domain/application"
	"goldloan-backend/internal/domain/loanbook"
	"goldloan-backend/internal/domain/notification"
	"goldloan-backend/internal/domain/uow"
	"goldloan-backend/pkg/id"
)

// Policy carries the financial knobs the engine applies at disbursement
// plus the escalation target for timed-out steps.
type Policy struct {
	OverseerRole         string
	Method               calculator.Method
	ProcessingFeePercent decimal.Decimal
	PenaltyRatePercent   decimal.Decimal
	GracePeriodDays      int
}

// Engine owns per-application step instances: it validates actions,
// applies state transitions inside a per-application transaction and
// hands disbursement to the calculator. Notifications go out only after
// the transaction commits.
type Engine struct {
	defs     *Definition
	uow      uow.UnitOfWork
	notifier notification.Gateway
	policy   Policy
	clock    func() time.Time
}

func NewEngine(defs *Definition, tx uow.UnitOfWork, gw notification.Gateway, policy Policy) *Engine {
	return &Engine{
		defs:     defs,
		uow:      tx,
		notifier: gw,
		policy:   policy,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// notice is a queued notification, dispatched post-commit.
type notice struct {
	roles []string
	user  string
	msg   notification.Message
}

func (e *Engine) dispatch(notices []notice) {
	if e.notifier == nil {
		return
	}
	for _, n := range notices {
		if len(n.roles) > 0 {
			e.notifier.NotifyRoles(n.roles, n.msg)
		}
		if n.user != "" {
			e.notifier.NotifyUser(n.user, n.msg)
		}
	}
}

// InitializeWorkflow creates one step instance per definition, activates
// the first and moves the application under review.
func (e *Engine) InitializeWorkflow(ctx context.Context, applicationID string) error {
	if applicationID == "" {
		return fmt.Errorf("%w: application id required", application.ErrValidation)
	}
	var notices []notice
	err := e.uow.WithinApplicationTx(ctx, applicationID, func(r uow.Repos, app *application.Application) error {
		existing, err := r.Applications.GetStepInstances(ctx, applicationID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return application.ErrAlreadyInitialized
		}

		now := e.clock()
		steps := make([]*application.StepInstance, 0, e.defs.Len())
		for _, def := range e.defs.Steps() {
			steps = append(steps, &application.StepInstance{
				ApplicationID: applicationID,
				StepID:        def.StepID,
				StepOrder:     def.Order,
				Status:        application.StepWaiting,
			})
		}
		first := e.defs.First()
		e.activate(steps[0], first, now)
		if err := r.Applications.CreateStepInstances(ctx, steps); err != nil {
			return err
		}

		app.Status = application.StatusUnderReview
		app.StatusUpdatedAt = now
		if err := r.Applications.Save(ctx, app); err != nil {
			return err
		}

		notices = append(notices, notice{
			roles: first.AllowedRoles,
			msg: notification.Message{
				Event:         "step_pending",
				ApplicationID: applicationID,
				StepID:        first.StepID,
				Body:          fmt.Sprintf("application %s is waiting for %s", applicationID, first.Name),
			},
		})
		return nil
	})
	if err != nil {
		return err
	}
	e.dispatch(notices)
	return nil
}

// ProcessAction validates and applies a reviewer action against the
// application's current blocking step. Serialized per application by the
// unit of work's row lock.
func (e *Engine) ProcessAction(ctx context.Context, act Action) error {
	if act.ApplicationID == "" || act.PerformedBy == "" || !act.Type.Valid() {
		return fmt.Errorf("%w: application id, performer and a known action type are required", application.ErrValidation)
	}

	var notices []notice
	err := e.uow.WithinApplicationTx(ctx, act.ApplicationID, func(r uow.Repos, app *application.Application) error {
		steps, err := r.Applications.GetStepInstances(ctx, act.ApplicationID)
		if err != nil {
			return err
		}
		sortSteps(steps)

		if act.Type == ActionResume {
			return e.resume(ctx, r, steps, act, &notices)
		}

		current := findByStatus(steps, application.StepPending)
		if current == nil {
			// A timed-out step means the sweep won a race with this
			// caller; anything else means there is nothing to act on.
			if findByStatus(steps, application.StepTimedOut) != nil {
				return application.ErrConflict
			}
			return application.ErrNoPendingStep
		}
		def, ok := e.defs.ByStepID(current.StepID)
		if !ok {
			return fmt.Errorf("%w: step %q is not part of the active pipeline", application.ErrState, current.StepID)
		}
		if act.PerformedBy != SystemActor && !def.RoleAllowed(act.PerformedByRole) {
			return fmt.Errorf("%w: role %q cannot act on step %q", application.ErrPermissionDenied, act.PerformedByRole, current.StepID)
		}

		switch act.Type {
		case ActionApprove:
			if err := applyApprovalTerms(app, act.Data); err != nil {
				return err
			}
			if err := r.Applications.Save(ctx, app); err != nil {
				return err
			}
			return e.approve(ctx, r, app, steps, current, application.StepPending, act.PerformedBy, act.Remarks, act.Data, &notices)
		case ActionVerify:
			return e.verify(ctx, r, app, steps, current, act, &notices)
		case ActionReject:
			return e.reject(ctx, r, app, current, act.PerformedBy, act.Remarks, &notices)
		case ActionRequestInfo:
			return e.requestInfo(ctx, r, app, current, act, &notices)
		case ActionAssignAgent:
			return e.assignAgent(ctx, r, app, current, def, act, &notices)
		case ActionDisburse:
			return e.disburse(ctx, r, app, current, def, act, &notices)
		default:
			return fmt.Errorf("%w: unhandled action %q", application.ErrValidation, act.Type)
		}
	})
	if err != nil {
		return err
	}
	e.dispatch(notices)
	return nil
}

// approve completes the current step and walks the auto-approve chain.
// The loop is capped at the pipeline length so a misconfigured all-auto
// pipeline still terminates.
func (e *Engine) approve(ctx context.Context, r uow.Repos, app *application.Application, steps []*application.StepInstance, current *application.StepInstance, expected application.StepStatus, performedBy, remarks string, data map[string]string, notices *[]notice) error {
	now := e.clock()
	for hops := 0; ; hops++ {
		if hops > e.defs.Len() {
			return fmt.Errorf("%w: auto-approve chain exceeded pipeline length", application.ErrState)
		}

		current.Status = application.StepCompleted
		current.CompletedAt = &now
		current.AssignedTo = performedBy
		if remarks != "" {
			current.Remarks = remarks
		}
		mergeData(current, data)
		if err := r.Applications.UpdateStepIfStatus(ctx, current, expected); err != nil {
			return err
		}

		next := stepByOrder(steps, current.StepOrder+1)
		if next == nil {
			app.Status = application.StatusApproved
			app.StatusUpdatedAt = now
			if err := r.Applications.Save(ctx, app); err != nil {
				return err
			}
			*notices = append(*notices, notice{
				user: app.CustomerID,
				msg: notification.Message{
					Event:         "application_approved",
					ApplicationID: app.ApplicationID,
					Body:          fmt.Sprintf("application %s has been approved", app.ApplicationID),
				},
			})
			return nil
		}

		nextDef, ok := e.defs.ByStepID(next.StepID)
		if !ok {
			return fmt.Errorf("%w: step %q is not part of the active pipeline", application.ErrState, next.StepID)
		}
		e.activate(next, nextDef, now)
		if err := r.Applications.UpdateStepIfStatus(ctx, next, application.StepWaiting); err != nil {
			return err
		}

		if nextDef.AutoApprove {
			current, expected = next, application.StepPending
			performedBy, remarks, data = SystemActor, "auto-approved", nil
			continue
		}

		*notices = append(*notices, notice{
			roles: nextDef.AllowedRoles,
			msg: notification.Message{
				Event:         "step_pending",
				ApplicationID: app.ApplicationID,
				StepID:        next.StepID,
				Body:          fmt.Sprintf("application %s is waiting for %s", app.ApplicationID, nextDef.Name),
			},
		})
		return nil
	}
}

// verify records on-site evidence and then approves the same step:
// verification is approval with evidence.
func (e *Engine) verify(ctx context.Context, r uow.Repos, app *application.Application, steps []*application.StepInstance, current *application.StepInstance, act Action, notices *[]notice) error {
	now := e.clock()
	current.Status = application.StepVerified
	mergeData(current, act.Data)
	if err := r.Applications.UpdateStepIfStatus(ctx, current, application.StepPending); err != nil {
		return err
	}

	app.VerifiedBy = act.PerformedBy
	app.VerifiedAt = &now
	if err := r.Applications.Save(ctx, app); err != nil {
		return err
	}
	return e.approve(ctx, r, app, steps, current, application.StepVerified, act.PerformedBy, act.Remarks, nil, notices)
}

// reject marks the current step rejected and cancels everything after it
// in the same transaction. Partial cascades are never observable.
func (e *Engine) reject(ctx context.Context, r uow.Repos, app *application.Application, current *application.StepInstance, performedBy, reason string, notices *[]notice) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: rejection requires a reason in remarks", application.ErrValidation)
	}
	now := e.clock()
	current.Status = application.StepRejected
	current.CompletedAt = &now
	current.AssignedTo = performedBy
	current.Remarks = reason
	if err := r.Applications.UpdateStepIfStatus(ctx, current, application.StepPending); err != nil {
		return err
	}
	if err := r.Applications.CascadeCancel(ctx, app.ApplicationID, current.StepOrder); err != nil {
		return err
	}

	app.Status = application.StatusRejected
	app.RejectionReason = reason
	app.StatusUpdatedAt = now
	if err := r.Applications.Save(ctx, app); err != nil {
		return err
	}

	*notices = append(*notices, notice{
		user: app.CustomerID,
		msg: notification.Message{
			Event:         "application_rejected",
			ApplicationID: app.ApplicationID,
			StepID:        current.StepID,
			Body:          fmt.Sprintf("application %s was rejected: %s", app.ApplicationID, reason),
		},
	})
	return nil
}

// requestInfo parks the current step until the customer resubmits; the
// step stays the blocking one and the order does not advance.
func (e *Engine) requestInfo(ctx context.Context, r uow.Repos, app *application.Application, current *application.StepInstance, act Action, notices *[]notice) error {
	current.Status = application.StepInfoRequested
	current.AssignedTo = act.PerformedBy
	if act.Remarks != "" {
		current.Remarks = act.Remarks
	}
	mergeData(current, act.Data)
	if err := r.Applications.UpdateStepIfStatus(ctx, current, application.StepPending); err != nil {
		return err
	}

	*notices = append(*notices, notice{
		user: app.CustomerID,
		msg: notification.Message{
			Event:         "info_requested",
			ApplicationID: app.ApplicationID,
			StepID:        current.StepID,
			Body:          fmt.Sprintf("additional information required for application %s: %s", app.ApplicationID, act.Remarks),
		},
	})
	return nil
}

// resume returns an info-requested (or timed-out) step to pending with a
// fresh timeout. The role check is waived: resumption comes from the
// customer, not a reviewer role.
func (e *Engine) resume(ctx context.Context, r uow.Repos, steps []*application.StepInstance, act Action, notices *[]notice) error {
	current := findByStatus(steps, application.StepInfoRequested)
	if current == nil {
		current = findByStatus(steps, application.StepTimedOut)
	}
	if current == nil {
		return fmt.Errorf("%w: no step awaiting resumption", application.ErrState)
	}
	def, ok := e.defs.ByStepID(current.StepID)
	if !ok {
		return fmt.Errorf("%w: step %q is not part of the active pipeline", application.ErrState, current.StepID)
	}

	prev := current.Status
	e.activate(current, def, e.clock())
	mergeData(current, act.Data)
	if err := r.Applications.UpdateStepIfStatus(ctx, current, prev); err != nil {
		return err
	}

	*notices = append(*notices, notice{
		roles: def.AllowedRoles,
		msg: notification.Message{
			Event:         "step_resumed",
			ApplicationID: act.ApplicationID,
			StepID:        current.StepID,
			Body:          fmt.Sprintf("application %s resumed at %s", act.ApplicationID, def.Name),
		},
	})
	return nil
}

// assignAgent attaches a field agent to the application without
// completing the step; only valid at the field-verification stage.
func (e *Engine) assignAgent(ctx context.Context, r uow.Repos, app *application.Application, current *application.StepInstance, def StepDefinition, act Action, notices *[]notice) error {
	if !def.FieldVerification {
		return fmt.Errorf("%w: agent assignment only valid at the field verification step", application.ErrState)
	}
	agentID := act.Data["agent_id"]
	if agentID == "" {
		return fmt.Errorf("%w: agent_id is required", application.ErrValidation)
	}

	app.FieldAgentID = agentID
	if err := r.Applications.Save(ctx, app); err != nil {
		return err
	}
	mergeData(current, map[string]string{
		"assigned_agent_id": agentID,
		"assigned_by":       act.PerformedBy,
		"assigned_at":       e.clock().Format(time.RFC3339),
	})
	if err := r.Applications.SaveStepInstance(ctx, current); err != nil {
		return err
	}

	*notices = append(*notices, notice{
		user: agentID,
		msg: notification.Message{
			Event:         "agent_assigned",
			ApplicationID: app.ApplicationID,
			StepID:        current.StepID,
			Body:          fmt.Sprintf("field verification assigned for application %s", app.ApplicationID),
		},
	})
	return nil
}

// disburse prices the loan with the calculator, materializes the active
// loan and its schedule atomically with the step completion, and leaves
// the application approved.
func (e *Engine) disburse(ctx context.Context, r uow.Repos, app *application.Application, current *application.StepInstance, def StepDefinition, act Action, notices *[]notice) error {
	if !def.Disbursement {
		return fmt.Errorf("%w: disburse only valid at the terminal step", application.ErrState)
	}

	principal := app.ApprovedAmount
	if principal.IsZero() {
		principal = app.RequestedAmount
	}
	if principal.LessThanOrEqual(decimal.Zero) || app.TenureMonths <= 0 {
		return fmt.Errorf("%w: agreed principal and tenure must be set before disbursement", application.ErrState)
	}

	now := e.clock()
	result, err := calculator.CalculateLoan(calculator.LoanInput{
		Principal:            principal,
		AnnualRatePercent:    app.AnnualInterestRate,
		TenureMonths:         app.TenureMonths,
		StartDate:            now,
		Method:               e.policy.Method,
		ProcessingFeePercent: e.policy.ProcessingFeePercent,
	})
	if err != nil {
		return err
	}

	loanID := id.NewID32()
	loan := &loanbook.ActiveLoan{
		LoanID:               loanID,
		LoanNumber:           newLoanNumber(),
		ApplicationID:        app.ApplicationID,
		PrincipalAmount:      principal,
		AnnualInterestRate:   app.AnnualInterestRate,
		TenureMonths:         app.TenureMonths,
		StartDate:            now,
		EMIAmount:            result.MonthlyEMI,
		OutstandingPrincipal: principal,
		TotalOutstanding:     result.TotalAmount,
		NextDueDate:          result.EMISchedule[0].DueDate,
	}
	schedule := make([]*loanbook.AmortizationEntry, 0, len(result.EMISchedule))
	for _, s := range result.EMISchedule {
		schedule = append(schedule, &loanbook.AmortizationEntry{
			LoanID:             loanID,
			EMINumber:          s.EMINumber,
			DueDate:            s.DueDate,
			EMIAmount:          s.EMIAmount,
			PrincipalComponent: s.PrincipalComponent,
			InterestComponent:  s.InterestComponent,
			RemainingPrincipal: s.RemainingPrincipal,
		})
	}
	if err := r.Loans.CreateWithSchedule(ctx, loan, schedule); err != nil {
		return err
	}

	current.Status = application.StepCompleted
	current.CompletedAt = &now
	current.AssignedTo = act.PerformedBy
	if act.Remarks != "" {
		current.Remarks = act.Remarks
	}
	mergeData(current, map[string]string{"loan_id": loanID, "loan_number": loan.LoanNumber})
	if err := r.Applications.UpdateStepIfStatus(ctx, current, application.StepPending); err != nil {
		return err
	}

	app.Status = application.StatusApproved
	app.StatusUpdatedAt = now
	if err := r.Applications.Save(ctx, app); err != nil {
		return err
	}

	*notices = append(*notices, notice{
		user: app.CustomerID,
		msg: notification.Message{
			Event:         "loan_disbursed",
			ApplicationID: app.ApplicationID,
			LoanID:        loanID,
			Body:          fmt.Sprintf("loan %s disbursed, monthly EMI %s", loan.LoanNumber, result.MonthlyEMI),
		},
	})
	return nil
}

// CheckTimeouts sweeps pending steps whose deadline has passed and
// escalates them. Advisory by default; a step definition can opt into
// auto-rejection. Safe to re-run: already timed-out steps are skipped.
func (e *Engine) CheckTimeouts(ctx context.Context) ([]*application.StepInstance, error) {
	var escalated []*application.StepInstance
	var notices []notice

	err := e.uow.WithinTx(ctx, func(r uow.Repos) error {
		expired, err := r.Applications.ListPendingExpired(ctx, e.clock())
		if err != nil {
			return err
		}
		for _, step := range expired {
			def, ok := e.defs.ByStepID(step.StepID)
			if !ok {
				continue
			}

			if def.AutoRejectOnTimeout {
				app, err := r.Applications.GetByApplicationIDForUpdate(ctx, step.ApplicationID)
				if err != nil {
					return err
				}
				if err := e.reject(ctx, r, app, step, SystemActor, "step timed out", &notices); err != nil {
					return err
				}
			} else {
				step.Status = application.StepTimedOut
				if err := r.Applications.UpdateStepIfStatus(ctx, step, application.StepPending); err != nil {
					return err
				}
			}

			escalated = append(escalated, step)
			notices = append(notices, notice{
				roles: append(append([]string{}, def.AllowedRoles...), e.policy.OverseerRole),
				msg: notification.Message{
					Event:         "step_timeout",
					ApplicationID: step.ApplicationID,
					StepID:        step.StepID,
					Body:          fmt.Sprintf("step %s for application %s exceeded its deadline", def.Name, step.ApplicationID),
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.dispatch(notices)
	return escalated, nil
}

// StatusView is the read-only progress summary for an application.
type StatusView struct {
	ApplicationID     string                         `json:"application_id"`
	ApplicationStatus application.Status             `json:"application_status"`
	Steps             []*application.StepInstance    `json:"steps"`
	CurrentStep       *application.StepInstance      `json:"current_step,omitempty"`
	StatusCounts      map[application.StepStatus]int `json:"status_counts"`
	TotalSteps        int                            `json:"total_steps"`
	CompletedSteps    int                            `json:"completed_steps"`
	ProgressPercent   float64                        `json:"progress_percent"`
}

// GetWorkflowStatus reads the full step set without locking.
func (e *Engine) GetWorkflowStatus(ctx context.Context, applicationID string) (*StatusView, error) {
	var view *StatusView
	err := e.uow.WithinTx(ctx, func(r uow.Repos) error {
		app, err := r.Applications.GetByApplicationID(ctx, applicationID)
		if err != nil {
			return err
		}
		steps, err := r.Applications.GetStepInstances(ctx, applicationID)
		if err != nil {
			return err
		}
		sortSteps(steps)

		counts := make(map[application.StepStatus]int, len(steps))
		completed := 0
		for _, s := range steps {
			counts[s.Status]++
			if s.Status == application.StepCompleted {
				completed++
			}
		}
		view = &StatusView{
			ApplicationID:     applicationID,
			ApplicationStatus: app.Status,
			Steps:             steps,
			CurrentStep:       findByStatus(steps, application.StepPending),
			StatusCounts:      counts,
			TotalSteps:        len(steps),
			CompletedSteps:    completed,
		}
		if len(steps) > 0 {
			view.ProgressPercent = float64(completed) / float64(len(steps)) * 100
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// ---- helpers ----

func (e *Engine) activate(s *application.StepInstance, def StepDefinition, now time.Time) {
	s.Status = application.StepPending
	s.StartedAt = &now
	s.TimeoutAt = nil
	if def.TimeoutHours > 0 {
		t := now.Add(time.Duration(def.TimeoutHours) * time.Hour)
		s.TimeoutAt = &t
	}
}

func applyApprovalTerms(app *application.Application, data map[string]string) error {
	if v, ok := data["approved_amount"]; ok {
		amt, err := decimal.NewFromString(v)
		if err != nil || amt.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: invalid approved_amount %q", application.ErrValidation, v)
		}
		app.ApprovedAmount = amt
	}
	if v, ok := data["interest_rate"]; ok {
		rate, err := decimal.NewFromString(v)
		if err != nil || rate.IsNegative() {
			return fmt.Errorf("%w: invalid interest_rate %q", application.ErrValidation, v)
		}
		app.AnnualInterestRate = rate
	}
	if v, ok := data["tenure_months"]; ok {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err != nil || n <= 0 {
			return fmt.Errorf("%w: invalid tenure_months %q", application.ErrValidation, v)
		}
		app.TenureMonths = n
	}
	return nil
}

func mergeData(s *application.StepInstance, data map[string]string) {
	if len(data) == 0 {
		return
	}
	if s.Data == nil {
		s.Data = make(application.StepData, len(data))
	}
	for k, v := range data {
		s.Data[k] = v
	}
}

func sortSteps(steps []*application.StepInstance) {
	sort.Slice(steps, func(i, j int) bool { return steps[i].StepOrder < steps[j].StepOrder })
}

func findByStatus(steps []*application.StepInstance, status application.StepStatus) *application.StepInstance {
	for _, s := range steps {
		if s.Status == status {
			return s
		}
	}
	return nil
}

func stepByOrder(steps []*application.StepInstance, order int) *application.StepInstance {
	for _, s := range steps {
		if s.StepOrder == order {
			return s
		}
	}
	return nil
}

func newLoanNumber() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "GL-" + raw[:12]
}
