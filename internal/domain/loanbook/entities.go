package loanbook

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("loan not found")
	ErrAlreadyExists = errors.New("loan already disbursed for application")
)

// ActiveLoan is created exactly once, at disbursement. Its amortization
// schedule is immutable; payments are appended separately and reconciled
// by the calculator.
type ActiveLoan struct {
	ID                   uint64          `gorm:"primaryKey;column:id" json:"-"`
	LoanID               string          `gorm:"size:32;uniqueIndex:ux_loans_loan_id" json:"loan_id"`
	LoanNumber           string          `gorm:"size:64;uniqueIndex:ux_loans_number" json:"loan_number"`
	ApplicationID        string          `gorm:"size:32;uniqueIndex:ux_loans_application" json:"application_id"`
	PrincipalAmount      decimal.Decimal `gorm:"type:decimal(18,2)" json:"principal_amount"`
	AnnualInterestRate   decimal.Decimal `gorm:"type:decimal(6,4)" json:"annual_interest_rate"`
	TenureMonths         int             `json:"tenure_months"`
	StartDate            time.Time       `gorm:"type:date" json:"start_date"`
	EMIAmount            decimal.Decimal `gorm:"type:decimal(18,2)" json:"emi_amount"`
	OutstandingPrincipal decimal.Decimal `gorm:"type:decimal(18,2)" json:"outstanding_principal"`
	TotalOutstanding     decimal.Decimal `gorm:"type:decimal(18,2)" json:"total_outstanding"`
	NextDueDate          time.Time       `gorm:"type:date" json:"next_due_date"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt            gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (ActiveLoan) TableName() string { return "active_loans" }

type AmortizationEntry struct {
	ID                 uint64          `gorm:"primaryKey;column:id" json:"-"`
	LoanID             string          `gorm:"size:32;index:idx_schedule_loan;uniqueIndex:ux_schedule_loan_emi" json:"loan_id"`
	EMINumber          int             `gorm:"column:emi_number;uniqueIndex:ux_schedule_loan_emi" json:"emi_number"`
	DueDate            time.Time       `gorm:"type:date" json:"due_date"`
	EMIAmount          decimal.Decimal `gorm:"column:emi_amount;type:decimal(18,2)" json:"emi_amount"`
	PrincipalComponent decimal.Decimal `gorm:"type:decimal(18,2)" json:"principal_component"`
	InterestComponent  decimal.Decimal `gorm:"type:decimal(18,2)" json:"interest_component"`
	RemainingPrincipal decimal.Decimal `gorm:"type:decimal(18,2)" json:"remaining_principal"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (AmortizationEntry) TableName() string { return "amortization_entries" }

type Payment struct {
	ID               uint64          `gorm:"primaryKey;column:id" json:"-"`
	PaymentID        string          `gorm:"size:32;uniqueIndex:ux_payments_payment_id" json:"payment_id"`
	LoanID           string          `gorm:"size:32;index:idx_payments_loan" json:"loan_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,2)" json:"amount"`
	PaymentDate      time.Time       `gorm:"type:date" json:"payment_date"`
	PrincipalPayment decimal.Decimal `gorm:"type:decimal(18,2)" json:"principal_payment"`
	InterestPayment  decimal.Decimal `gorm:"type:decimal(18,2)" json:"interest_payment"`
	PenaltyPayment   decimal.Decimal `gorm:"type:decimal(18,2)" json:"penalty_payment"`
	FeePayment       decimal.Decimal `gorm:"type:decimal(18,2)" json:"fee_payment"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Payment) TableName() string { return "loan_payments" }
