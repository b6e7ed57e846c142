package loanbook

import "context"

type Repository interface {
	// CreateWithSchedule inserts the loan and its full amortization
	// schedule. Must run inside the caller's transaction so disbursement
	// is atomic with its triggering step update.
	CreateWithSchedule(ctx context.Context, l *ActiveLoan, schedule []*AmortizationEntry) error
	GetByLoanID(ctx context.Context, loanID string) (*ActiveLoan, error)
	GetByApplicationID(ctx context.Context, applicationID string) (*ActiveLoan, error)
	Save(ctx context.Context, l *ActiveLoan) error

	GetSchedule(ctx context.Context, loanID string) ([]*AmortizationEntry, error)
	CreatePayment(ctx context.Context, p *Payment) error
	ListPayments(ctx context.Context, loanID string) ([]*Payment, error)
}
