package loanrepomock

import (
	"context"

	domain "goldloan-backend/internal/domain/loanbook"
)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateWithScheduleFn func(ctx context.Context, l *domain.ActiveLoan, schedule []*domain.AmortizationEntry) error
	GetByLoanIDFn        func(ctx context.Context, loanID string) (*domain.ActiveLoan, error)
	GetByApplicationIDFn func(ctx context.Context, applicationID string) (*domain.ActiveLoan, error)
	SaveFn               func(ctx context.Context, l *domain.ActiveLoan) error
	GetScheduleFn        func(ctx context.Context, loanID string) ([]*domain.AmortizationEntry, error)
	CreatePaymentFn      func(ctx context.Context, p *domain.Payment) error
	ListPaymentsFn       func(ctx context.Context, loanID string) ([]*domain.Payment, error)
}

var _ domain.Repository = (*Repo)(nil)

func (m *Repo) CreateWithSchedule(ctx context.Context, l *domain.ActiveLoan, schedule []*domain.AmortizationEntry) error {
	if m.CreateWithScheduleFn != nil {
		return m.CreateWithScheduleFn(ctx, l, schedule)
	}
	return nil
}

func (m *Repo) GetByLoanID(ctx context.Context, loanID string) (*domain.ActiveLoan, error) {
	if m.GetByLoanIDFn != nil {
		return m.GetByLoanIDFn(ctx, loanID)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) GetByApplicationID(ctx context.Context, applicationID string) (*domain.ActiveLoan, error) {
	if m.GetByApplicationIDFn != nil {
		return m.GetByApplicationIDFn(ctx, applicationID)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) Save(ctx context.Context, l *domain.ActiveLoan) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetSchedule(ctx context.Context, loanID string) ([]*domain.AmortizationEntry, error) {
	if m.GetScheduleFn != nil {
		return m.GetScheduleFn(ctx, loanID)
	}
	return nil, nil
}

func (m *Repo) CreatePayment(ctx context.Context, p *domain.Payment) error {
	if m.CreatePaymentFn != nil {
		return m.CreatePaymentFn(ctx, p)
	}
	return nil
}

func (m *Repo) ListPayments(ctx context.Context, loanID string) ([]*domain.Payment, error) {
	if m.ListPaymentsFn != nil {
		return m.ListPaymentsFn(ctx, loanID)
	}
	return nil, nil
}
