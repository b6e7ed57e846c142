package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	loanDomain "goldloan-backend/internal/domain/loanbook"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

// CreateWithSchedule inserts the loan and its schedule rows together.
// The unique index on application_id turns a double disbursement into
// ErrAlreadyExists.
func (r *LoanRepository) CreateWithSchedule(ctx context.Context, l *loanDomain.ActiveLoan, schedule []*loanDomain.AmortizationEntry) error {
	if err := r.db.WithContext(ctx).Create(l).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return loanDomain.ErrAlreadyExists
		}
		return err
	}
	if len(schedule) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&schedule).Error
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.ActiveLoan, error) {
	var out loanDomain.ActiveLoan
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, loanDomain.ErrNotFound
	}
	return &out, res.Error
}

func (r *LoanRepository) GetByApplicationID(ctx context.Context, applicationID string) (*loanDomain.ActiveLoan, error) {
	var out loanDomain.ActiveLoan
	res := r.db.WithContext(ctx).Where("application_id = ?", applicationID).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, loanDomain.ErrNotFound
	}
	return &out, res.Error
}

func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.ActiveLoan) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *LoanRepository) GetSchedule(ctx context.Context, loanID string) ([]*loanDomain.AmortizationEntry, error) {
	var out []*loanDomain.AmortizationEntry
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("emi_number ASC").
		Find(&out)
	return out, res.Error
}

func (r *LoanRepository) CreatePayment(ctx context.Context, p *loanDomain.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *LoanRepository) ListPayments(ctx context.Context, loanID string) ([]*loanDomain.Payment, error) {
	var out []*loanDomain.Payment
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("payment_date ASC, id ASC").
		Find(&out)
	return out, res.Error
}
