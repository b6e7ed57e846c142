package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"goldloan-backend/internal/calculator"
	"goldloan-backend/internal/domain/loanbook"
	"goldloan-backend/internal/domain/uow"
	"goldloan-backend/pkg/id"
)

// LoanPolicy mirrors the engine's financial knobs for read-side
// derivations and payment allocation.
type LoanPolicy struct {
	Method             calculator.Method
	PenaltyRatePercent decimal.Decimal
	GracePeriodDays    int
}

type LoanHandler struct {
	tx     uow.UnitOfWork
	policy LoanPolicy
}

func NewLoanHandler(tx uow.UnitOfWork, policy LoanPolicy) *LoanHandler {
	return &LoanHandler{tx: tx, policy: policy}
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	var loan *loanbook.ActiveLoan
	var schedule []*loanbook.AmortizationEntry
	err := h.tx.WithinTx(c.Request().Context(), func(r uow.Repos) error {
		var err error
		loan, err = r.Loans.GetByLoanID(c.Request().Context(), c.Param("loan_id"))
		if err != nil {
			return err
		}
		schedule, err = r.Loans.GetSchedule(c.Request().Context(), loan.LoanID)
		return err
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"loan": loan, "schedule": schedule})
}

// GetLoanStatus derives the loan position as of now from its terms and
// payment history; nothing is cached.
func (h *LoanHandler) GetLoanStatus(c echo.Context) error {
	var snapshot calculator.LoanStatusSnapshot
	err := h.tx.WithinTx(c.Request().Context(), func(r uow.Repos) error {
		loan, err := r.Loans.GetByLoanID(c.Request().Context(), c.Param("loan_id"))
		if err != nil {
			return err
		}
		payments, err := r.Loans.ListPayments(c.Request().Context(), loan.LoanID)
		if err != nil {
			return err
		}
		snapshot, err = calculator.CalculateCurrentLoanStatus(h.terms(loan), paymentRecords(payments), time.Now().UTC())
		return err
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, snapshot)
}

type paymentReq struct {
	Amount      float64 `json:"amount" validate:"required,gt=0,dec2"`
	PaymentDate string  `json:"payment_date"`
}

// PostPayment allocates a repayment through the waterfall (fees →
// penalty → interest → principal) and appends it to the loan's history.
func (h *LoanHandler) PostPayment(c echo.Context) error {
	var req paymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	paidAt := time.Now().UTC()
	if req.PaymentDate != "" {
		t, err := time.Parse(time.RFC3339, req.PaymentDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "payment_date must be RFC3339"})
		}
		paidAt = t.UTC()
	}
	amount := decimal.NewFromFloat(req.Amount).Round(2)

	var payment *loanbook.Payment
	var alloc calculator.PaymentAllocation
	err := h.tx.WithinTx(c.Request().Context(), func(r uow.Repos) error {
		ctx := c.Request().Context()
		loan, err := r.Loans.GetByLoanID(ctx, c.Param("loan_id"))
		if err != nil {
			return err
		}
		payments, err := r.Loans.ListPayments(ctx, loan.LoanID)
		if err != nil {
			return err
		}
		snapshot, err := calculator.CalculateCurrentLoanStatus(h.terms(loan), paymentRecords(payments), paidAt)
		if err != nil {
			return err
		}

		alloc, err = calculator.AllocatePayment(
			amount,
			snapshot.OutstandingPrincipal,
			snapshot.OutstandingInterest,
			snapshot.PenaltyAmount,
			decimal.Zero,
		)
		if err != nil {
			return err
		}

		payment = &loanbook.Payment{
			PaymentID:        id.NewID32(),
			LoanID:           loan.LoanID,
			Amount:           amount.Sub(alloc.Remainder),
			PaymentDate:      paidAt,
			PrincipalPayment: alloc.PrincipalPayment,
			InterestPayment:  alloc.InterestPayment,
			PenaltyPayment:   alloc.PenaltyPayment,
			FeePayment:       alloc.FeePayment,
		}
		if err := r.Loans.CreatePayment(ctx, payment); err != nil {
			return err
		}

		loan.OutstandingPrincipal = decimal.Max(loan.OutstandingPrincipal.Sub(alloc.PrincipalPayment), decimal.Zero)
		loan.TotalOutstanding = decimal.Max(loan.TotalOutstanding.Sub(payment.Amount), decimal.Zero)
		if snapshot.NextDueDate != nil {
			loan.NextDueDate = *snapshot.NextDueDate
		}
		return r.Loans.Save(ctx, loan)
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"payment": payment, "allocation": alloc})
}

func (h *LoanHandler) terms(loan *loanbook.ActiveLoan) calculator.LoanTerms {
	return calculator.LoanTerms{
		Principal:          loan.PrincipalAmount,
		AnnualRatePercent:  loan.AnnualInterestRate,
		TenureMonths:       loan.TenureMonths,
		StartDate:          loan.StartDate,
		EMIAmount:          loan.EMIAmount,
		Method:             h.policy.Method,
		PenaltyRatePercent: h.policy.PenaltyRatePercent,
		GracePeriodDays:    h.policy.GracePeriodDays,
	}
}

func paymentRecords(payments []*loanbook.Payment) []calculator.PaymentRecord {
	out := make([]calculator.PaymentRecord, 0, len(payments))
	for _, p := range payments {
		out = append(out, calculator.PaymentRecord{
			Amount:           p.Amount,
			Date:             p.PaymentDate,
			PrincipalPayment: p.PrincipalPayment,
			InterestPayment:  p.InterestPayment,
			PenaltyPayment:   p.PenaltyPayment,
			FeePayment:       p.FeePayment,
		})
	}
	return out
}
