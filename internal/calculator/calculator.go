// Package calculator holds the loan math: EMI, amortization, penalty
// accrual and payment allocation. Every function is pure and safe for
// concurrent use; amounts are decimals rounded to 2 places only at
// function boundaries.
package calculator

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrCalculation = errors.New("invalid loan parameters")

type Method string

const (
	MethodReducingBalance Method = "reducing_balance"
	MethodSimpleInterest  Method = "simple_interest"
)

var (
	hundred      = decimal.NewFromInt(100)
	twelve       = decimal.NewFromInt(12)
	daysPerYear  = decimal.NewFromInt(365)
	monthsPer100 = twelve.Mul(hundred) // annual % → monthly fraction divisor
)

func validateTerms(principal, annualRatePercent decimal.Decimal, tenureMonths int) error {
	if principal.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: principal must be positive, got %s", ErrCalculation, principal)
	}
	if tenureMonths <= 0 {
		return fmt.Errorf("%w: tenure must be positive, got %d months", ErrCalculation, tenureMonths)
	}
	if annualRatePercent.IsNegative() {
		return fmt.Errorf("%w: interest rate must not be negative, got %s", ErrCalculation, annualRatePercent)
	}
	return nil
}

// CalculateEMI returns the fixed monthly installment for the given terms,
// rounded to 2 decimal places.
//
// Reducing balance uses the annuity formula EMI = P·r·(1+r)^n / ((1+r)^n − 1)
// with r the monthly rate; simple interest spreads P plus flat interest
// evenly over the tenure.
func CalculateEMI(principal, annualRatePercent decimal.Decimal, tenureMonths int, method Method) (decimal.Decimal, error) {
	if err := validateTerms(principal, annualRatePercent, tenureMonths); err != nil {
		return decimal.Zero, err
	}
	n := decimal.NewFromInt(int64(tenureMonths))

	switch method {
	case MethodReducingBalance:
		r := annualRatePercent.Div(monthsPer100)
		if r.IsZero() {
			return principal.Div(n).Round(2), nil
		}
		pow := decimal.NewFromInt(1).Add(r).Pow(n)
		emi := principal.Mul(r).Mul(pow).Div(pow.Sub(decimal.NewFromInt(1)))
		return emi.Round(2), nil
	case MethodSimpleInterest:
		totalInterest := principal.Mul(annualRatePercent).Div(hundred).Mul(n).Div(twelve)
		return principal.Add(totalInterest).Div(n).Round(2), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: unknown method %q", ErrCalculation, method)
	}
}

// ScheduleEntry is one installment of an amortization schedule.
type ScheduleEntry struct {
	EMINumber          int
	DueDate            time.Time
	EMIAmount          decimal.Decimal
	PrincipalComponent decimal.Decimal
	InterestComponent  decimal.Decimal
	RemainingPrincipal decimal.Decimal
}

// GenerateAmortizationSchedule produces tenureMonths entries, one per
// month starting one month after startDate. The final installment's
// split is adjusted so cumulative rounding never leaves a residual:
// sum(principal components) equals principal exactly and the last
// remaining principal is exactly zero.
func GenerateAmortizationSchedule(principal, emi, annualRatePercent decimal.Decimal, tenureMonths int, startDate time.Time, method Method) ([]ScheduleEntry, error) {
	if err := validateTerms(principal, annualRatePercent, tenureMonths); err != nil {
		return nil, err
	}
	if emi.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: emi must be positive, got %s", ErrCalculation, emi)
	}

	monthlyRate := annualRatePercent.Div(monthsPer100)
	n := decimal.NewFromInt(int64(tenureMonths))

	// Flat interest per installment, only used for simple interest.
	flatInterest := principal.Mul(annualRatePercent).Div(hundred).Mul(n).Div(twelve).Div(n).Round(2)

	entries := make([]ScheduleEntry, 0, tenureMonths)
	remaining := principal
	for i := 1; i <= tenureMonths; i++ {
		var interest decimal.Decimal
		switch method {
		case MethodReducingBalance:
			interest = remaining.Mul(monthlyRate).Round(2)
		case MethodSimpleInterest:
			interest = flatInterest
		default:
			return nil, fmt.Errorf("%w: unknown method %q", ErrCalculation, method)
		}

		principalPart := emi.Sub(interest)
		// Rounding drift means the final installment (and pathological
		// rate/tenure combinations before it) would overshoot; clamp to
		// the remaining principal and recompute the interest split.
		if i == tenureMonths || principalPart.GreaterThan(remaining) {
			principalPart = remaining
			interest = emi.Sub(principalPart)
		}
		remaining = remaining.Sub(principalPart)

		entries = append(entries, ScheduleEntry{
			EMINumber:          i,
			DueDate:            startDate.AddDate(0, i, 0),
			EMIAmount:          emi,
			PrincipalComponent: principalPart,
			InterestComponent:  interest,
			RemainingPrincipal: remaining,
		})
	}
	return entries, nil
}

// CalculatePenalty accrues a daily penalty on the overdue amount once the
// grace period is exhausted. Returns zero within grace.
func CalculatePenalty(overdueAmount decimal.Decimal, overdueDays int, annualPenaltyRatePercent decimal.Decimal, gracePeriodDays int) decimal.Decimal {
	if overdueDays <= gracePeriodDays || overdueAmount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	applicableDays := decimal.NewFromInt(int64(overdueDays - gracePeriodDays))
	dailyRate := annualPenaltyRatePercent.Div(daysPerYear).Div(hundred)
	return overdueAmount.Mul(dailyRate).Mul(applicableDays).Round(2)
}

// PaymentAllocation is the waterfall split of a single payment.
// Components each stay within their outstanding bucket and, together
// with Remainder, always sum to the paid amount exactly.
type PaymentAllocation struct {
	FeePayment       decimal.Decimal `json:"fee_payment"`
	PenaltyPayment   decimal.Decimal `json:"penalty_payment"`
	InterestPayment  decimal.Decimal `json:"interest_payment"`
	PrincipalPayment decimal.Decimal `json:"principal_payment"`
	Remainder        decimal.Decimal `json:"remainder"`
}

// AllocatePayment applies a payment against outstanding buckets in strict
// priority order: fees, then penalty, then interest, then principal.
func AllocatePayment(paymentAmount, outstandingPrincipal, outstandingInterest, penaltyOutstanding, feeOutstanding decimal.Decimal) (PaymentAllocation, error) {
	if paymentAmount.IsNegative() {
		return PaymentAllocation{}, fmt.Errorf("%w: payment amount must not be negative", ErrCalculation)
	}
	for _, b := range []decimal.Decimal{outstandingPrincipal, outstandingInterest, penaltyOutstanding, feeOutstanding} {
		if b.IsNegative() {
			return PaymentAllocation{}, fmt.Errorf("%w: outstanding buckets must not be negative", ErrCalculation)
		}
	}

	remaining := paymentAmount
	take := func(bucket decimal.Decimal) decimal.Decimal {
		part := decimal.Min(remaining, bucket)
		remaining = remaining.Sub(part)
		return part
	}

	alloc := PaymentAllocation{}
	alloc.FeePayment = take(feeOutstanding)
	alloc.PenaltyPayment = take(penaltyOutstanding)
	alloc.InterestPayment = take(outstandingInterest)
	alloc.PrincipalPayment = take(outstandingPrincipal)
	alloc.Remainder = remaining
	return alloc, nil
}

// LoanTerms are the fixed parameters of a disbursed loan, sufficient to
// regenerate its schedule and derive its status at any point in time.
type LoanTerms struct {
	Principal          decimal.Decimal
	AnnualRatePercent  decimal.Decimal
	TenureMonths       int
	StartDate          time.Time
	EMIAmount          decimal.Decimal
	Method             Method
	PenaltyRatePercent decimal.Decimal
	GracePeriodDays    int
}

// PaymentRecord is a past payment with its waterfall split.
type PaymentRecord struct {
	Amount           decimal.Decimal
	Date             time.Time
	PrincipalPayment decimal.Decimal
	InterestPayment  decimal.Decimal
	PenaltyPayment   decimal.Decimal
	FeePayment       decimal.Decimal
}

// LoanStatusSnapshot is a point-in-time derivation of a loan's position.
type LoanStatusSnapshot struct {
	MonthsElapsed        int             `json:"months_elapsed"`
	OutstandingPrincipal decimal.Decimal `json:"outstanding_principal"`
	OutstandingInterest  decimal.Decimal `json:"outstanding_interest"`
	TotalPaid            decimal.Decimal `json:"total_paid"`
	OverdueAmount        decimal.Decimal `json:"overdue_amount"`
	OverdueDays          int             `json:"overdue_days"`
	PenaltyAmount        decimal.Decimal `json:"penalty_amount"`
	NextDueDate          *time.Time      `json:"next_due_date,omitempty"`
}

// CalculateCurrentLoanStatus derives the loan's position as of asOf from
// its terms and full payment history. Pure: identical inputs always yield
// identical snapshots.
func CalculateCurrentLoanStatus(terms LoanTerms, payments []PaymentRecord, asOf time.Time) (LoanStatusSnapshot, error) {
	emi := terms.EMIAmount
	if emi.IsZero() {
		var err error
		emi, err = CalculateEMI(terms.Principal, terms.AnnualRatePercent, terms.TenureMonths, terms.Method)
		if err != nil {
			return LoanStatusSnapshot{}, err
		}
	}
	schedule, err := GenerateAmortizationSchedule(terms.Principal, emi, terms.AnnualRatePercent, terms.TenureMonths, terms.StartDate, terms.Method)
	if err != nil {
		return LoanStatusSnapshot{}, err
	}

	var totalPaid, principalPaid, interestPaid decimal.Decimal
	for _, p := range payments {
		totalPaid = totalPaid.Add(p.Amount)
		principalPaid = principalPaid.Add(p.PrincipalPayment)
		interestPaid = interestPaid.Add(p.InterestPayment)
	}

	// Cumulative EMI expected and interest accrued through asOf, per the
	// schedule.
	var expected, accruedInterest decimal.Decimal
	var firstUnpaidDue *time.Time
	var nextDue *time.Time
	cumulative := decimal.Zero
	for i := range schedule {
		e := schedule[i]
		if e.DueDate.After(asOf) {
			if nextDue == nil {
				d := e.DueDate
				nextDue = &d
			}
			continue
		}
		expected = expected.Add(e.EMIAmount)
		accruedInterest = accruedInterest.Add(e.InterestComponent)
		cumulative = cumulative.Add(e.EMIAmount)
		if firstUnpaidDue == nil && cumulative.GreaterThan(totalPaid) {
			d := e.DueDate
			firstUnpaidDue = &d
		}
	}

	outstandingPrincipal := decimal.Max(terms.Principal.Sub(principalPaid), decimal.Zero)
	outstandingInterest := decimal.Max(accruedInterest.Sub(interestPaid), decimal.Zero)
	overdue := decimal.Max(expected.Sub(totalPaid), decimal.Zero)

	overdueDays := 0
	if overdue.IsPositive() && firstUnpaidDue != nil {
		overdueDays = int(asOf.Sub(*firstUnpaidDue).Hours() / 24)
		if overdueDays < 0 {
			overdueDays = 0
		}
	}

	months := monthsBetween(terms.StartDate, asOf)
	if months > terms.TenureMonths {
		months = terms.TenureMonths
	}

	return LoanStatusSnapshot{
		MonthsElapsed:        months,
		OutstandingPrincipal: outstandingPrincipal,
		OutstandingInterest:  outstandingInterest,
		TotalPaid:            totalPaid,
		OverdueAmount:        overdue,
		OverdueDays:          overdueDays,
		PenaltyAmount:        CalculatePenalty(overdue, overdueDays, terms.PenaltyRatePercent, terms.GracePeriodDays),
		NextDueDate:          nextDue,
	}, nil
}

func monthsBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// LoanInput is the pricing request for a disbursement.
type LoanInput struct {
	Principal            decimal.Decimal
	AnnualRatePercent    decimal.Decimal
	TenureMonths         int
	StartDate            time.Time
	Method               Method
	ProcessingFeePercent decimal.Decimal
}

// LoanResult is the complete pricing of a loan at disbursement.
type LoanResult struct {
	MonthlyEMI            decimal.Decimal `json:"monthly_emi"`
	TotalInterest         decimal.Decimal `json:"total_interest"`
	TotalAmount           decimal.Decimal `json:"total_amount"`
	ProcessingFee         decimal.Decimal `json:"processing_fee"`
	EffectiveInterestRate decimal.Decimal `json:"effective_interest_rate"`
	EMISchedule           []ScheduleEntry `json:"emi_schedule"`
}

// CalculateLoan prices a loan: EMI, full schedule, totals, processing fee
// and the effective annualized rate including that fee.
func CalculateLoan(in LoanInput) (*LoanResult, error) {
	emi, err := CalculateEMI(in.Principal, in.AnnualRatePercent, in.TenureMonths, in.Method)
	if err != nil {
		return nil, err
	}
	schedule, err := GenerateAmortizationSchedule(in.Principal, emi, in.AnnualRatePercent, in.TenureMonths, in.StartDate, in.Method)
	if err != nil {
		return nil, err
	}

	totalAmount := emi.Mul(decimal.NewFromInt(int64(in.TenureMonths)))
	totalInterest := totalAmount.Sub(in.Principal)
	fee := in.Principal.Mul(in.ProcessingFeePercent).Div(hundred).Round(2)

	years := decimal.NewFromInt(int64(in.TenureMonths)).Div(twelve)
	effective := totalInterest.Add(fee).Div(in.Principal).Div(years).Mul(hundred).Round(2)

	return &LoanResult{
		MonthlyEMI:            emi,
		TotalInterest:         totalInterest,
		TotalAmount:           totalAmount,
		ProcessingFee:         fee,
		EffectiveInterestRate: effective,
		EMISchedule:           schedule,
	}, nil
}

// CalculateLTV returns the loan-to-value percentage of a loan against the
// pledged gold value.
func CalculateLTV(loanAmount, goldValue decimal.Decimal) (decimal.Decimal, error) {
	if goldValue.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: gold value must be positive", ErrCalculation)
	}
	return loanAmount.Div(goldValue).Mul(hundred).Round(2), nil
}

// CalculateMaxLoanAmount caps the lendable amount at maxLTVPercent of the
// pledged gold value.
func CalculateMaxLoanAmount(goldValue, maxLTVPercent decimal.Decimal) decimal.Decimal {
	return goldValue.Mul(maxLTVPercent).Div(hundred).Round(2)
}

// CalculateInterestRate risk-adjusts the base rate: every LTV point above
// the threshold adds incrementPerPoint to the annual rate.
func CalculateInterestRate(baseRatePercent, ltvPercent, ltvThreshold, incrementPerPoint decimal.Decimal) decimal.Decimal {
	excess := ltvPercent.Sub(ltvThreshold)
	if excess.IsNegative() {
		return baseRatePercent
	}
	return baseRatePercent.Add(incrementPerPoint.Mul(excess)).Round(4)
}
