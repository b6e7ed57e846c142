package calculator

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCalculateEMI_ReducingBalance(t *testing.T) {
	// 50k at 12% over 12 months: r=0.01, (1.01)^12 ≈ 1.126825
	emi, err := CalculateEMI(dec("50000"), dec("12"), 12, MethodReducingBalance)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !emi.Equal(dec("4442.44")) {
		t.Fatalf("emi = %s, want 4442.44", emi)
	}
}

func TestCalculateEMI_ZeroRate(t *testing.T) {
	emi, err := CalculateEMI(dec("12000"), dec("0"), 12, MethodReducingBalance)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !emi.Equal(dec("1000")) {
		t.Fatalf("emi = %s, want 1000", emi)
	}
}

func TestCalculateEMI_SimpleInterest(t *testing.T) {
	// flat interest: 50000 * 12% * 1yr = 6000 → (50000+6000)/12
	emi, err := CalculateEMI(dec("50000"), dec("12"), 12, MethodSimpleInterest)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !emi.Equal(dec("4666.67")) {
		t.Fatalf("emi = %s, want 4666.67", emi)
	}
}

func TestCalculateEMI_InvalidInputs(t *testing.T) {
	tests := []struct {
		name      string
		principal string
		rate      string
		tenure    int
		method    Method
	}{
		{"zero principal", "0", "12", 12, MethodReducingBalance},
		{"negative principal", "-100", "12", 12, MethodReducingBalance},
		{"zero tenure", "1000", "12", 0, MethodReducingBalance},
		{"negative rate", "1000", "-1", 12, MethodReducingBalance},
		{"unknown method", "1000", "12", 12, Method("compound_daily")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CalculateEMI(dec(tt.principal), dec(tt.rate), tt.tenure, tt.method)
			if !errors.Is(err, ErrCalculation) {
				t.Fatalf("want ErrCalculation, got %v", err)
			}
		})
	}
}

func TestGenerateAmortizationSchedule_Reconciles(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		principal string
		rate      string
		tenure    int
		method    Method
	}{
		{"50k 12% 12mo reducing", "50000", "12", 12, MethodReducingBalance},
		{"1M 22% 36mo reducing", "1000000", "22", 36, MethodReducingBalance},
		{"7777.77 9.5% 7mo reducing", "7777.77", "9.5", 7, MethodReducingBalance},
		{"zero rate", "12000", "0", 12, MethodReducingBalance},
		{"simple interest", "50000", "12", 12, MethodSimpleInterest},
		{"simple odd amount", "99999.99", "18", 24, MethodSimpleInterest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			principal := dec(tt.principal)
			emi, err := CalculateEMI(principal, dec(tt.rate), tt.tenure, tt.method)
			if err != nil {
				t.Fatalf("emi err: %v", err)
			}
			schedule, err := GenerateAmortizationSchedule(principal, emi, dec(tt.rate), tt.tenure, start, tt.method)
			if err != nil {
				t.Fatalf("schedule err: %v", err)
			}
			if len(schedule) != tt.tenure {
				t.Fatalf("len = %d, want %d", len(schedule), tt.tenure)
			}

			sum := decimal.Zero
			for i, e := range schedule {
				if e.EMINumber != i+1 {
					t.Fatalf("entry %d: emi number %d", i, e.EMINumber)
				}
				if !e.PrincipalComponent.Add(e.InterestComponent).Equal(e.EMIAmount) {
					t.Fatalf("entry %d: components %s + %s != emi %s",
						i, e.PrincipalComponent, e.InterestComponent, e.EMIAmount)
				}
				sum = sum.Add(e.PrincipalComponent)
			}
			if !sum.Equal(principal) {
				t.Fatalf("principal components sum to %s, want %s", sum, principal)
			}
			if last := schedule[len(schedule)-1]; !last.RemainingPrincipal.IsZero() {
				t.Fatalf("final remaining principal = %s, want 0", last.RemainingPrincipal)
			}
		})
	}
}

func TestGenerateAmortizationSchedule_FirstEntry(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	schedule, err := GenerateAmortizationSchedule(dec("50000"), dec("4442.44"), dec("12"), 12, start, MethodReducingBalance)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	first := schedule[0]
	if !first.InterestComponent.Equal(dec("500")) {
		t.Fatalf("first interest = %s, want 500", first.InterestComponent)
	}
	if !first.PrincipalComponent.Equal(dec("3942.44")) {
		t.Fatalf("first principal = %s, want 3942.44", first.PrincipalComponent)
	}
	if !first.DueDate.Equal(start.AddDate(0, 1, 0)) {
		t.Fatalf("first due date = %s", first.DueDate)
	}
}

func TestCalculatePenalty(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		days    int
		rate    string
		grace   int
		penalty string
	}{
		{"within grace", "1000", 5, "24", 7, "0"},
		{"exactly grace", "1000", 7, "24", 7, "0"},
		{"13 applicable days", "1000", 20, "24", 7, "8.55"},
		{"zero amount", "0", 20, "24", 7, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculatePenalty(dec(tt.amount), tt.days, dec(tt.rate), tt.grace)
			if !got.Equal(dec(tt.penalty)) {
				t.Fatalf("penalty = %s, want %s", got, tt.penalty)
			}
		})
	}
}

func TestAllocatePayment_Waterfall(t *testing.T) {
	tests := []struct {
		name                                          string
		payment, principal, interest, penalty, fee    string
		wantFee, wantPenalty, wantInterest, wantPrinc string
		wantRemainder                                 string
	}{
		{"fees penalty interest principal", "1000", "800", "150", "100", "0", "0", "100", "150", "750", "0"},
		{"overpayment", "2000", "800", "150", "100", "50", "50", "100", "150", "800", "900"},
		{"partial fee only", "30", "800", "150", "100", "50", "30", "0", "0", "0", "0"},
		{"stops mid interest", "300", "800", "150", "100", "0", "0", "100", "150", "50", "0"},
		{"zero payment", "0", "800", "150", "100", "0", "0", "0", "0", "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AllocatePayment(dec(tt.payment), dec(tt.principal), dec(tt.interest), dec(tt.penalty), dec(tt.fee))
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			checks := []struct {
				field string
				got   decimal.Decimal
				want  string
			}{
				{"fee", got.FeePayment, tt.wantFee},
				{"penalty", got.PenaltyPayment, tt.wantPenalty},
				{"interest", got.InterestPayment, tt.wantInterest},
				{"principal", got.PrincipalPayment, tt.wantPrinc},
				{"remainder", got.Remainder, tt.wantRemainder},
			}
			for _, c := range checks {
				if !c.got.Equal(dec(c.want)) {
					t.Fatalf("%s = %s, want %s", c.field, c.got, c.want)
				}
			}
			// conservation: components + remainder == payment, exactly
			total := got.FeePayment.Add(got.PenaltyPayment).Add(got.InterestPayment).Add(got.PrincipalPayment).Add(got.Remainder)
			if !total.Equal(dec(tt.payment)) {
				t.Fatalf("components sum to %s, want %s", total, tt.payment)
			}
		})
	}
}

func TestAllocatePayment_Invalid(t *testing.T) {
	if _, err := AllocatePayment(dec("-1"), dec("0"), dec("0"), dec("0"), dec("0")); !errors.Is(err, ErrCalculation) {
		t.Fatalf("want ErrCalculation, got %v", err)
	}
	if _, err := AllocatePayment(dec("10"), dec("-5"), dec("0"), dec("0"), dec("0")); !errors.Is(err, ErrCalculation) {
		t.Fatalf("want ErrCalculation, got %v", err)
	}
}

func TestCalculateCurrentLoanStatus_RoundTrip(t *testing.T) {
	// Replaying a payment history that exactly matches the schedule
	// must zero everything out.
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	terms := LoanTerms{
		Principal:          dec("50000"),
		AnnualRatePercent:  dec("12"),
		TenureMonths:       12,
		StartDate:          start,
		Method:             MethodReducingBalance,
		PenaltyRatePercent: dec("24"),
		GracePeriodDays:    7,
	}
	emi, err := CalculateEMI(terms.Principal, terms.AnnualRatePercent, terms.TenureMonths, terms.Method)
	if err != nil {
		t.Fatalf("emi err: %v", err)
	}
	terms.EMIAmount = emi
	schedule, err := GenerateAmortizationSchedule(terms.Principal, emi, terms.AnnualRatePercent, terms.TenureMonths, start, terms.Method)
	if err != nil {
		t.Fatalf("schedule err: %v", err)
	}

	payments := make([]PaymentRecord, 0, len(schedule))
	for _, e := range schedule {
		payments = append(payments, PaymentRecord{
			Amount:           e.EMIAmount,
			Date:             e.DueDate,
			PrincipalPayment: e.PrincipalComponent,
			InterestPayment:  e.InterestComponent,
		})
	}

	asOf := start.AddDate(1, 1, 0)
	snap, err := CalculateCurrentLoanStatus(terms, payments, asOf)
	if err != nil {
		t.Fatalf("status err: %v", err)
	}
	if !snap.OutstandingPrincipal.IsZero() {
		t.Fatalf("outstanding principal = %s, want 0", snap.OutstandingPrincipal)
	}
	if !snap.OutstandingInterest.IsZero() {
		t.Fatalf("outstanding interest = %s, want 0", snap.OutstandingInterest)
	}
	if !snap.OverdueAmount.IsZero() {
		t.Fatalf("overdue = %s, want 0", snap.OverdueAmount)
	}
	if !snap.PenaltyAmount.IsZero() {
		t.Fatalf("penalty = %s, want 0", snap.PenaltyAmount)
	}
}

func TestCalculateCurrentLoanStatus_Overdue(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	terms := LoanTerms{
		Principal:          dec("50000"),
		AnnualRatePercent:  dec("12"),
		TenureMonths:       12,
		StartDate:          start,
		EMIAmount:          dec("4442.44"),
		Method:             MethodReducingBalance,
		PenaltyRatePercent: dec("24"),
		GracePeriodDays:    7,
	}

	// Nothing paid, two installments due (Feb 1, Mar 1); as of Mar 10
	// the oldest unpaid installment is 37 days overdue.
	asOf := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	snap, err := CalculateCurrentLoanStatus(terms, nil, asOf)
	if err != nil {
		t.Fatalf("status err: %v", err)
	}
	wantOverdue := dec("4442.44").Mul(decimal.NewFromInt(2))
	if !snap.OverdueAmount.Equal(wantOverdue) {
		t.Fatalf("overdue = %s, want %s", snap.OverdueAmount, wantOverdue)
	}
	if snap.OverdueDays != 37 {
		t.Fatalf("overdue days = %d, want 37", snap.OverdueDays)
	}
	if !snap.OutstandingPrincipal.Equal(dec("50000")) {
		t.Fatalf("outstanding principal = %s, want 50000", snap.OutstandingPrincipal)
	}
	wantPenalty := CalculatePenalty(wantOverdue, 37, terms.PenaltyRatePercent, terms.GracePeriodDays)
	if !snap.PenaltyAmount.Equal(wantPenalty) {
		t.Fatalf("penalty = %s, want %s", snap.PenaltyAmount, wantPenalty)
	}
	if snap.NextDueDate == nil || !snap.NextDueDate.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("next due = %v, want 2025-04-01", snap.NextDueDate)
	}
	if snap.MonthsElapsed != 2 {
		t.Fatalf("months elapsed = %d, want 2", snap.MonthsElapsed)
	}
}

func TestCalculateLoan(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	res, err := CalculateLoan(LoanInput{
		Principal:            dec("50000"),
		AnnualRatePercent:    dec("12"),
		TenureMonths:         12,
		StartDate:            start,
		Method:               MethodReducingBalance,
		ProcessingFeePercent: dec("1"),
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !res.MonthlyEMI.Equal(dec("4442.44")) {
		t.Fatalf("emi = %s, want 4442.44", res.MonthlyEMI)
	}
	if !res.TotalAmount.Equal(dec("53309.28")) {
		t.Fatalf("total = %s, want 53309.28", res.TotalAmount)
	}
	if !res.TotalInterest.Equal(dec("3309.28")) {
		t.Fatalf("interest = %s, want 3309.28", res.TotalInterest)
	}
	if !res.ProcessingFee.Equal(dec("500")) {
		t.Fatalf("fee = %s, want 500", res.ProcessingFee)
	}
	if !res.EffectiveInterestRate.Equal(dec("7.62")) {
		t.Fatalf("effective rate = %s, want 7.62", res.EffectiveInterestRate)
	}
	if len(res.EMISchedule) != 12 {
		t.Fatalf("schedule len = %d, want 12", len(res.EMISchedule))
	}
}

func TestLTVHelpers(t *testing.T) {
	ltv, err := CalculateLTV(dec("50000"), dec("100000"))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !ltv.Equal(dec("50")) {
		t.Fatalf("ltv = %s, want 50", ltv)
	}
	if _, err := CalculateLTV(dec("50000"), dec("0")); !errors.Is(err, ErrCalculation) {
		t.Fatalf("want ErrCalculation, got %v", err)
	}

	if got := CalculateMaxLoanAmount(dec("100000"), dec("75")); !got.Equal(dec("75000")) {
		t.Fatalf("max loan = %s, want 75000", got)
	}

	// below threshold keeps base rate; 5 points over adds 5×0.5
	if got := CalculateInterestRate(dec("12"), dec("70"), dec("75"), dec("0.5")); !got.Equal(dec("12")) {
		t.Fatalf("rate = %s, want 12", got)
	}
	if got := CalculateInterestRate(dec("12"), dec("80"), dec("75"), dec("0.5")); !got.Equal(dec("14.5")) {
		t.Fatalf("rate = %s, want 14.5", got)
	}
}
