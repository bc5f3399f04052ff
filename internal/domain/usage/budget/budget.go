package budget

// Period is the budget window.
type Period string

// Budget windows.
const (
	PeriodDaily   Period = "daily"
	PeriodMonthly Period = "monthly"
)

// Budget is a snapshot of embedding token consumption for one window.
type Budget struct {
	period      Period
	tokensLimit int64
	tokensUsed  int64
	resetsAt    int64 // unix millis
}

// New creates a Budget snapshot. A zero limit means unlimited.
func New(period Period, limit, used, resetsAt int64) Budget {
	return Budget{period: period, tokensLimit: limit, tokensUsed: used, resetsAt: resetsAt}
}

// Period returns the budget window.
func (b Budget) Period() Period { return b.period }

// TokensLimit returns the token cap (0 = unlimited).
func (b Budget) TokensLimit() int64 { return b.tokensLimit }

// TokensUsed returns tokens consumed in the window.
func (b Budget) TokensUsed() int64 { return b.tokensUsed }

// TokensRemaining returns tokens left, -1 when unlimited.
func (b Budget) TokensRemaining() int64 {
	if b.tokensLimit == 0 {
		return -1
	}
	return max(0, b.tokensLimit-b.tokensUsed)
}

// IsExhausted reports whether the budget is spent.
func (b Budget) IsExhausted() bool {
	return b.tokensLimit > 0 && b.tokensUsed >= b.tokensLimit
}

// ResetsAt returns the reset timestamp (unix millis).
func (b Budget) ResetsAt() int64 { return b.resetsAt }
