// Package split turns an expense total plus a participant list into the
// per-participant debts owed to the payer, under the equal, exact and
// percentage strategies.
package split

import (
	"github.com/shopspring/decimal"

	"expensemate/internal/domain"
)

var (
	// Declared exact amounts may drift from the total by up to five paise
	// before the submission is rejected.
	exactTolerance = decimal.NewFromFloat(0.05)

	percentLow  = decimal.NewFromFloat(99.9)
	percentHigh = decimal.NewFromFloat(100.1)
	hundred     = decimal.NewFromInt(100)
)

// Participant is one person selected for the split. Value carries the
// declared amount under the exact strategy and the declared percentage under
// the percentage strategy; it is ignored for equal splits.
type Participant struct {
	UserID string
	Value  decimal.Decimal
}

type Input struct {
	Total        decimal.Decimal
	PayerID      string
	Strategy     domain.SplitType
	Participants []Participant
}

// Share is one computed debt row. The payer never appears as a share; their
// residual portion of the total is implied.
type Share struct {
	UserID     string
	AmountOwed decimal.Decimal
}

// Calculate validates the input and computes the ordered share list.
// Each share is rounded to two decimal places independently, so the shares
// of an exact or percentage split may not sum exactly to the total; that
// drift is deliberate and is not reconciled onto any participant.
func Calculate(in Input) ([]Share, error) {
	if !in.Total.IsPositive() {
		return nil, domain.ErrInvalidSplitValue
	}

	participants := dedupe(in.Participants)
	debtors := 0
	for _, p := range participants {
		if p.UserID != in.PayerID {
			debtors++
		}
	}
	if debtors == 0 {
		return nil, domain.ErrNoParticipants
	}

	switch in.Strategy {
	case domain.SplitTypeEqual:
		return equalShares(in.Total, in.PayerID, participants), nil
	case domain.SplitTypeExact:
		return exactShares(in.Total, in.PayerID, participants)
	case domain.SplitTypePercentage:
		return percentageShares(in.Total, in.PayerID, participants)
	default:
		return nil, domain.NewValidationError(map[string]string{"split_type": "must be equal, exact or percentage"})
	}
}

// equalShares divides the total by the headcount including the payer and
// emits one rounded share per non-payer.
func equalShares(total decimal.Decimal, payerID string, participants []Participant) []Share {
	n := len(participants)
	if !containsUser(participants, payerID) {
		n++
	}

	perHead := total.Div(decimal.NewFromInt(int64(n))).Round(2)

	shares := make([]Share, 0, len(participants))
	for _, p := range participants {
		if p.UserID == payerID {
			continue
		}
		shares = append(shares, Share{UserID: p.UserID, AmountOwed: perHead})
	}
	return shares
}

func exactShares(total decimal.Decimal, payerID string, participants []Participant) ([]Share, error) {
	declared := decimal.Zero
	for _, p := range participants {
		if p.Value.IsNegative() {
			return nil, domain.ErrInvalidSplitValue
		}
		declared = declared.Add(p.Value)
	}

	if declared.Sub(total).Abs().GreaterThan(exactTolerance) {
		return nil, domain.ErrAmountMismatch
	}

	var shares []Share
	for _, p := range participants {
		if p.UserID == payerID || !p.Value.IsPositive() {
			continue
		}
		shares = append(shares, Share{UserID: p.UserID, AmountOwed: p.Value.Round(2)})
	}
	return shares, nil
}

func percentageShares(total decimal.Decimal, payerID string, participants []Participant) ([]Share, error) {
	declared := decimal.Zero
	for _, p := range participants {
		if p.Value.IsNegative() {
			return nil, domain.ErrInvalidSplitValue
		}
		declared = declared.Add(p.Value)
	}

	if declared.LessThan(percentLow) || declared.GreaterThan(percentHigh) {
		return nil, domain.ErrPercentageMismatch
	}

	var shares []Share
	for _, p := range participants {
		if p.UserID == payerID || !p.Value.IsPositive() {
			continue
		}
		owed := total.Mul(p.Value).Div(hundred).Round(2)
		shares = append(shares, Share{UserID: p.UserID, AmountOwed: owed})
	}
	return shares, nil
}

// dedupe drops blank user ids and repeated participants, keeping first
// occurrence order.
func dedupe(participants []Participant) []Participant {
	seen := make(map[string]bool, len(participants))
	out := make([]Participant, 0, len(participants))
	for _, p := range participants {
		if p.UserID == "" || seen[p.UserID] {
			continue
		}
		seen[p.UserID] = true
		out = append(out, p)
	}
	return out
}

func containsUser(participants []Participant, userID string) bool {
	for _, p := range participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
