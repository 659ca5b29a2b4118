package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ExpenseStatus string

const (
	ExpenseStatusPending ExpenseStatus = "pending"
	ExpenseStatusCleared ExpenseStatus = "cleared"
)

type SplitType string

const (
	SplitTypeNone       SplitType = "none"
	SplitTypeEqual      SplitType = "equal"
	SplitTypeExact      SplitType = "exact"
	SplitTypePercentage SplitType = "percentage"
)

type Category string

const (
	CategoryTiffin        Category = "tiffin"
	CategoryDelivery      Category = "delivery"
	CategoryMiscellaneous Category = "miscellaneous"
)

// IsFood reports whether the category belongs to the recurring food buckets
// that the dashboard tallies separately from the splitwise figures.
func (c Category) IsFood() bool {
	return c == CategoryTiffin || c == CategoryDelivery
}

func ValidCategory(c Category) bool {
	switch c {
	case CategoryTiffin, CategoryDelivery, CategoryMiscellaneous:
		return true
	}
	return false
}

func ValidSplitType(t SplitType) bool {
	switch t {
	case SplitTypeNone, SplitTypeEqual, SplitTypeExact, SplitTypePercentage:
		return true
	}
	return false
}

// Expense is one logged expense, with its split rows embedded when the
// expense was divided among friends. OwnerID created the row; PayerID
// fronted the money and is usually, but not necessarily, the same user.
type Expense struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	PayerID   string          `json:"payer_id"`
	Amount    decimal.Decimal `json:"amount"`
	Category  Category        `json:"category"`
	Note      string          `json:"note,omitempty"`
	Status    ExpenseStatus   `json:"status"`
	SplitType SplitType       `json:"split_type"`
	Splits    []ExpenseSplit  `json:"splits,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ExpenseSplit is one participant's debt toward the expense payer.
type ExpenseSplit struct {
	ID         string          `json:"id"`
	ExpenseID  string          `json:"expense_id"`
	UserID     string          `json:"user_id"`
	AmountOwed decimal.Decimal `json:"amount_owed"`
	HasPaid    bool            `json:"has_paid"`
	Debtor     UserSummary     `json:"debtor"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// SplitTotal sums the persisted split rows. The payer's own residual share
// is Amount minus this value and is never stored as a row.
func (e *Expense) SplitTotal() decimal.Decimal {
	total := decimal.Zero
	for _, s := range e.Splits {
		total = total.Add(s.AmountOwed)
	}
	return total
}

// LedgerSummary is the dashboard aggregate computed over a user's full,
// unfiltered expense history.
type LedgerSummary struct {
	PersonalSpend   decimal.Decimal `json:"personal_spend"`
	TotalOwedToUser decimal.Decimal `json:"total_owed_to_user"`
	TotalOwedByUser decimal.Decimal `json:"total_owed_by_user"`
	SplitwiseOwed   decimal.Decimal `json:"splitwise_owed"`
	SplitwiseOwe    decimal.Decimal `json:"splitwise_owe"`
	TiffinPending   decimal.Decimal `json:"tiffin_pending"`
	DeliveryPending decimal.Decimal `json:"delivery_pending"`
	TotalPending    decimal.Decimal `json:"total_pending"`
	TotalCleared    decimal.Decimal `json:"total_cleared"`
}
