package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"expensemate/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func expense(payer string, amount string, cat domain.Category, status domain.ExpenseStatus, splits ...domain.ExpenseSplit) domain.Expense {
	st := domain.SplitTypeNone
	if len(splits) > 0 {
		st = domain.SplitTypeEqual
	}
	return domain.Expense{
		ID:        "exp-" + payer + "-" + amount,
		OwnerID:   payer,
		PayerID:   payer,
		Amount:    dec(amount),
		Category:  cat,
		Status:    status,
		SplitType: st,
		Splits:    splits,
	}
}

func splitRow(userID, owed string, paid bool) domain.ExpenseSplit {
	return domain.ExpenseSplit{UserID: userID, AmountOwed: dec(owed), HasPaid: paid}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		expenses []domain.Expense
		want     domain.LedgerSummary
	}{
		{
			name:   "payer unsplit pending",
			userID: "me",
			expenses: []domain.Expense{
				expense("me", "90", domain.CategoryTiffin, domain.ExpenseStatusPending),
			},
			want: domain.LedgerSummary{
				PersonalSpend: dec("90"),
				TotalPending:  dec("90"),
				TiffinPending: dec("90"),
			},
		},
		{
			name:   "payer split misc expense with one unpaid debtor",
			userID: "me",
			expenses: []domain.Expense{
				expense("me", "300", domain.CategoryMiscellaneous, domain.ExpenseStatusPending,
					splitRow("alice", "100", false),
					splitRow("bob", "100", true),
				),
			},
			want: domain.LedgerSummary{
				PersonalSpend:   dec("100"),
				TotalOwedToUser: dec("100"),
				SplitwiseOwed:   dec("100"),
			},
		},
		{
			name:   "payer split food expense excluded from splitwise bucket",
			userID: "me",
			expenses: []domain.Expense{
				expense("me", "90", domain.CategoryTiffin, domain.ExpenseStatusPending,
					splitRow("alice", "30", false),
					splitRow("bob", "30", false),
				),
			},
			want: domain.LedgerSummary{
				PersonalSpend:   dec("30"),
				TotalOwedToUser: dec("60"),
				TiffinPending:   dec("90"),
			},
		},
		{
			name:   "debtor on someone else's expense",
			userID: "me",
			expenses: []domain.Expense{
				expense("alice", "200", domain.CategoryMiscellaneous, domain.ExpenseStatusPending,
					splitRow("me", "120", false),
					splitRow("bob", "80", false),
				),
			},
			want: domain.LedgerSummary{
				PersonalSpend:   dec("120"),
				TotalOwedByUser: dec("120"),
				SplitwiseOwe:    dec("120"),
				TotalPending:    dec("120"),
			},
		},
		{
			name:   "paid debtor row stops counting as owed",
			userID: "me",
			expenses: []domain.Expense{
				expense("alice", "200", domain.CategoryDelivery, domain.ExpenseStatusPending,
					splitRow("me", "100", true),
					splitRow("bob", "100", false),
				),
			},
			want: domain.LedgerSummary{
				PersonalSpend: dec("100"),
			},
		},
		{
			name:   "cleared food expenses accumulate into cleared total",
			userID: "me",
			expenses: []domain.Expense{
				expense("me", "90", domain.CategoryTiffin, domain.ExpenseStatusCleared),
				expense("me", "15", domain.CategoryDelivery, domain.ExpenseStatusCleared),
				expense("me", "15", domain.CategoryDelivery, domain.ExpenseStatusPending),
			},
			want: domain.LedgerSummary{
				PersonalSpend:   dec("120"),
				TotalPending:    dec("15"),
				DeliveryPending: dec("15"),
				TotalCleared:    dec("105"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.userID, tt.expenses)
			assertAmount(t, "PersonalSpend", got.PersonalSpend, tt.want.PersonalSpend)
			assertAmount(t, "TotalOwedToUser", got.TotalOwedToUser, tt.want.TotalOwedToUser)
			assertAmount(t, "TotalOwedByUser", got.TotalOwedByUser, tt.want.TotalOwedByUser)
			assertAmount(t, "SplitwiseOwed", got.SplitwiseOwed, tt.want.SplitwiseOwed)
			assertAmount(t, "SplitwiseOwe", got.SplitwiseOwe, tt.want.SplitwiseOwe)
			assertAmount(t, "TiffinPending", got.TiffinPending, tt.want.TiffinPending)
			assertAmount(t, "DeliveryPending", got.DeliveryPending, tt.want.DeliveryPending)
			assertAmount(t, "TotalPending", got.TotalPending, tt.want.TotalPending)
			assertAmount(t, "TotalCleared", got.TotalCleared, tt.want.TotalCleared)
		})
	}
}

func assertAmount(t *testing.T, field string, got, want decimal.Decimal) {
	t.Helper()
	if want.IsZero() && got.IsZero() {
		return
	}
	if !got.Equal(want) {
		t.Errorf("%s = %s, want %s", field, got, want)
	}
}

// Totals come from the full history even when the display list is filtered;
// the two computations are intentionally independent.
func TestSummaryIndependentOfDisplayFilter(t *testing.T) {
	now := time.Date(2026, time.August, 20, 12, 0, 0, 0, time.UTC)
	old := expense("me", "500", domain.CategoryMiscellaneous, domain.ExpenseStatusPending,
		splitRow("alice", "250", false),
	)
	old.CreatedAt = now.AddDate(0, -3, 0)
	fresh := expense("me", "90", domain.CategoryTiffin, domain.ExpenseStatusPending)
	fresh.CreatedAt = now.AddDate(0, 0, -1)

	all := []domain.Expense{old, fresh}

	visible := Filter(all, FilterOptions{Range: RangeThisMonth, Status: StatusAll}, now)
	if len(visible) != 1 || visible[0].ID != fresh.ID {
		t.Fatalf("filter kept %d expenses", len(visible))
	}

	sum := Summarize("me", all)
	if !sum.TotalOwedToUser.Equal(dec("250")) {
		t.Fatalf("TotalOwedToUser = %s, want 250 despite display filter", sum.TotalOwedToUser)
	}
}

func TestFilterRanges(t *testing.T) {
	now := time.Date(2026, time.August, 20, 12, 0, 0, 0, time.UTC) // a Thursday

	mk := func(created time.Time, status domain.ExpenseStatus) domain.Expense {
		e := expense("me", "10", domain.CategoryMiscellaneous, status)
		e.CreatedAt = created
		return e
	}

	thisWeek := mk(time.Date(2026, time.August, 17, 9, 0, 0, 0, time.UTC), domain.ExpenseStatusPending)
	thisMonth := mk(time.Date(2026, time.August, 2, 9, 0, 0, 0, time.UTC), domain.ExpenseStatusCleared)
	lastMonth := mk(time.Date(2026, time.July, 15, 9, 0, 0, 0, time.UTC), domain.ExpenseStatusPending)
	ancient := mk(time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC), domain.ExpenseStatusPending)

	all := []domain.Expense{thisWeek, thisMonth, lastMonth, ancient}

	tests := []struct {
		name string
		opts FilterOptions
		want int
	}{
		{"all", FilterOptions{Range: RangeAll, Status: StatusAll}, 4},
		{"this week", FilterOptions{Range: RangeThisWeek, Status: StatusAll}, 1},
		{"this month", FilterOptions{Range: RangeThisMonth, Status: StatusAll}, 2},
		{"last month", FilterOptions{Range: RangeLastMonth, Status: StatusAll}, 1},
		{"pending only", FilterOptions{Range: RangeAll, Status: StatusPending}, 3},
		{"cleared this month", FilterOptions{Range: RangeThisMonth, Status: StatusCleared}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(all, tt.opts, now)
			if len(got) != tt.want {
				t.Fatalf("Filter() kept %d expenses, want %d", len(got), tt.want)
			}
		})
	}
}

func TestFilterOptionsValidate(t *testing.T) {
	if err := (FilterOptions{Range: RangeAll, Status: StatusAll}).Validate(); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}
	if err := (FilterOptions{Range: "yesterday"}).Validate(); err == nil {
		t.Fatal("invalid range accepted")
	}
}
