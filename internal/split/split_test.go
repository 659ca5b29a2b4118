package split

import (
	"errors"
	"testing"

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

func TestCalculate(t *testing.T) {
	tests := []struct {
		name         string
		input        Input
		wantErr      error
		wantShares   map[string]string
		wantOrder    []string
		validateFunc func(t *testing.T, shares []Share)
	}{
		{
			name: "equal three-way split including payer",
			input: Input{
				Total:    dec("300"),
				PayerID:  "payer",
				Strategy: domain.SplitTypeEqual,
				Participants: []Participant{
					{UserID: "payer"},
					{UserID: "alice"},
					{UserID: "bob"},
				},
			},
			wantShares: map[string]string{"alice": "100", "bob": "100"},
			wantOrder:  []string{"alice", "bob"},
		},
		{
			name: "equal split counts payer even when not listed",
			input: Input{
				Total:    dec("300"),
				PayerID:  "payer",
				Strategy: domain.SplitTypeEqual,
				Participants: []Participant{
					{UserID: "alice"},
					{UserID: "bob"},
				},
			},
			wantShares: map[string]string{"alice": "100", "bob": "100"},
		},
		{
			name: "equal split rounds half up per participant",
			input: Input{
				Total:    dec("100"),
				PayerID:  "payer",
				Strategy: domain.SplitTypeEqual,
				Participants: []Participant{
					{UserID: "payer"},
					{UserID: "alice"},
					{UserID: "bob"},
				},
			},
			// 100/3 = 33.333..., rounded per row; drift is accepted.
			wantShares: map[string]string{"alice": "33.33", "bob": "33.33"},
		},
		{
			name: "duplicate participants collapse",
			input: Input{
				Total:    dec("300"),
				PayerID:  "payer",
				Strategy: domain.SplitTypeEqual,
				Participants: []Participant{
					{UserID: "payer"},
					{UserID: "alice"},
					{UserID: "alice"},
					{UserID: "bob"},
				},
			},
			wantShares: map[string]string{"alice": "100", "bob": "100"},
		},
		{
			name: "exact split within tolerance",
			input: Input{
				Total:    dec("250"),
				PayerID:  "payer",
				Strategy: domain.SplitTypeExact,
				Participants: []Participant{
					{UserID: "alice", Value: dec("100")},
					{UserID: "bob", Value: dec("50")},
					{UserID: "payer", Value: dec("100")},
				},
			},
			wantShares: map[string]string{"alice": "100", "bob": "50"},
		},
		{
			name: "exact split just inside tolerance",
			input: Input{
				Total:    dec("250"),
				PayerID:  "payer",
				Strategy: domain.SplitTypeExact,
				Participants: []Participant{
					{UserID: "alice", Value: dec("100.03")},
					{UserID: "bob", Value: dec("50")},
					{UserID: "payer", Value: dec("100")},
				},
			},
			wantShares: map[string]string{"alice": "100.03", "bob": "50"},
		},
		{
			name: "exact split outside tolerance fails",
			input: Input{
				Total:    dec("250"),
				PayerID:  "payer",
				Strategy: domain.SplitTypeExact,
				Participants: []Participant{
					{UserID: "alice", Value: dec("100")},
					{UserID: "bob", Value: dec("49")},
					{UserID: "payer", Value: dec("100")},
				},
			},
			wantErr: domain.ErrAmountMismatch,
		},
		{
			name: "exact split rejects negative declared amount",
			input: Input{
				Total:    dec("250"),
				PayerID:  "payer",
				Strategy: domain.SplitTypeExact,
				Participants: []Participant{
					{UserID: "alice", Value: dec("-10")},
					{UserID: "bob", Value: dec("260")},
				},
			},
			wantErr: domain.ErrInvalidSplitValue,
		},
		{
			name: "exact split drops zero-amount debtors",
			input: Input{
				Total:    dec("200"),
				PayerID:  "payer",
				Strategy: domain.SplitTypeExact,
				Participants: []Participant{
					{UserID: "alice", Value: dec("0")},
					{UserID: "bob", Value: dec("200")},
				},
			},
			wantShares: map[string]string{"bob": "200"},
		},
		{
			name: "percentage split 60/40",
			input: Input{
				Total:    dec("200"),
				PayerID:  "payer",
				Strategy: domain.SplitTypePercentage,
				Participants: []Participant{
					{UserID: "alice", Value: dec("60")},
					{UserID: "bob", Value: dec("40")},
				},
			},
			wantShares: map[string]string{"alice": "120", "bob": "80"},
		},
		{
			name: "percentage split within band",
			input: Input{
				Total:    dec("200"),
				PayerID:  "payer",
				Strategy: domain.SplitTypePercentage,
				Participants: []Participant{
					{UserID: "alice", Value: dec("60.05")},
					{UserID: "bob", Value: dec("40")},
				},
			},
			wantShares: map[string]string{"alice": "120.1", "bob": "80"},
		},
		{
			name: "percentage split outside band fails",
			input: Input{
				Total:    dec("200"),
				PayerID:  "payer",
				Strategy: domain.SplitTypePercentage,
				Participants: []Participant{
					{UserID: "alice", Value: dec("60")},
					{UserID: "bob", Value: dec("30")},
				},
			},
			wantErr: domain.ErrPercentageMismatch,
		},
		{
			name: "percentage split rejects negative percent",
			input: Input{
				Total:    dec("200"),
				PayerID:  "payer",
				Strategy: domain.SplitTypePercentage,
				Participants: []Participant{
					{UserID: "alice", Value: dec("-5")},
					{UserID: "bob", Value: dec("105")},
				},
			},
			wantErr: domain.ErrInvalidSplitValue,
		},
		{
			name: "payer percentage produces no row",
			input: Input{
				Total:    dec("200"),
				PayerID:  "payer",
				Strategy: domain.SplitTypePercentage,
				Participants: []Participant{
					{UserID: "payer", Value: dec("50")},
					{UserID: "alice", Value: dec("50")},
				},
			},
			wantShares: map[string]string{"alice": "100"},
		},
		{
			name: "no debtors fails",
			input: Input{
				Total:    dec("100"),
				PayerID:  "payer",
				Strategy: domain.SplitTypeEqual,
				Participants: []Participant{
					{UserID: "payer"},
				},
			},
			wantErr: domain.ErrNoParticipants,
		},
		{
			name: "empty participants fails",
			input: Input{
				Total:    dec("100"),
				PayerID:  "payer",
				Strategy: domain.SplitTypeEqual,
			},
			wantErr: domain.ErrNoParticipants,
		},
		{
			name: "non-positive total fails",
			input: Input{
				Total:    dec("0"),
				PayerID:  "payer",
				Strategy: domain.SplitTypeEqual,
				Participants: []Participant{
					{UserID: "alice"},
				},
			},
			wantErr: domain.ErrInvalidSplitValue,
		},
		{
			name: "unknown strategy fails validation",
			input: Input{
				Total:    dec("100"),
				PayerID:  "payer",
				Strategy: domain.SplitTypeNone,
				Participants: []Participant{
					{UserID: "alice"},
				},
			},
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := Calculate(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Calculate() error = %v, want %v", err, tt.wantErr)
				}
				if len(shares) != 0 {
					t.Fatalf("Calculate() produced %d shares on failure", len(shares))
				}
				return
			}
			if err != nil {
				t.Fatalf("Calculate() error = %v", err)
			}

			if len(shares) != len(tt.wantShares) {
				t.Fatalf("Calculate() produced %d shares, want %d", len(shares), len(tt.wantShares))
			}
			for _, sh := range shares {
				if sh.UserID == tt.input.PayerID {
					t.Fatalf("payer %s received a share", sh.UserID)
				}
				want, ok := tt.wantShares[sh.UserID]
				if !ok {
					t.Fatalf("unexpected share for %s", sh.UserID)
				}
				if !sh.AmountOwed.Equal(dec(want)) {
					t.Errorf("%s owes %s, want %s", sh.UserID, sh.AmountOwed, want)
				}
			}

			if tt.wantOrder != nil {
				for i, id := range tt.wantOrder {
					if shares[i].UserID != id {
						t.Errorf("share[%d] = %s, want %s", i, shares[i].UserID, id)
					}
				}
			}
		})
	}
}

func TestCalculateRoundingDriftAccepted(t *testing.T) {
	shares, err := Calculate(Input{
		Total:    dec("100"),
		PayerID:  "payer",
		Strategy: domain.SplitTypePercentage,
		Participants: []Participant{
			{UserID: "a", Value: dec("33.33")},
			{UserID: "b", Value: dec("33.33")},
			{UserID: "c", Value: dec("33.34")},
		},
	})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	sum := decimal.Zero
	for _, sh := range shares {
		sum = sum.Add(sh.AmountOwed)
	}
	// Per-row rounding leaves the shares summing to 100.00 here, but the
	// calculator never adjusts a row to force it; pin the independence.
	if !sum.Equal(dec("100")) {
		t.Fatalf("shares sum to %s", sum)
	}
	if !shares[2].AmountOwed.Equal(dec("33.34")) {
		t.Fatalf("last share = %s, want 33.34", shares[2].AmountOwed)
	}
}
