package ledger

import (
	"time"

	"expensemate/internal/domain"
)

type TimeRange string

const (
	RangeAll       TimeRange = "all"
	RangeThisWeek  TimeRange = "this-week"
	RangeThisMonth TimeRange = "this-month"
	RangeLastMonth TimeRange = "last-month"
)

type StatusFilter string

const (
	StatusAll     StatusFilter = "all"
	StatusPending StatusFilter = "pending"
	StatusCleared StatusFilter = "cleared"
)

type FilterOptions struct {
	Range  TimeRange
	Status StatusFilter
}

func (o FilterOptions) Validate() error {
	fields := map[string]string{}
	switch o.Range {
	case "", RangeAll, RangeThisWeek, RangeThisMonth, RangeLastMonth:
	default:
		fields["range"] = "must be all, this-week, this-month or last-month"
	}
	switch o.Status {
	case "", StatusAll, StatusPending, StatusCleared:
	default:
		fields["status"] = "must be all, pending or cleared"
	}
	if len(fields) > 0 {
		return domain.NewValidationError(fields)
	}
	return nil
}

// Filter narrows the display list. Week boundaries start on Sunday to match
// the range pickers on the dashboard.
func Filter(expenses []domain.Expense, opts FilterOptions, now time.Time) []domain.Expense {
	from, to := bounds(opts.Range, now)

	out := make([]domain.Expense, 0, len(expenses))
	for _, e := range expenses {
		if !from.IsZero() && e.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && e.CreatedAt.After(to) {
			continue
		}
		switch opts.Status {
		case StatusPending:
			if e.Status != domain.ExpenseStatusPending {
				continue
			}
		case StatusCleared:
			if e.Status != domain.ExpenseStatusCleared {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

func bounds(r TimeRange, now time.Time) (from, to time.Time) {
	switch r {
	case RangeThisWeek:
		start := now.AddDate(0, 0, -int(now.Weekday()))
		return midnight(start), time.Time{}
	case RangeThisMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), time.Time{}
	case RangeLastMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return first.AddDate(0, -1, 0), first.Add(-time.Nanosecond)
	default:
		return time.Time{}, time.Time{}
	}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
