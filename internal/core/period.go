package core

import "fmt"

// Period is a (month, year) budgeting window.
type Period struct {
	Month int // 1-12
	Year  int
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return &ValidationError{Field: "month", Reason: "must be between 1 and 12"}
	}
	if p.Year < minBudgetYear {
		return &ValidationError{Field: "year", Reason: "must be 2020 or later"}
	}
	return nil
}

// Previous returns the preceding period. Exact calendar arithmetic on the
// month number; day-add across months of different lengths is unsafe and
// deliberately avoided.
func (p Period) Previous() Period {
	if p.Month == 1 {
		return Period{Month: 12, Year: p.Year - 1}
	}
	return Period{Month: p.Month - 1, Year: p.Year}
}

// Next returns the following period.
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Month: 1, Year: p.Year + 1}
	}
	return Period{Month: p.Month + 1, Year: p.Year}
}

// Contains reports whether a date falls inside the period.
func (p Period) Contains(d Date) bool {
	return d.Year() == p.Year && d.Month() == p.Month
}

// AddMonths returns the period n months later (or earlier for negative n).
// Used when laying out installment series on a monthly cadence.
func (p Period) AddMonths(n int) Period {
	months := (p.Year*12 + p.Month - 1) + n
	return Period{Month: months%12 + 1, Year: months / 12}
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}
