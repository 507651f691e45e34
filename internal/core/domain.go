package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Income  TransactionKind = "income"
	Expense TransactionKind = "expense"
)

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalCancelled GoalStatus = "cancelled"
)

const (
	GoalCategorySavings   GoalCategory = "savings"
	GoalCategoryEmergency GoalCategory = "emergency"
	GoalCategoryTravel    GoalCategory = "travel"
	GoalCategoryHome      GoalCategory = "home"
	GoalCategoryVehicle   GoalCategory = "vehicle"
	GoalCategoryEducation GoalCategory = "education"
	GoalCategoryOther     GoalCategory = "other"
)

const (
	goalNameMinLen = 2
	goalNameMaxLen = 100
	minBudgetYear  = 2020
)

type (
	TransactionKind string

	GoalStatus string

	GoalCategory string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is one bookkeeping entry. Recurring (installment) entries
	// carry the group triple: a shared GroupID, a 1-based Index and the
	// series length Total. Amounts are immutable after creation; the only
	// mutation this engine performs on transactions is deletion.
	Transaction struct {
		ID         int64
		Amount     Money
		OccurredOn Date
		Kind       TransactionKind
		CategoryID int64 // 0 means uncategorized

		GroupID uuid.UUID // zero value means not part of an installment group
		Index   int
		Total   int
	}

	// Goal is a savings goal. CurrentAmount moves through contributions or
	// direct edits; Status transitions are owned by the lifecycle functions
	// in goal.go.
	Goal struct {
		ID            int64
		Name          string
		TargetAmount  Money
		CurrentAmount Money
		TargetDate    Date
		Status        GoalStatus
		Category      GoalCategory // optional
		Notes         string       // optional
	}

	// Budget is a monthly allotment. A zero CategoryID means a general
	// budget covering all expense categories. The (CategoryID, Month, Year)
	// triple is unique at the domain level.
	Budget struct {
		ID         int64
		Amount     Money
		CategoryID int64 // 0 means general
		Month      int
		Year       int
	}
)

func (d Date) Validate() error {
	if d.IsZero() {
		return &ValidationError{Field: "date", Reason: "date cannot be zero"}
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty returns true if the date is zero (for optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (k TransactionKind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return &ValidationError{Field: "kind", Reason: "must be income or expense"}
	}
}

func (c GoalCategory) Validate() error {
	switch c {
	case "", GoalCategorySavings, GoalCategoryEmergency, GoalCategoryTravel,
		GoalCategoryHome, GoalCategoryVehicle, GoalCategoryEducation, GoalCategoryOther:
		return nil
	default:
		return &ValidationError{Field: "category", Reason: "unknown goal category"}
	}
}

// InGroup reports whether the transaction belongs to an installment group.
func (t Transaction) InGroup() bool {
	return t.GroupID != uuid.Nil
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.OccurredOn.Validate(); err != nil {
		return err
	}
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if t.InGroup() {
		if t.Total < 1 {
			return &ValidationError{Field: "installment_total", Reason: "must be at least 1"}
		}
		if t.Index < 1 || t.Index > t.Total {
			return &ValidationError{Field: "installment_index", Reason: "must be between 1 and installment_total"}
		}
	}
	return nil
}

func (b Budget) Validate() error {
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if b.Month < 1 || b.Month > 12 {
		return &ValidationError{Field: "month", Reason: "must be between 1 and 12"}
	}
	if b.Year < minBudgetYear {
		return &ValidationError{Field: "year", Reason: "must be 2020 or later"}
	}
	return nil
}

func validateGoalName(name string) error {
	n := len(strings.TrimSpace(name))
	if n < goalNameMinLen || n > goalNameMaxLen {
		return &ValidationError{Field: "name", Reason: "must be between 2 and 100 characters"}
	}
	return nil
}
