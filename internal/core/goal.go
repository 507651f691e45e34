package core

import "time"

const (
	// An active goal is at risk when its deadline is within this many days
	// and progress is still below riskProgressThreshold, or when the
	// deadline has already passed.
	riskWindowDays        = 30
	riskProgressThreshold = 80

	// An active goal is near completion once progress crosses this threshold.
	nearCompletionThreshold = 90
)

type (
	// GoalInput carries the caller-provided fields for creating or editing
	// a goal. The API layer pre-validates wire-level bounds; the engine
	// re-checks the domain constraints.
	GoalInput struct {
		Name          string
		TargetAmount  Money
		CurrentAmount Money
		TargetDate    Date
		Category      GoalCategory
		Notes         string
	}

	// Classification is the derived risk view of a single goal. The two
	// flags are computed independently: an overdue goal sitting at 95%
	// progress is both at risk and near completion.
	Classification struct {
		AtRisk         bool
		NearCompletion bool
	}
)

func (in GoalInput) validate() error {
	if err := validateGoalName(in.Name); err != nil {
		return err
	}
	if !in.TargetAmount.IsPositive() {
		return &ValidationError{Field: "target_amount", Reason: "must be greater than zero"}
	}
	if in.CurrentAmount.Cents < 0 {
		return &ValidationError{Field: "current_amount", Reason: "cannot be negative"}
	}
	if in.CurrentAmount.Cents > in.TargetAmount.Cents {
		return &ValidationError{Field: "current_amount", Reason: "cannot exceed target amount"}
	}
	if err := in.TargetDate.Validate(); err != nil {
		return err
	}
	return in.Category.Validate()
}

// NewGoal validates the input and returns a fresh active goal. New goals
// require a target date strictly in the future relative to now; edits go
// through EditGoal, which waives that check.
func NewGoal(in GoalInput, now time.Time) (Goal, error) {
	if err := in.validate(); err != nil {
		return Goal{}, err
	}
	if !in.TargetDate.After(now) {
		return Goal{}, &ValidationError{Field: "target_date", Reason: "must be in the future"}
	}
	return Goal{
		Name:          in.Name,
		TargetAmount:  in.TargetAmount,
		CurrentAmount: in.CurrentAmount,
		TargetDate:    in.TargetDate,
		Status:        GoalActive,
		Category:      in.Category,
		Notes:         in.Notes,
	}, nil
}

// EditGoal applies in to an existing goal. Unlike creation, a target date in
// the past is accepted here: users correct historical goals and the observed
// product behavior keeps that asymmetry.
func EditGoal(g Goal, in GoalInput) (Goal, error) {
	if err := in.validate(); err != nil {
		return Goal{}, err
	}
	g.Name = in.Name
	g.TargetAmount = in.TargetAmount
	g.CurrentAmount = in.CurrentAmount
	g.TargetDate = in.TargetDate
	g.Category = in.Category
	g.Notes = in.Notes
	return g, nil
}

// AddContribution applies a positive contribution to an active goal and
// returns the updated goal. If the new amount reaches the target the goal is
// completed in the same step; callers never observe the intermediate state.
// The caller must hold an exclusive, fresh snapshot of the goal (see the
// service layer for per-goal serialization).
func AddContribution(g Goal, amount Money) (Goal, error) {
	if !amount.IsPositive() {
		return Goal{}, &ValidationError{Field: "amount", Reason: "contribution must be greater than zero"}
	}
	if g.Status != GoalActive {
		return Goal{}, &InvalidStateError{Entity: "goal", State: string(g.Status), Op: "add contribution"}
	}
	g.CurrentAmount = g.CurrentAmount.Add(amount)
	if g.CurrentAmount.GreaterOrEqual(g.TargetAmount) {
		g.Status = GoalCompleted
	}
	return g, nil
}

// MarkCompleted completes an active goal regardless of the amount reached.
func MarkCompleted(g Goal) (Goal, error) {
	if g.Status != GoalActive {
		return Goal{}, &InvalidStateError{Entity: "goal", State: string(g.Status), Op: "complete"}
	}
	g.Status = GoalCompleted
	return g, nil
}

// CancelGoal cancels an active goal. Cancelled is terminal for this engine.
func CancelGoal(g Goal) (Goal, error) {
	if g.Status != GoalActive {
		return Goal{}, &InvalidStateError{Entity: "goal", State: string(g.Status), Op: "cancel"}
	}
	g.Status = GoalCancelled
	return g, nil
}

// Progress returns the completion percentage in [0, 100]. Total function: a
// zero target yields 0.
func Progress(g Goal) int {
	return PercentageOf(g.CurrentAmount, g.TargetAmount)
}

// DaysRemaining returns the signed number of whole days from today until the
// target date, rounding partial days up. Negative means overdue; turning the
// sign into a "days late" label is a display concern.
func DaysRemaining(target Date, today time.Time) int {
	delta := target.Sub(today)
	days := int(delta.Hours() / 24)
	if delta > 0 && delta%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// Classify computes the risk view of a goal as of today. Only active goals
// classify; completed and cancelled goals are always all-false.
func Classify(g Goal, today time.Time) Classification {
	if g.Status != GoalActive {
		return Classification{}
	}

	progress := Progress(g)
	days := DaysRemaining(g.TargetDate, today)

	overdue := days < 0
	imminent := days >= 0 && days <= riskWindowDays && progress < riskProgressThreshold

	return Classification{
		AtRisk:         overdue || imminent,
		NearCompletion: progress >= nearCompletionThreshold,
	}
}
