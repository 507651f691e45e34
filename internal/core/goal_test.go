package core

import (
	"encoding/json"
	"testing"
	"time"
)

var testNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func activeGoal(current, target int64) Goal {
	return Goal{
		ID:            1,
		Name:          "Fondo vacanze",
		TargetAmount:  Money{Cents: target},
		CurrentAmount: Money{Cents: current},
		TargetDate:    NewDate(2027, 6, 1),
		Status:        GoalActive,
	}
}

func TestNewGoal(t *testing.T) {
	in := GoalInput{
		Name:         "Fondo emergenze",
		TargetAmount: Money{Cents: 500000},
		TargetDate:   NewDate(2027, 1, 1),
		Category:     GoalCategoryEmergency,
	}
	g, err := NewGoal(in, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Status != GoalActive {
		t.Fatalf("new goal status = %s, want active", g.Status)
	}
}

func TestNewGoalValidation(t *testing.T) {
	future := NewDate(2027, 1, 1)
	cases := []struct {
		name string
		in   GoalInput
	}{
		{"short name", GoalInput{Name: "x", TargetAmount: Money{Cents: 100}, TargetDate: future}},
		{"zero target", GoalInput{Name: "Valid name", TargetAmount: Money{}, TargetDate: future}},
		{"negative current", GoalInput{Name: "Valid name", TargetAmount: Money{Cents: 100}, CurrentAmount: Money{Cents: -1}, TargetDate: future}},
		{"current over target", GoalInput{Name: "Valid name", TargetAmount: Money{Cents: 100}, CurrentAmount: Money{Cents: 200}, TargetDate: future}},
		{"past target date", GoalInput{Name: "Valid name", TargetAmount: Money{Cents: 100}, TargetDate: NewDate(2020, 1, 1)}},
		{"unknown category", GoalInput{Name: "Valid name", TargetAmount: Money{Cents: 100}, TargetDate: future, Category: "yacht"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewGoal(tc.in, testNow); !IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestEditGoalAllowsPastTargetDate(t *testing.T) {
	g := activeGoal(0, 10000)
	in := GoalInput{
		Name:         "Fondo vacanze",
		TargetAmount: Money{Cents: 10000},
		TargetDate:   NewDate(2024, 1, 1), // past is fine on edit
	}
	edited, err := EditGoal(g, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if edited.TargetDate != in.TargetDate {
		t.Fatalf("target date not applied")
	}
	if edited.Status != GoalActive {
		t.Fatalf("edit must not touch status")
	}
}

func TestAddContribution(t *testing.T) {
	cases := []struct {
		name        string
		current     int64
		amount      int64
		wantCurrent int64
		wantStatus  GoalStatus
	}{
		{"partial", 1000, 500, 1500, GoalActive},
		{"reaches target", 9000, 1000, 10000, GoalCompleted},
		{"overshoots target", 9000, 5000, 14000, GoalCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := AddContribution(activeGoal(tc.current, 10000), Money{Cents: tc.amount})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.CurrentAmount.Cents != tc.wantCurrent {
				t.Fatalf("current = %d, want %d", got.CurrentAmount.Cents, tc.wantCurrent)
			}
			if got.Status != tc.wantStatus {
				t.Fatalf("status = %s, want %s", got.Status, tc.wantStatus)
			}
		})
	}
}

func TestAddContributionRejectsNonPositive(t *testing.T) {
	for _, cents := range []int64{0, -100} {
		if _, err := AddContribution(activeGoal(0, 10000), Money{Cents: cents}); !IsValidation(err) {
			t.Fatalf("amount %d: expected validation error, got %v", cents, err)
		}
	}
}

func TestAddContributionRejectsTerminalStates(t *testing.T) {
	for _, status := range []GoalStatus{GoalCompleted, GoalCancelled} {
		g := activeGoal(5000, 10000)
		g.Status = status
		if _, err := AddContribution(g, Money{Cents: 100}); !IsInvalidState(err) {
			t.Fatalf("status %s: expected invalid state error, got %v", status, err)
		}
	}
}

func TestMarkCompletedAndCancel(t *testing.T) {
	g, err := MarkCompleted(activeGoal(100, 10000))
	if err != nil || g.Status != GoalCompleted {
		t.Fatalf("MarkCompleted = %v, %v", g.Status, err)
	}
	if _, err := MarkCompleted(g); !IsInvalidState(err) {
		t.Fatalf("completing a completed goal must fail, got %v", err)
	}

	g, err = CancelGoal(activeGoal(100, 10000))
	if err != nil || g.Status != GoalCancelled {
		t.Fatalf("CancelGoal = %v, %v", g.Status, err)
	}
	if _, err := CancelGoal(g); !IsInvalidState(err) {
		t.Fatalf("cancelling a cancelled goal must fail, got %v", err)
	}
}

func TestProgressBoundsAndMonotonicity(t *testing.T) {
	prev := -1
	for current := int64(0); current <= 12000; current += 500 {
		p := Progress(activeGoal(current, 10000))
		if p < 0 || p > 100 {
			t.Fatalf("progress %d out of [0, 100] for current=%d", p, current)
		}
		if p < prev {
			t.Fatalf("progress decreased: %d -> %d at current=%d", prev, p, current)
		}
		prev = p
	}
	zeroTarget := Goal{Status: GoalActive, CurrentAmount: Money{Cents: 100}}
	if p := Progress(zeroTarget); p != 0 {
		t.Fatalf("zero target progress = %d, want 0", p)
	}
}

func TestDaysRemaining(t *testing.T) {
	today := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		target Date
		want   int
	}{
		{NewDate(2026, 8, 28), 0},
		{NewDate(2026, 8, 29), 1},
		{NewDate(2026, 9, 27), 30},
		{NewDate(2026, 8, 18), -10},
	}
	for _, tc := range cases {
		if got := DaysRemaining(tc.target, today); got != tc.want {
			t.Fatalf("DaysRemaining(%s) = %d, want %d", tc.target.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestClassifyOverdueIsAtRiskRegardlessOfProgress(t *testing.T) {
	for _, current := range []int64{0, 5000, 9500} {
		g := activeGoal(current, 10000)
		g.TargetDate = NewDate(2026, 8, 18) // 10 days past
		c := Classify(g, testNow)
		if !c.AtRisk {
			t.Fatalf("overdue goal with current=%d must be at risk", current)
		}
	}
}

func TestClassifyOverdueHighProgressIsAlsoNearCompletion(t *testing.T) {
	g := activeGoal(9500, 10000)
	g.TargetDate = NewDate(2026, 8, 1)
	c := Classify(g, testNow)
	if !c.AtRisk || !c.NearCompletion {
		t.Fatalf("overdue 95%% goal should be both at risk and near completion, got %+v", c)
	}
}

func TestClassifyImminentDeadline(t *testing.T) {
	cases := []struct {
		name    string
		current int64
		target  Date
		want    Classification
	}{
		{"close deadline low progress", 3000, NewDate(2026, 9, 10), Classification{AtRisk: true}},
		{"close deadline high progress", 8500, NewDate(2026, 9, 10), Classification{}},
		{"far deadline low progress", 1000, NewDate(2027, 6, 1), Classification{}},
		{"near completion", 9200, NewDate(2027, 6, 1), Classification{NearCompletion: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := activeGoal(tc.current, 10000)
			g.TargetDate = tc.target
			if got := Classify(g, testNow); got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestClassifyTerminalStates(t *testing.T) {
	for _, status := range []GoalStatus{GoalCompleted, GoalCancelled} {
		g := activeGoal(9900, 10000)
		g.Status = status
		g.TargetDate = NewDate(2026, 1, 1)
		if c := Classify(g, testNow); c.AtRisk || c.NearCompletion {
			t.Fatalf("%s goal must not classify, got %+v", status, c)
		}
	}
}

func TestGoalDerivedFiguresSurviveSerialization(t *testing.T) {
	cases := []struct {
		name string
		goal Goal
	}{
		{"overdue low progress", Goal{
			ID: 1, Name: "Fondo auto", TargetAmount: Money{Cents: 100000},
			CurrentAmount: Money{Cents: 25000}, TargetDate: NewDate(2026, 1, 1),
			Status: GoalActive, Category: GoalCategoryVehicle,
		}},
		{"imminent near completion", Goal{
			ID: 2, Name: "Fondo viaggio", TargetAmount: Money{Cents: 100000},
			CurrentAmount: Money{Cents: 93000}, TargetDate: NewDate(2026, 9, 10),
			Status: GoalActive, Category: GoalCategoryTravel, Notes: "settembre",
		}},
		{"comfortable", Goal{
			ID: 3, Name: "Fondo casa", TargetAmount: Money{Cents: 500000},
			CurrentAmount: Money{Cents: 100000}, TargetDate: NewDate(2028, 1, 1),
			Status: GoalActive,
		}},
		{"completed", Goal{
			ID: 4, Name: "Fondo studio", TargetAmount: Money{Cents: 50000},
			CurrentAmount: Money{Cents: 50000}, TargetDate: NewDate(2026, 10, 1),
			Status: GoalCompleted, Category: GoalCategoryEducation,
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wantProgress := Progress(tc.goal)
			wantClass := Classify(tc.goal, testNow)

			body, err := json.Marshal(tc.goal)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var decoded Goal
			if err := json.Unmarshal(body, &decoded); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}

			if got := Progress(decoded); got != wantProgress {
				t.Errorf("progress after round trip = %d, want %d", got, wantProgress)
			}
			if got := Classify(decoded, testNow); got != wantClass {
				t.Errorf("classification after round trip = %+v, want %+v", got, wantClass)
			}
			if decoded.Status != tc.goal.Status || decoded.CurrentAmount != tc.goal.CurrentAmount {
				t.Errorf("round trip changed fields: got %+v, want %+v", decoded, tc.goal)
			}
		})
	}
}
