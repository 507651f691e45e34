package core

import "sort"

const (
	// DeleteSingle removes only the requested transaction. The surviving
	// group members keep their original index (the series keeps a gap) and
	// have their total decremented by one.
	DeleteSingle DeletionMode = "single"
	// DeleteFuture removes the requested transaction and every later
	// installment. The retained prefix is left untouched, original total
	// included, so it still reads as "3 of 6" after a truncation.
	DeleteFuture DeletionMode = "future"
	// DeleteAll removes the whole group, past installments included.
	DeleteAll DeletionMode = "all"
)

type (
	// DeletionMode selects the blast radius of a delete request against a
	// recurring transaction.
	DeletionMode string

	// InstallmentAdjustment is a follow-up write the caller must apply to a
	// surviving group member after a single-mode deletion.
	InstallmentAdjustment struct {
		TransactionID int64
		NewTotal      int
	}
)

// ParseDeletionMode validates a wire-level mode string. An empty string
// defaults to single.
func ParseDeletionMode(s string) (DeletionMode, error) {
	switch DeletionMode(s) {
	case "":
		return DeleteSingle, nil
	case DeleteSingle, DeleteFuture, DeleteAll:
		return DeletionMode(s), nil
	default:
		return "", ErrInvalidMode
	}
}

// ResolveDeletionSet computes the ordered set of transaction ids to remove
// when tx is deleted with the given mode, plus the adjustments to apply to
// survivors. siblings is the full installment group tx belongs to; tx itself
// may or may not be included in it. For a transaction outside any group every
// mode degenerates to deleting just that transaction.
//
// The function is pure: the caller looks the records up beforehand and
// performs the actual deletes. Surviving installments are never re-indexed;
// renumbering would corrupt historical "n of m" references, so a single-mode
// delete leaves a documented gap in the series instead.
func ResolveDeletionSet(tx Transaction, siblings []Transaction, mode DeletionMode) ([]int64, []InstallmentAdjustment, error) {
	switch mode {
	case DeleteSingle, DeleteFuture, DeleteAll:
	default:
		return nil, nil, ErrInvalidMode
	}

	if !tx.InGroup() {
		return []int64{tx.ID}, nil, nil
	}

	group := groupMembers(tx, siblings)

	switch mode {
	case DeleteSingle:
		adjustments := make([]InstallmentAdjustment, 0, len(group)-1)
		for _, member := range group {
			if member.ID == tx.ID {
				continue
			}
			adjustments = append(adjustments, InstallmentAdjustment{
				TransactionID: member.ID,
				NewTotal:      member.Total - 1,
			})
		}
		return []int64{tx.ID}, adjustments, nil

	case DeleteFuture:
		ids := make([]int64, 0, len(group))
		for _, member := range group {
			if member.Index >= tx.Index {
				ids = append(ids, member.ID)
			}
		}
		return ids, nil, nil

	default: // DeleteAll
		ids := make([]int64, 0, len(group))
		for _, member := range group {
			ids = append(ids, member.ID)
		}
		return ids, nil, nil
	}
}

// groupMembers merges tx into its siblings, drops records from other groups
// and duplicates, and orders the result by installment index.
func groupMembers(tx Transaction, siblings []Transaction) []Transaction {
	seen := make(map[int64]bool, len(siblings)+1)
	group := make([]Transaction, 0, len(siblings)+1)
	for _, s := range append([]Transaction{tx}, siblings...) {
		if s.GroupID != tx.GroupID || seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		group = append(group, s)
	}
	sort.Slice(group, func(i, j int) bool {
		if group[i].Index != group[j].Index {
			return group[i].Index < group[j].Index
		}
		return group[i].ID < group[j].ID
	})
	return group
}
