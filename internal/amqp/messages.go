package amqp

import (
	"encoding/json"
	"time"
)

// Operations carried by change messages.
const (
	OpCreated     = "created"
	OpUpdated     = "updated"
	OpContributed = "contributed"
	OpCompleted   = "completed"
	OpCancelled   = "cancelled"
	OpDeleted     = "deleted"
)

// GoalChangedMessage notifies the classification worker that a goal mutated.
// It carries only the id and operation; the worker re-reads the goal set from
// the database, so a stale or duplicated message is harmless.
type GoalChangedMessage struct {
	GoalID    int64     `json:"goal_id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewGoalChangedMessage(goalID int64, op string) *GoalChangedMessage {
	return &GoalChangedMessage{GoalID: goalID, Op: op, Timestamp: time.Now()}
}

func (m *GoalChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func GoalChangedMessageFromJSON(data []byte) (*GoalChangedMessage, error) {
	var msg GoalChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// TransactionChangedMessage notifies the export worker that transactions were
// created or deleted. Cascading deletes produce one message with the whole id
// set so the exporter mirrors the cascade as a unit.
type TransactionChangedMessage struct {
	TransactionIDs []int64   `json:"transaction_ids"`
	Op             string    `json:"op"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewTransactionChangedMessage(ids []int64, op string) *TransactionChangedMessage {
	return &TransactionChangedMessage{TransactionIDs: ids, Op: op, Timestamp: time.Now()}
}

func (m *TransactionChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionChangedMessageFromJSON(data []byte) (*TransactionChangedMessage, error) {
	var msg TransactionChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
