package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/GillJordan/Home-expense/internal/core"
)

// RowAppendedMessage announces a row written to a ledger partition.
type RowAppendedMessage struct {
	ID        string      `json:"id"`
	Partition string      `json:"partition"`
	Record    core.Record `json:"record"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewRowAppendedMessage(partition string, rec core.Record) *RowAppendedMessage {
	return &RowAppendedMessage{
		ID:        uuid.NewString(),
		Partition: partition,
		Record:    rec,
		Timestamp: time.Now().UTC(),
	}
}

func (m *RowAppendedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RowAppendedMessageFromJSON(data []byte) (*RowAppendedMessage, error) {
	var msg RowAppendedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
