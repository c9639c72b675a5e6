package ports

import "context"

const (
	FeesCollected      Topic = "Fees Collected"
	ParameterUpdated   Topic = "Parameter Updated"
	TransactionAborted Topic = "Transaction Aborted"
	RelayPaused        Topic = "Relay Paused"
	RelayUnpaused      Topic = "Relay Unpaused"
	ReleaseFailed      Topic = "Release Failed"
)

type Topic string

type Alerts interface {
	Publish(ctx context.Context, topic Topic, message interface{}) error
}

type FeesCollectedAlert struct {
	Asset     string
	Symbol    string
	Amount    uint64
	Recipient string
	Caller    string
}

type ParameterUpdatedAlert struct {
	Name     string
	OldValue uint64
	NewValue uint64
	Caller   string
}

type TransactionAbortedAlert struct {
	TxId      uint64
	Direction string
	Asset     string
	Amount    uint64
	Refunded  bool
	Reason    string
	Caller    string
}

type PauseAlert struct {
	Caller string
}

// ReleaseFailedAlert reports a completed inbound transaction whose funds
// could not be released to the recipient.
type ReleaseFailedAlert struct {
	TxId      uint64
	Asset     string
	Recipient string
	Amount    uint64
}
