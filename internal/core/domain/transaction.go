package domain

import (
	"strconv"
)

type Direction uint8

const (
	DirectionUnspecified Direction = iota
	DirectionOutbound
	DirectionInbound
)

func (d Direction) String() string {
	switch d {
	case DirectionOutbound:
		return "outbound"
	case DirectionInbound:
		return "inbound"
	default:
		return "unspecified"
	}
}

func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "outbound":
		return DirectionOutbound, true
	case "inbound":
		return DirectionInbound, true
	default:
		return DirectionUnspecified, false
	}
}

type TxStatus uint8

const (
	TxStatusUndefined TxStatus = iota
	TxStatusPending
	TxStatusCompleted
	TxStatusExpired
	TxStatusFailed
)

func (s TxStatus) String() string {
	switch s {
	case TxStatusPending:
		return "pending"
	case TxStatusCompleted:
		return "completed"
	case TxStatusExpired:
		return "expired"
	case TxStatusFailed:
		return "failed"
	default:
		return "undefined"
	}
}

func ParseTxStatus(s string) (TxStatus, bool) {
	for _, st := range []TxStatus{
		TxStatusPending, TxStatusCompleted, TxStatusExpired, TxStatusFailed,
	} {
		if st.String() == s {
			return st, true
		}
	}
	return TxStatusUndefined, false
}

type Attestation struct {
	Relayer   string
	Timestamp int64
}

// Transaction is a single cross-chain transfer. Outbound transfers are
// initiated locally and released elsewhere; inbound transfers are reported by
// relayers and released locally.
// All timestamps are unix seconds.
type Transaction struct {
	Id            uint64
	Direction     Direction
	Sender        string
	Recipient     string
	Asset         string
	Amount        uint64
	Fee           uint64
	SourceChainId uint64
	SourceTxId    string
	DestChainId   uint64
	Status        TxStatus
	CreatedAt     int64
	ExpiresAt     int64
	EndedAt       int64
	FailReason    string
	Attestations  []Attestation
	Version       uint

	changes []Event
}

func NewOutboundTransaction(
	id uint64, sender, recipient, asset string, amount, fee, destChainId uint64,
	createdAt, timeout int64,
) *Transaction {
	tx := &Transaction{}
	tx.raise(TransactionCreated{
		TransactionEvent: TransactionEvent{
			Id:   formatTxId(id),
			Type: EventTypeTransactionCreated,
		},
		Direction:   DirectionOutbound,
		Sender:      sender,
		Recipient:   recipient,
		Asset:       asset,
		Amount:      amount,
		Fee:         fee,
		DestChainId: destChainId,
		Timestamp:   createdAt,
		ExpiresAt:   createdAt + timeout,
	})
	return tx
}

func NewInboundTransaction(
	id uint64, sourceChainId uint64, sourceTxId, sender, recipient, asset string,
	amount uint64, createdAt, timeout int64,
) *Transaction {
	tx := &Transaction{}
	tx.raise(TransactionCreated{
		TransactionEvent: TransactionEvent{
			Id:   formatTxId(id),
			Type: EventTypeTransactionCreated,
		},
		Direction:     DirectionInbound,
		Sender:        sender,
		Recipient:     recipient,
		Asset:         asset,
		Amount:        amount,
		SourceChainId: sourceChainId,
		SourceTxId:    sourceTxId,
		Timestamp:     createdAt,
		ExpiresAt:     createdAt + timeout,
	})
	return tx
}

func NewTransactionFromEvents(events []Event) *Transaction {
	tx := &Transaction{}
	for _, event := range events {
		tx.on(event, true)
	}
	return tx
}

func (t *Transaction) Events() []Event {
	return t.changes
}

// Attest records the attestation of the given relayer and returns the updated
// number of confirmations. Attestations are accepted up to and including the
// expiry instant.
func (t *Transaction) Attest(relayer string, now int64) (int, error) {
	if !t.IsPending() {
		return 0, ErrTxNotPending
	}
	if now > t.ExpiresAt {
		return 0, ErrTxExpired
	}
	if t.HasAttested(relayer) {
		return 0, ErrAlreadyAttested
	}

	t.raise(AttestationRecorded{
		TransactionEvent: TransactionEvent{
			Id:   formatTxId(t.Id),
			Type: EventTypeAttestationRecorded,
		},
		Relayer:   relayer,
		Timestamp: now,
	})
	return t.ConfirmCount(), nil
}

func (t *Transaction) Complete(now int64) error {
	if !t.IsPending() {
		return ErrTxNotPending
	}

	t.raise(TransactionCompleted{
		TransactionEvent: TransactionEvent{
			Id:   formatTxId(t.Id),
			Type: EventTypeTransactionCompleted,
		},
		Timestamp: now,
	})
	return nil
}

// Expire is allowed only strictly after the expiry instant.
func (t *Transaction) Expire(now int64) error {
	if !t.IsPending() {
		return ErrTxNotPending
	}
	if now <= t.ExpiresAt {
		return ErrTxNotExpiredYet
	}

	t.raise(TransactionExpired{
		TransactionEvent: TransactionEvent{
			Id:   formatTxId(t.Id),
			Type: EventTypeTransactionExpired,
		},
		Timestamp: now,
	})
	return nil
}

func (t *Transaction) Fail(reason string, now int64) error {
	if !t.IsPending() {
		return ErrTxNotPending
	}

	t.raise(TransactionFailed{
		TransactionEvent: TransactionEvent{
			Id:   formatTxId(t.Id),
			Type: EventTypeTransactionFailed,
		},
		Reason:    reason,
		Timestamp: now,
	})
	return nil
}

func (t *Transaction) IsPending() bool {
	return t.Status == TxStatusPending
}

func (t *Transaction) IsTerminal() bool {
	return t.Status == TxStatusCompleted ||
		t.Status == TxStatusExpired ||
		t.Status == TxStatusFailed
}

func (t *Transaction) IsOutbound() bool {
	return t.Direction == DirectionOutbound
}

func (t *Transaction) IsInbound() bool {
	return t.Direction == DirectionInbound
}

func (t *Transaction) ConfirmCount() int {
	return len(t.Attestations)
}

func (t *Transaction) HasAttested(relayer string) bool {
	for _, a := range t.Attestations {
		if a.Relayer == relayer {
			return true
		}
	}
	return false
}

// MatchesReport tells whether an inbound report carries the same transfer
// details as the ones recorded with the first report.
func (t *Transaction) MatchesReport(sender, recipient, asset string, amount uint64) bool {
	return t.Sender == sender &&
		t.Recipient == recipient &&
		t.Asset == asset &&
		t.Amount == amount
}

func (t *Transaction) StringId() string {
	return formatTxId(t.Id)
}

func (t *Transaction) on(event Event, replayed bool) {
	switch e := event.(type) {
	case TransactionCreated:
		id, _ := strconv.ParseUint(e.Id, 10, 64)
		t.Id = id
		t.Direction = e.Direction
		t.Sender = e.Sender
		t.Recipient = e.Recipient
		t.Asset = e.Asset
		t.Amount = e.Amount
		t.Fee = e.Fee
		t.SourceChainId = e.SourceChainId
		t.SourceTxId = e.SourceTxId
		t.DestChainId = e.DestChainId
		t.CreatedAt = e.Timestamp
		t.ExpiresAt = e.ExpiresAt
		t.Status = TxStatusPending
	case AttestationRecorded:
		t.Attestations = append(t.Attestations, Attestation{
			Relayer:   e.Relayer,
			Timestamp: e.Timestamp,
		})
	case TransactionCompleted:
		t.Status = TxStatusCompleted
		t.EndedAt = e.Timestamp
	case TransactionExpired:
		t.Status = TxStatusExpired
		t.EndedAt = e.Timestamp
	case TransactionFailed:
		t.Status = TxStatusFailed
		t.FailReason = e.Reason
		t.EndedAt = e.Timestamp
	default:
		return
	}

	if replayed {
		t.Version++
	}
}

func (t *Transaction) raise(event Event) {
	if t.changes == nil {
		t.changes = make([]Event, 0)
	}
	t.changes = append(t.changes, event)
	t.on(event, false)
	t.Version++
}

func formatTxId(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func ParseTxId(id string) (uint64, error) {
	return strconv.ParseUint(id, 10, 64)
}
