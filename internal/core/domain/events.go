package domain

const (
	TransactionTopic = "transaction"
	RegistryTopic    = "registry"
	AdminTopic       = "admin"
)

type EventType uint8

const (
	EventTypeUndefined EventType = iota
	EventTypeTransactionCreated
	EventTypeAttestationRecorded
	EventTypeTransactionCompleted
	EventTypeTransactionExpired
	EventTypeTransactionFailed
	EventTypeAssetListed
	EventTypeAssetDelisted
	EventTypeChainAdded
	EventTypeChainRemoved
	EventTypeFeesCollected
	EventTypeSettingsUpdated
	EventTypeFeeCollectorUpdated
	EventTypePauseToggled
)

func (t EventType) String() string {
	return []string{
		"Undefined",
		"TransactionCreated",
		"AttestationRecorded",
		"TransactionCompleted",
		"TransactionExpired",
		"TransactionFailed",
		"AssetListed",
		"AssetDelisted",
		"ChainAdded",
		"ChainRemoved",
		"FeesCollected",
		"SettingsUpdated",
		"FeeCollectorUpdated",
		"PauseToggled",
	}[t]
}

type Event interface {
	GetTopic() string
	GetType() EventType
	GetId() string
}

type TransactionEvent struct {
	Id   string
	Type EventType
}

func (e TransactionEvent) GetTopic() string   { return TransactionTopic }
func (e TransactionEvent) GetType() EventType { return e.Type }
func (e TransactionEvent) GetId() string      { return e.Id }

type TransactionCreated struct {
	TransactionEvent
	Direction     Direction
	Sender        string
	Recipient     string
	Asset         string
	Amount        uint64
	Fee           uint64
	SourceChainId uint64
	SourceTxId    string
	DestChainId   uint64
	Timestamp     int64
	ExpiresAt     int64
}

type AttestationRecorded struct {
	TransactionEvent
	Relayer   string
	Timestamp int64
}

type TransactionCompleted struct {
	TransactionEvent
	Timestamp int64
}

type TransactionExpired struct {
	TransactionEvent
	Timestamp int64
}

type TransactionFailed struct {
	TransactionEvent
	Reason    string
	Timestamp int64
}

type RegistryEvent struct {
	Id   string
	Type EventType
}

func (e RegistryEvent) GetTopic() string   { return RegistryTopic }
func (e RegistryEvent) GetType() EventType { return e.Type }
func (e RegistryEvent) GetId() string      { return e.Id }

type AssetListed struct {
	RegistryEvent
	Name      string
	Symbol    string
	Address   string
	Timestamp int64
}

type AssetDelisted struct {
	RegistryEvent
	Address   string
	Timestamp int64
}

type ChainAdded struct {
	RegistryEvent
	Name      string
	ChainId   uint64
	Timestamp int64
}

type ChainRemoved struct {
	RegistryEvent
	ChainId   uint64
	Timestamp int64
}

type AdminEvent struct {
	Id   string
	Type EventType
}

func (e AdminEvent) GetTopic() string   { return AdminTopic }
func (e AdminEvent) GetType() EventType { return e.Type }
func (e AdminEvent) GetId() string      { return e.Id }

type FeesCollected struct {
	AdminEvent
	Asset     string
	Amount    uint64
	Recipient string
	Timestamp int64
}

type SettingsUpdated struct {
	AdminEvent
	Name      string
	OldValue  uint64
	NewValue  uint64
	Timestamp int64
}

type FeeCollectorUpdated struct {
	AdminEvent
	Address   string
	Timestamp int64
}

type PauseToggled struct {
	AdminEvent
	Paused    bool
	Caller    string
	Timestamp int64
}
