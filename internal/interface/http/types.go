package httpservice

import (
	"github.com/arkade-os/relayd/internal/core/application"
	"github.com/arkade-os/relayd/internal/core/domain"
)

type outboundRequest struct {
	Asset       string `json:"asset"`
	Recipient   string `json:"recipient"`
	Amount      uint64 `json:"amount"`
	DestChainId uint64 `json:"dest_chain_id"`
}

type outboundResponse struct {
	TxId uint64 `json:"tx_id"`
}

type inboundRequest struct {
	SourceChainId uint64 `json:"source_chain_id"`
	SourceTxId    string `json:"source_tx_id"`
	Sender        string `json:"sender"`
	Recipient     string `json:"recipient"`
	Asset         string `json:"asset"`
	Amount        uint64 `json:"amount"`
}

type inboundResponse struct {
	TxId         uint64 `json:"tx_id"`
	Created      bool   `json:"created"`
	Finalized    bool   `json:"finalized"`
	ConfirmCount int    `json:"confirm_count"`
}

type listAssetRequest struct {
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	Address string `json:"address"`
}

type addChainRequest struct {
	Name    string `json:"name"`
	ChainId uint64 `json:"chain_id"`
}

type updateParameterRequest struct {
	Value uint64 `json:"value"`
}

type updateFeeCollectorRequest struct {
	Address string `json:"address"`
}

type abortRequest struct {
	Reason string `json:"reason"`
}

type feesResponse struct {
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
}

type emptyResponse struct{}

type attestation struct {
	Relayer   string `json:"relayer"`
	Timestamp int64  `json:"timestamp"`
}

type transaction struct {
	Id            uint64        `json:"id"`
	Direction     string        `json:"direction"`
	Sender        string        `json:"sender"`
	Recipient     string        `json:"recipient"`
	Asset         string        `json:"asset"`
	Amount        uint64        `json:"amount"`
	Fee           uint64        `json:"fee"`
	SourceChainId uint64        `json:"source_chain_id,omitempty"`
	SourceTxId    string        `json:"source_tx_id,omitempty"`
	DestChainId   uint64        `json:"dest_chain_id,omitempty"`
	Status        string        `json:"status"`
	CreatedAt     int64         `json:"created_at"`
	ExpiresAt     int64         `json:"expires_at"`
	EndedAt       int64         `json:"ended_at,omitempty"`
	FailReason    string        `json:"fail_reason,omitempty"`
	Attestations  []attestation `json:"attestations"`
}

type transactionsResponse struct {
	Transactions []transaction `json:"transactions"`
}

type asset struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	ListedAt int64  `json:"listed_at"`
}

type assetsResponse struct {
	Assets []asset `json:"assets"`
}

type chain struct {
	Name    string `json:"name"`
	ChainId uint64 `json:"chain_id"`
	AddedAt int64  `json:"added_at"`
}

type chainsResponse struct {
	Chains []chain `json:"chains"`
}

type settingsResponse struct {
	TransactionTimeout     int64  `json:"transaction_timeout"`
	FeeBasisPoints         uint64 `json:"fee_basis_points"`
	HourlyTransactionLimit uint64 `json:"hourly_transaction_limit"`
	RequiredConfirmations  uint64 `json:"required_confirmations"`
	ChallengeThreshold     uint64 `json:"challenge_threshold"`
	FeeCollector           string `json:"fee_collector"`
	Paused                 bool   `json:"paused"`
	UpdatedAt              int64  `json:"updated_at"`
}

type infoResponse struct {
	Version                string `json:"version"`
	TransactionTimeout     int64  `json:"transaction_timeout"`
	FeeBasisPoints         uint64 `json:"fee_basis_points"`
	HourlyTransactionLimit uint64 `json:"hourly_transaction_limit"`
	RequiredConfirmations  uint64 `json:"required_confirmations"`
	ChallengeThreshold     uint64 `json:"challenge_threshold"`
	FeeCollector           string `json:"fee_collector"`
	Paused                 bool   `json:"paused"`
	AutoExpire             bool   `json:"auto_expire"`
	TxsInLastHour          uint64 `json:"txs_in_last_hour"`
}

// streamEvent is the payload of a server-sent event.
type streamEvent struct {
	Topic string       `json:"topic"`
	Type  string       `json:"type"`
	Id    string       `json:"id"`
	Data  domain.Event `json:"data"`
}

type transactionList []domain.Transaction

func (l transactionList) toJSON() []transaction {
	list := make([]transaction, 0, len(l))
	for _, tx := range l {
		list = append(list, newTransaction(tx))
	}
	return list
}

func newTransaction(tx domain.Transaction) transaction {
	attestations := make([]attestation, 0, len(tx.Attestations))
	for _, a := range tx.Attestations {
		attestations = append(attestations, attestation{a.Relayer, a.Timestamp})
	}
	return transaction{
		Id:            tx.Id,
		Direction:     tx.Direction.String(),
		Sender:        tx.Sender,
		Recipient:     tx.Recipient,
		Asset:         tx.Asset,
		Amount:        tx.Amount,
		Fee:           tx.Fee,
		SourceChainId: tx.SourceChainId,
		SourceTxId:    tx.SourceTxId,
		DestChainId:   tx.DestChainId,
		Status:        tx.Status.String(),
		CreatedAt:     tx.CreatedAt,
		ExpiresAt:     tx.ExpiresAt,
		EndedAt:       tx.EndedAt,
		FailReason:    tx.FailReason,
		Attestations:  attestations,
	}
}

type assetList []domain.Asset

func (l assetList) toJSON() []asset {
	list := make([]asset, 0, len(l))
	for _, a := range l {
		list = append(list, newAsset(a))
	}
	return list
}

func newAsset(a domain.Asset) asset {
	return asset{a.Name, a.Symbol, a.Address, a.ListedAt}
}

type chainList []domain.Chain

func (l chainList) toJSON() []chain {
	list := make([]chain, 0, len(l))
	for _, c := range l {
		list = append(list, chain{c.Name, c.Id, c.AddedAt})
	}
	return list
}

func newSettings(s domain.Settings) settingsResponse {
	var updatedAt int64
	if !s.UpdatedAt.IsZero() {
		updatedAt = s.UpdatedAt.Unix()
	}
	return settingsResponse{
		TransactionTimeout:     s.TransactionTimeout,
		FeeBasisPoints:         s.FeeBasisPoints,
		HourlyTransactionLimit: s.HourlyTransactionLimit,
		RequiredConfirmations:  s.RequiredConfirmations,
		ChallengeThreshold:     s.ChallengeThreshold,
		FeeCollector:           s.FeeCollector,
		Paused:                 s.Paused,
		UpdatedAt:              updatedAt,
	}
}

func newInfo(info application.ServiceInfo) infoResponse {
	return infoResponse{
		Version:                info.Version,
		TransactionTimeout:     info.TransactionTimeout,
		FeeBasisPoints:         info.FeeBasisPoints,
		HourlyTransactionLimit: info.HourlyTransactionLimit,
		RequiredConfirmations:  info.RequiredConfirmations,
		ChallengeThreshold:     info.ChallengeThreshold,
		FeeCollector:           info.FeeCollector,
		Paused:                 info.Paused,
		AutoExpire:             info.AutoExpire,
		TxsInLastHour:          info.TxsInLastHour,
	}
}

func newStreamEvent(event domain.Event) streamEvent {
	return streamEvent{
		Topic: event.GetTopic(),
		Type:  event.GetType().String(),
		Id:    event.GetId(),
		Data:  event,
	}
}
