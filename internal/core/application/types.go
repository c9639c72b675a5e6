package application

import (
	"context"

	"github.com/arkade-os/relayd/internal/core/domain"
)

type Service interface {
	Start() error
	Stop()
	InitiateOutbound(ctx context.Context, sender string, req OutboundRequest) (uint64, error)
	ProcessInbound(
		ctx context.Context, relayer string, report InboundReport,
	) (*InboundResult, error)
	ConfirmOutbound(ctx context.Context, relayer string, txId uint64) (*domain.Transaction, error)
	ExpireTransaction(ctx context.Context, txId uint64) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, txId uint64) (*domain.Transaction, error)
	ListTransactions(
		ctx context.Context, filter domain.TransactionFilter,
	) ([]domain.Transaction, error)
	IsListed(ctx context.Context, address string) (bool, error)
	GetAsset(ctx context.Context, address string) (*domain.Asset, error)
	ListAssets(ctx context.Context) ([]domain.Asset, error)
	SupportedChains(ctx context.Context) ([]domain.Chain, error)
	GetSettings(ctx context.Context) (*domain.Settings, error)
	GetInfo(ctx context.Context) (*ServiceInfo, error)
	GetEventsChannel(ctx context.Context) <-chan []domain.Event
}

type AdminService interface {
	ListAsset(ctx context.Context, caller, name, symbol, address string) error
	DelistAsset(ctx context.Context, caller, address string) error
	AddChain(ctx context.Context, caller, name string, chainId uint64) error
	RemoveChain(ctx context.Context, caller string, chainId uint64) error
	CollectFees(ctx context.Context, caller, asset string) (uint64, error)
	GetFeeBalance(ctx context.Context, asset string) (uint64, error)
	UpdateParameter(ctx context.Context, caller, name string, value uint64) error
	UpdateFeeCollector(ctx context.Context, caller, address string) error
	AbortTransaction(
		ctx context.Context, caller string, txId uint64, reason string,
	) (*domain.Transaction, error)
	Pause(ctx context.Context, caller string) error
	Unpause(ctx context.Context, caller string) error
}

type OutboundRequest struct {
	Asset       string
	Recipient   string
	Amount      uint64
	DestChainId uint64
}

// InboundReport is a relayer's claim that a transfer happened on a remote
// chain, identified by (SourceChainId, SourceTxId).
type InboundReport struct {
	SourceChainId uint64
	SourceTxId    string
	Sender        string
	Recipient     string
	Asset         string
	Amount        uint64
}

type InboundResult struct {
	TxId         uint64
	Created      bool
	Finalized    bool
	ConfirmCount int
}

type ServiceInfo struct {
	Version                string
	TransactionTimeout     int64
	FeeBasisPoints         uint64
	HourlyTransactionLimit uint64
	RequiredConfirmations  uint64
	ChallengeThreshold     uint64
	FeeCollector           string
	Paused                 bool
	AutoExpire             bool
	TxsInLastHour          uint64
}
