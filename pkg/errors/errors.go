package errors

import (
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	grpccodes "google.golang.org/grpc/codes"
)

// Code is the type representing a namespace error code.
type Code[MT any] struct {
	Code     uint16
	Name     string
	GrpcCode grpccodes.Code
}

// New creates a new error with the given code and the message
func (c Code[MT]) New(msg string, args ...any) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: fmt.Errorf(msg, args...),
	}
}

// Wrap creates a new Error with the given code and the cause error
func (c Code[MT]) Wrap(cause error) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: cause,
	}
}

func (c Code[MT]) String() string {
	return fmt.Sprintf("%s (%d)", c.Name, c.Code)
}

// Is reports whether err carries this code anywhere in its chain.
func (c Code[MT]) Is(err error) bool {
	var e Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code() == c.Code
}

type Error interface {
	error
	Log() *log.Entry
	Code() uint16
	CodeName() string
	GrpcCode() grpccodes.Code
	Metadata() map[string]string
}

type TypedError[MT any] interface {
	Error
	WithMetadata(MT) TypedError[MT]
}

// ErrorImpl is the default concrete implementation of TypedError.
type ErrorImpl[MT any] struct {
	code     Code[MT]
	cause    error
	metadata MT
}

func (e *ErrorImpl[MT]) Log() *log.Entry {
	return log.WithField("name", e.code.Name).
		WithField("code", e.code.Code).
		WithField("metadata", e.metadata)
}

func (e *ErrorImpl[MT]) Metadata() map[string]string {
	metadata := make(map[string]string)
	buf, err := json.Marshal(e.metadata)
	if err != nil {
		return metadata
	}
	var genericMap map[string]any
	if err := json.Unmarshal(buf, &genericMap); err != nil {
		return metadata
	}
	for k, v := range genericMap {
		vStr := ""
		if v != nil {
			vStr = fmt.Sprintf("%v", v)
		}
		metadata[k] = vStr
	}
	return metadata
}

func (e *ErrorImpl[MT]) GrpcCode() grpccodes.Code {
	return e.code.GrpcCode
}

func (e *ErrorImpl[MT]) Code() uint16 {
	return e.code.Code
}

func (e *ErrorImpl[MT]) CodeName() string {
	return e.code.Name
}

// Message returns the cause without the code prefix.
func (e *ErrorImpl[MT]) Message() string {
	return e.cause.Error()
}

func (e *ErrorImpl[MT]) Error() string {
	return fmt.Sprintf("%s: %s", e.code.String(), e.cause.Error())
}

func (e *ErrorImpl[MT]) Unwrap() error {
	return e.cause
}

func (e *ErrorImpl[MT]) WithMetadata(metadata MT) TypedError[MT] {
	e.metadata = metadata
	return e
}

type AddressMetadata struct {
	Field   string `json:"field"`
	Address string `json:"address,omitempty"`
}

type AmountMetadata struct {
	Amount uint64 `json:"amount"`
}

type AssetMetadata struct {
	Asset string `json:"asset"`
}

type ChainMetadata struct {
	ChainId uint64 `json:"chain_id"`
}

type ParameterMetadata struct {
	Name  string `json:"name"`
	Value uint64 `json:"value"`
}

type CallerMetadata struct {
	Caller string `json:"caller"`
	Role   string `json:"role"`
}

type TxMetadata struct {
	TxId uint64 `json:"tx_id"`
}

type TxStatusMetadata struct {
	TxId   uint64 `json:"tx_id"`
	Status string `json:"status"`
}

type AttestationMetadata struct {
	TxId    uint64 `json:"tx_id"`
	Relayer string `json:"relayer"`
}

type TxExpiryMetadata struct {
	TxId      uint64 `json:"tx_id"`
	ExpiresAt int64  `json:"expires_at"`
	Now       int64  `json:"now"`
}

type AttestationMismatchMetadata struct {
	TxId          uint64 `json:"tx_id"`
	SourceChainId uint64 `json:"source_chain_id"`
	SourceTxId    string `json:"source_tx_id"`
}

type TxDirectionMetadata struct {
	TxId      uint64 `json:"tx_id"`
	Direction string `json:"direction"`
}

type InsufficientBalanceMetadata struct {
	Account string `json:"account"`
	Balance uint64 `json:"balance"`
	Amount  uint64 `json:"amount"`
}

type RateLimitMetadata struct {
	Limit         uint64 `json:"limit"`
	WindowSeconds int64  `json:"window_seconds"`
}

var INTERNAL_ERROR = Code[map[string]any]{0, "INTERNAL_ERROR", grpccodes.Internal}
var ZERO_ADDRESS = Code[AddressMetadata]{1, "ZERO_ADDRESS", grpccodes.InvalidArgument}
var ZERO_AMOUNT = Code[AmountMetadata]{2, "ZERO_AMOUNT", grpccodes.InvalidArgument}
var INVALID_ADDRESS = Code[AddressMetadata]{3, "INVALID_ADDRESS", grpccodes.InvalidArgument}
var TOKEN_NOT_LISTED = Code[AssetMetadata]{4, "TOKEN_NOT_LISTED", grpccodes.InvalidArgument}
var ALREADY_LISTED = Code[AssetMetadata]{5, "ALREADY_LISTED", grpccodes.AlreadyExists}
var NOT_LISTED = Code[AssetMetadata]{6, "NOT_LISTED", grpccodes.NotFound}

var CHAIN_ALREADY_EXISTS = Code[ChainMetadata]{
	7,
	"CHAIN_ALREADY_EXISTS",
	grpccodes.AlreadyExists,
}

var CHAIN_NOT_SUPPORTED = Code[ChainMetadata]{
	8,
	"CHAIN_NOT_SUPPORTED",
	grpccodes.InvalidArgument,
}
var INVALID_CHAIN_ID = Code[ChainMetadata]{9, "INVALID_CHAIN_ID", grpccodes.InvalidArgument}

var INVALID_PARAMETER = Code[ParameterMetadata]{
	10,
	"INVALID_PARAMETER",
	grpccodes.InvalidArgument,
}
var UNAUTHORIZED = Code[CallerMetadata]{11, "UNAUTHORIZED", grpccodes.PermissionDenied}
var TRANSACTION_NOT_FOUND = Code[TxMetadata]{12, "TRANSACTION_NOT_FOUND", grpccodes.NotFound}

var ALREADY_CONFIRMED = Code[AttestationMetadata]{
	13,
	"ALREADY_CONFIRMED",
	grpccodes.FailedPrecondition,
}

var INVALID_TRANSACTION_STATUS = Code[TxStatusMetadata]{
	14,
	"INVALID_TRANSACTION_STATUS",
	grpccodes.FailedPrecondition,
}

var TRANSACTION_EXPIRED = Code[TxExpiryMetadata]{
	15,
	"TRANSACTION_EXPIRED",
	grpccodes.FailedPrecondition,
}

var NOT_EXPIRED_YET = Code[TxExpiryMetadata]{
	16,
	"NOT_EXPIRED_YET",
	grpccodes.FailedPrecondition,
}

var ATTESTATION_MISMATCH = Code[AttestationMismatchMetadata]{
	17,
	"ATTESTATION_MISMATCH",
	grpccodes.FailedPrecondition,
}

var INVALID_TRANSACTION_DIRECTION = Code[TxDirectionMetadata]{
	18,
	"INVALID_TRANSACTION_DIRECTION",
	grpccodes.FailedPrecondition,
}

var INSUFFICIENT_BALANCE = Code[InsufficientBalanceMetadata]{
	19,
	"INSUFFICIENT_BALANCE",
	grpccodes.FailedPrecondition,
}

var RATE_LIMIT_EXCEEDED = Code[RateLimitMetadata]{
	20,
	"RATE_LIMIT_EXCEEDED",
	grpccodes.ResourceExhausted,
}
var SERVICE_PAUSED = Code[any]{21, "SERVICE_PAUSED", grpccodes.Unavailable}
var INVALID_REQUEST = Code[any]{22, "INVALID_REQUEST", grpccodes.InvalidArgument}
