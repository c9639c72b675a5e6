package domain

import "errors"

var (
	ErrInvalidAddress        = errors.New("invalid address")
	ErrInvalidChainId        = errors.New("chain id must be greater than zero")
	ErrUnknownParameter      = errors.New("unknown parameter")
	ErrInvalidParameterValue = errors.New("invalid parameter value")

	ErrTxNotPending    = errors.New("transaction is not pending")
	ErrTxExpired       = errors.New("transaction expired")
	ErrTxNotExpiredYet = errors.New("transaction not expired yet")
	ErrAlreadyAttested = errors.New("relayer already attested the transaction")
)
