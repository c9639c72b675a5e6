package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"

	"github.com/arkade-os/relayd/internal/core/domain"
	"github.com/arkade-os/relayd/pkg/errors"
)

const (
	roleRelayer = "relayer"
	roleManager = "manager"
	rolePauser  = "pauser"
)

func requireRole(
	ctx context.Context, hasRole func(context.Context, string) (bool, error),
	caller, role string,
) error {
	if !domain.IsValidAddress(caller) {
		return errors.UNAUTHORIZED.New("missing caller identity").
			WithMetadata(errors.CallerMetadata{Caller: caller, Role: role})
	}
	ok, err := hasRole(ctx, caller)
	if err != nil {
		return errors.INTERNAL_ERROR.Wrap(
			fmt.Errorf("failed to check %s credential of %s: %w", role, caller, err),
		)
	}
	if !ok {
		return errors.UNAUTHORIZED.New("caller %s is not a %s", caller, role).
			WithMetadata(errors.CallerMetadata{Caller: caller, Role: role})
	}
	return nil
}

func requireAddress(field, address string) error {
	if !domain.IsValidAddress(address) {
		return errors.ZERO_ADDRESS.New("%s must not be empty", field).
			WithMetadata(errors.AddressMetadata{Field: field, Address: address})
	}
	return nil
}

func requireAmount(amount uint64) error {
	if amount == 0 {
		return errors.ZERO_AMOUNT.New("amount must be greater than zero").
			WithMetadata(errors.AmountMetadata{Amount: amount})
	}
	return nil
}

// txStateError converts the errors returned by the state transitions of a
// transaction into typed errors.
func txStateError(tx *domain.Transaction, relayer string, now int64, err error) error {
	switch {
	case stderrors.Is(err, domain.ErrTxNotPending):
		return errors.INVALID_TRANSACTION_STATUS.New(
			"transaction %d is %s", tx.Id, tx.Status,
		).WithMetadata(errors.TxStatusMetadata{TxId: tx.Id, Status: tx.Status.String()})
	case stderrors.Is(err, domain.ErrTxExpired):
		return errors.TRANSACTION_EXPIRED.New(
			"transaction %d expired at %d", tx.Id, tx.ExpiresAt,
		).WithMetadata(errors.TxExpiryMetadata{TxId: tx.Id, ExpiresAt: tx.ExpiresAt, Now: now})
	case stderrors.Is(err, domain.ErrTxNotExpiredYet):
		return errors.NOT_EXPIRED_YET.New(
			"transaction %d expires at %d", tx.Id, tx.ExpiresAt,
		).WithMetadata(errors.TxExpiryMetadata{TxId: tx.Id, ExpiresAt: tx.ExpiresAt, Now: now})
	case stderrors.Is(err, domain.ErrAlreadyAttested):
		return errors.ALREADY_CONFIRMED.New(
			"relayer %s already attested transaction %d", relayer, tx.Id,
		).WithMetadata(errors.AttestationMetadata{TxId: tx.Id, Relayer: relayer})
	default:
		return errors.INTERNAL_ERROR.Wrap(err)
	}
}

func txNotFound(id uint64) error {
	return errors.TRANSACTION_NOT_FOUND.New("transaction %d not found", id).
		WithMetadata(errors.TxMetadata{TxId: id})
}

func serviceNotPaused(settings *domain.Settings) error {
	if settings.Paused {
		return errors.SERVICE_PAUSED.New("relay is paused")
	}
	return nil
}

func internalError(format string, args ...any) error {
	return errors.INTERNAL_ERROR.Wrap(fmt.Errorf(format, args...))
}

func txLockKey(id uint64) string {
	return "tx:" + strconv.FormatUint(id, 10)
}

func inboundLockKey(sourceChainId uint64, sourceTxId string) string {
	return fmt.Sprintf("inbound:%d:%s", sourceChainId, sourceTxId)
}
