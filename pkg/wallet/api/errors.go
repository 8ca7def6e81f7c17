package api

import (
	"context"
	"errors"

	"github.com/chainsafe/confidential-wallet/pkg/account"
	apperrors "github.com/chainsafe/confidential-wallet/pkg/app/errors"
	"github.com/chainsafe/confidential-wallet/pkg/ethereum"
	"github.com/chainsafe/confidential-wallet/pkg/history"
	"github.com/chainsafe/confidential-wallet/pkg/session"
	"github.com/chainsafe/confidential-wallet/pkg/token"
	"github.com/chainsafe/confidential-wallet/pkg/token/classifier"
	"github.com/chainsafe/confidential-wallet/pkg/tokenstore"
	"github.com/chainsafe/confidential-wallet/pkg/transfer"
)

// mapError assigns a client-facing category to a wallet error.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var svcErr *apperrors.ServiceError
	switch {
	case errors.As(err, &svcErr):
		return err
	case errors.Is(err, ethereum.ErrInvalidAddress),
		errors.Is(err, token.ErrInvalidAmount),
		errors.Is(err, token.ErrNonPositive),
		errors.Is(err, token.ErrTooManyDecimals),
		errors.Is(err, transfer.ErrInsufficientBalance),
		errors.Is(err, transfer.ErrAmountOutOfRange),
		errors.Is(err, history.ErrMissingHandle):
		return apperrors.BadRequestError(err, err.Error())
	case errors.Is(err, account.ErrNoActiveAccount):
		return apperrors.ForbiddenError(err, "no active account")
	case errors.Is(err, tokenstore.ErrTokenNotFound):
		return apperrors.ResourceNotFoundError(err, "token not found")
	case errors.Is(err, account.ErrUnknownWallet):
		return apperrors.ResourceNotFoundError(err, "wallet not found")
	case errors.Is(err, tokenstore.ErrTokenExists):
		return apperrors.ConflictError(err, "token already exists")
	case errors.Is(err, transfer.ErrTransferInProgress):
		return apperrors.ConflictError(err, "transfer already in progress")
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.TimeoutError(err, "request timed out")
	case errors.Is(err, session.ErrSessionNotInitialized),
		errors.Is(err, session.ErrPermitCreationFailed),
		errors.Is(err, session.ErrPermitIssuerMismatch),
		errors.Is(err, session.ErrUnsealFailed),
		errors.Is(err, session.ErrEncryptionFailed),
		errors.Is(err, transfer.ErrTransactionFailed),
		errors.Is(err, classifier.ErrClassificationAmbiguous):
		return apperrors.DependencyFailureError(err, rootMessage(err))
	default:
		return apperrors.GeneralError(err)
	}
}

// rootMessage returns the message of the outermost wallet sentinel in err.
func rootMessage(err error) string {
	for _, sentinel := range []error{
		session.ErrSessionNotInitialized,
		session.ErrPermitCreationFailed,
		session.ErrPermitIssuerMismatch,
		session.ErrUnsealFailed,
		session.ErrEncryptionFailed,
		transfer.ErrTransactionFailed,
		classifier.ErrClassificationAmbiguous,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
