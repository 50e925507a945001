package auction

import (
	"time"

	"github.com/gbmlabs/gbmd/internal/core/amount"
)

// PaymentLedger is the external fungible-asset ledger holding the payment
// token. A reported success must correspond to an actual balance delta; the
// engine verifies this and treats any mismatch as a hard failure.
type PaymentLedger interface {
	// TransferFrom pulls amt from `from` into `to` using allowance semantics.
	TransferFrom(from, to string, amt amount.Amount) (bool, error)

	// Transfer pushes amt from the engine's own account to `to`.
	Transfer(to string, amt amount.Amount) (bool, error)

	// BalanceOf reports the current balance of addr.
	BalanceOf(addr string) (amount.Amount, error)
}

// AssetEscrow moves auctioned lots (fungible or non-fungible) in and out of
// the engine's custody.
type AssetEscrow interface {
	Pull(contract string, kind TokenKind, tokenID, tokenAmount uint64, from string) error
	Push(contract string, kind TokenKind, tokenID, tokenAmount uint64, to string) error
}

// SwapAdapter converts an arbitrary input asset into the payment asset within
// a deadline and minimum-output bound. Consumed as a black box by the bid
// composition wrapper only.
type SwapAdapter interface {
	Swap(tokenIn string, amountIn, minOut amount.Amount, deadline time.Time, recipient string) (amount.Amount, error)
}

// AccessProof carries caller-supplied context for modifier checks.
type AccessProof struct {
	InGame bool
}

// AccessOracle answers whether an actor may bid on a lot carrying a given
// modifier. Whitelist membership is consumed as a boolean oracle only.
type AccessOracle interface {
	IsPermitted(mod Modifier, actor string, proof AccessProof) bool
	WhitelistExists(id uint64) bool
}

// BidAuthorizer optionally gates bid acceptance behind an external
// authorization capability. The production default is a no-op.
type BidAuthorizer interface {
	Authorize(bidder string, auctionID uint64, bidAmount, lastHighestBid amount.Amount, sig []byte) error
}

// safeTransferFrom pulls funds and verifies the recipient's balance actually
// moved by amt. Payment assets that report success without effecting the
// transfer are rejected with a transfer-integrity failure.
func (l *Ledger) safeTransferFrom(from, to string, amt amount.Amount) error {
	if amt.IsZero() {
		return nil
	}
	before, err := l.payment.BalanceOf(to)
	if err != nil {
		return errResultCause(RexTRANSFER_FAILED, err)
	}
	ok, err := l.payment.TransferFrom(from, to, amt)
	if err != nil {
		return errResultCause(RexTRANSFER_FAILED, err)
	}
	if !ok {
		return errResult(RexTRANSFER_FAILED)
	}
	after, err := l.payment.BalanceOf(to)
	if err != nil {
		return errResultCause(RexTRANSFER_FAILED, err)
	}
	if after.Sub(before) != amt {
		return errResult(RexTRANSFER_INTEGRITY)
	}
	return nil
}

// safeTransfer pushes funds from the engine account with the same balance
// delta verification as safeTransferFrom.
func (l *Ledger) safeTransfer(to string, amt amount.Amount) error {
	if amt.IsZero() {
		return nil
	}
	before, err := l.payment.BalanceOf(to)
	if err != nil {
		return errResultCause(RexTRANSFER_FAILED, err)
	}
	ok, err := l.payment.Transfer(to, amt)
	if err != nil {
		return errResultCause(RexTRANSFER_FAILED, err)
	}
	if !ok {
		return errResult(RexTRANSFER_FAILED)
	}
	after, err := l.payment.BalanceOf(to)
	if err != nil {
		return errResultCause(RexTRANSFER_FAILED, err)
	}
	if after.Sub(before) != amt {
		return errResult(RexTRANSFER_INTEGRITY)
	}
	return nil
}
