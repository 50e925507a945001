// Package swap wraps "swap then bid" and "swap then buy-now" as single atomic
// operations with reentrancy exclusion and allowance hygiene.
package swap

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/gbmlabs/gbmd/internal/core/amount"
	"github.com/gbmlabs/gbmd/internal/core/auction"
)

// Approver is the allowance surface of the input asset: the guard grants the
// swap venue a spend allowance for the input token and must always reset it
// to zero afterwards, whether or not the venue consumed it all.
type Approver interface {
	Approve(token, spender string, amt amount.Amount) error
}

// Guard composes a swap with a bid or buy-now under one per-auction exclusion
// span. The exclusion is taken before the external swap call, so an input
// asset whose transfer callback reenters the engine on the same lot observes
// the exclusion and fails without mutating state.
type Guard struct {
	ledger  *auction.Ledger
	adapter auction.SwapAdapter
	spender string
	approve Approver
	log     zerolog.Logger
	now     func() time.Time
}

// New creates a composition guard. spender is the swap venue's address, the
// one approvals are granted to and revoked from.
func New(ledger *auction.Ledger, adapter auction.SwapAdapter, approve Approver, spender string, log zerolog.Logger) *Guard {
	return &Guard{
		ledger:  ledger,
		adapter: adapter,
		spender: spender,
		approve: approve,
		log:     log,
		now:     time.Now,
	}
}

// WithClock overrides the time source.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.now = now
	return g
}

// Params carries a swap-and-settle request.
type Params struct {
	AuctionID uint64

	// TokenIn and AmountIn describe the input asset sold to the venue.
	TokenIn  string
	AmountIn amount.Amount

	// MinOut is the caller's minimum acceptable payment-asset output.
	MinOut   amount.Amount
	Deadline time.Time

	// Bid fields, used by CommitBid only.
	BidAmount          amount.Amount
	ExpectedHighestBid amount.Amount
	TokenContract      string
	TokenID            uint64
	TokenAmount        uint64
	Proof              auction.AccessProof
	AuthSig            []byte
}

// CommitBid swaps the input asset for the payment asset, then places the bid.
// Surplus output beyond the bid amount stays with the caller.
func (g *Guard) CommitBid(caller string, p Params) error {
	return g.run(caller, p, p.BidAmount, func(s *auction.Session) error {
		return s.CommitBid(caller, auction.BidParams{
			AuctionID:          p.AuctionID,
			BidAmount:          p.BidAmount,
			ExpectedHighestBid: p.ExpectedHighestBid,
			TokenContract:      p.TokenContract,
			TokenID:            p.TokenID,
			TokenAmount:        p.TokenAmount,
			Proof:              p.Proof,
			AuthSig:            p.AuthSig,
		})
	})
}

// BuyNow swaps the input asset for the payment asset, then buys the lot for
// recipient at the buy-it-now price.
func (g *Guard) BuyNow(caller string, p Params, recipient string) error {
	session, err := g.ledger.OpenSession(p.AuctionID)
	if err != nil {
		return err
	}
	defer session.Close()
	return g.swapThen(session, caller, p, session.BuyItNowPrice(), func(s *auction.Session) error {
		return s.BuyNowFor(caller, recipient)
	})
}

func (g *Guard) run(caller string, p Params, need amount.Amount, settle func(*auction.Session) error) error {
	session, err := g.ledger.OpenSession(p.AuctionID)
	if err != nil {
		return err
	}
	defer session.Close()
	return g.swapThen(session, caller, p, need, settle)
}

// swapThen performs the swap under the already-open session, verifies the
// realized output, then runs the settlement step. The approval granted to the
// venue is reset to zero on every path out.
func (g *Guard) swapThen(session *auction.Session, caller string, p Params, need amount.Amount, settle func(*auction.Session) error) error {
	if g.now().After(p.Deadline) {
		return auction.NewOpError(auction.RevDEADLINE_EXPIRED)
	}

	if err := g.approve.Approve(p.TokenIn, g.spender, p.AmountIn); err != nil {
		return auction.NewOpErrorCause(auction.RexSWAP_FAILED, err)
	}
	out, swapErr := g.adapter.Swap(p.TokenIn, p.AmountIn, p.MinOut, p.Deadline, caller)

	// Stale allowance left with the venue is exploitable later; clear it no
	// matter how the swap went.
	if err := g.approve.Approve(p.TokenIn, g.spender, 0); err != nil {
		g.log.Error().Err(err).Str("token", p.TokenIn).Msg("allowance reset failed")
		return auction.NewOpErrorCause(auction.RexSWAP_FAILED, err)
	}
	if swapErr != nil {
		return auction.NewOpErrorCause(auction.RexSWAP_FAILED, swapErr)
	}
	if out < p.MinOut || out < need {
		return auction.NewOpError(auction.RevSWAP_OUTPUT_INSUFFICIENT)
	}

	return settle(session)
}
