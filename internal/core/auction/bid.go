package auction

import (
	"github.com/gbmlabs/gbmd/internal/core/amount"
)

// BidParams carries a bid submission. ExpectedHighestBid is the caller's last
// observed highest bid: the minimum-increment check always runs against the
// current stored value, so a bid computed from a stale read is rejected as
// insufficient rather than silently accepted at a worse implied price.
type BidParams struct {
	AuctionID          uint64
	BidAmount          amount.Amount
	ExpectedHighestBid amount.Amount

	// Lot identity re-check; must match the auctioned asset.
	TokenContract string
	TokenID       uint64
	TokenAmount   uint64

	Proof AccessProof

	// AuthSig is consumed by the configured BidAuthorizer, if any.
	AuthSig []byte
}

// CommitBid validates and escrows a bid, refunding (and past warmup,
// incentivizing) the previous leader, then installs the caller as the new
// leader. Validation and mutation happen under the auction's exclusion flag.
func (l *Ledger) CommitBid(caller string, p BidParams) error {
	a, err := l.acquire(p.AuctionID)
	if err != nil {
		return err
	}
	defer l.release(a)
	return l.commitBidHeld(a, caller, p)
}

func (l *Ledger) commitBidHeld(a *Auction, caller string, p BidParams) error {
	now := l.now()

	if a.terminal() {
		return l.terminalError(a)
	}
	l.mu.Lock()
	allowed := l.biddingAllowed[a.Info.TokenContract]
	l.mu.Unlock()
	if !allowed {
		return errResult(RevBIDDING_NOT_ALLOWED)
	}
	if now.Before(a.Info.StartTime) {
		return errResult(RevAUCTION_NOT_STARTED)
	}
	if now.After(a.Info.EndTime) {
		return errResult(RevAUCTION_ENDED)
	}
	if p.TokenContract != a.Info.TokenContract || p.TokenID != a.Info.TokenID || p.TokenAmount != a.Info.TokenAmount {
		return errResult(RevLOT_MISMATCH)
	}

	if !l.access.IsPermitted(a.Modifier, caller, p.Proof) {
		switch a.Modifier.Kind {
		case ModifierInGameOnly:
			return errResult(ReaMUST_BE_IN_GAME)
		default:
			return errResult(ReaNOT_WHITELISTED)
		}
	}

	if l.authorizer != nil {
		if err := l.authorizer.Authorize(caller, a.ID, p.BidAmount, p.ExpectedHighestBid, p.AuthSig); err != nil {
			return errResultCause(ReaBID_UNAUTHORIZED, err)
		}
	}

	if p.BidAmount < a.Info.StartingBid {
		return errResult(RevBID_BELOW_STARTING_BID)
	}
	if !a.HighestBid.IsZero() {
		min := a.HighestBid.Add(MinIncrement(a.HighestBid, a.Preset))
		if p.BidAmount < min {
			return errResult(RevBID_TOO_LOW)
		}
	} else if p.BidAmount.IsZero() {
		return errResult(RevBAD_AMOUNT)
	}

	// Escrow the new bid first.
	if err := l.safeTransferFrom(caller, l.params.Account, p.BidAmount); err != nil {
		return err
	}

	// Refund the displaced leader: principal always, accrued incentive only
	// once the warmup period is over. The incentive never exceeds the
	// increment the leader was outbid by.
	prevBidder := a.HighestBidder
	prevBid := a.HighestBid
	var incentive amount.Amount
	if prevBidder != "" {
		refund := prevBid
		if !now.Before(a.WarmupEndTime) {
			incentive = amount.Min(a.DueIncentives, p.BidAmount.Sub(prevBid))
			refund = refund.Add(incentive)
		}
		if err := l.safeTransfer(prevBidder, refund); err != nil {
			// Give the freshly escrowed bid back; the operation must perform
			// none of its effects if it cannot perform all of them.
			if pushErr := l.safeTransfer(caller, p.BidAmount); pushErr != nil {
				l.log.Error().Err(pushErr).Uint64("auction", a.ID).Msg("bid unwind failed")
				return errResultCause(RexTRANSFER_INTEGRITY, pushErr)
			}
			return err
		}
	}

	l.mu.Lock()
	a.HighestBid = p.BidAmount
	a.HighestBidder = caller
	a.DueIncentives = AccruedIncentive(p.BidAmount, a.Preset)

	// Anti-snipe: a bid landing inside the trailing hammer window pushes the
	// deadline out, so last-second sniping cannot deny a response. The warmup
	// deadline extends the same way, so a bid cannot be timed to just dodge
	// the incentive-free period.
	if a.Info.EndTime.Sub(now) < l.params.HammerTime {
		a.Info.EndTime = now.Add(l.params.HammerTime)
	}
	if now.Before(a.WarmupEndTime) && a.WarmupEndTime.Sub(now) < l.params.HammerTime {
		a.WarmupEndTime = now.Add(l.params.HammerTime)
	}
	l.persist(a)
	l.mu.Unlock()

	if prevBidder != "" {
		l.emit(EventBidRemoved, a.ID, prevBidder, prevBid)
		if !incentive.IsZero() {
			l.emit(EventIncentivePaid, a.ID, prevBidder, incentive)
		}
	}
	l.emit(EventBidPlaced, a.ID, caller, p.BidAmount)
	return nil
}

// Session holds an auction's exclusion flag across a composed operation such
// as swap-then-bid. While a session is open, any other operation on the same
// auction (including one issued from a token transfer callback) fails with
// RecAUCTION_BUSY.
type Session struct {
	l      *Ledger
	a      *Auction
	closed bool
}

// OpenSession acquires the auction's exclusion flag.
func (l *Ledger) OpenSession(id uint64) (*Session, error) {
	a, err := l.acquire(id)
	if err != nil {
		return nil, err
	}
	return &Session{l: l, a: a}, nil
}

// Close releases the exclusion flag. Safe to call more than once.
func (s *Session) Close() {
	if !s.closed {
		s.closed = true
		s.l.release(s.a)
	}
}

// AuctionID returns the locked auction's id.
func (s *Session) AuctionID() uint64 { return s.a.ID }

// HighestBid returns the highest bid under the session's consistent view.
func (s *Session) HighestBid() amount.Amount { return s.a.HighestBid }

// BuyItNowPrice returns the current buy-it-now price.
func (s *Session) BuyItNowPrice() amount.Amount { return s.a.Info.BuyItNowPrice }

// MinBid returns the smallest acceptable bid amount right now.
func (s *Session) MinBid() amount.Amount {
	if s.a.HighestBid.IsZero() {
		return amount.Max(s.a.Info.StartingBid, 1)
	}
	return amount.Max(s.a.HighestBid.Add(MinIncrement(s.a.HighestBid, s.a.Preset)), s.a.Info.StartingBid)
}

// CommitBid submits a bid inside the session.
func (s *Session) CommitBid(caller string, p BidParams) error {
	if p.AuctionID != s.a.ID {
		return errResult(RevNO_AUCTION)
	}
	return s.l.commitBidHeld(s.a, caller, p)
}

// BuyNowFor executes a buy-it-now purchase inside the session.
func (s *Session) BuyNowFor(caller, recipient string) error {
	return s.l.buyNowHeld(s.a, caller, recipient)
}
