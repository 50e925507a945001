package auction

import (
	"github.com/gbmlabs/gbmd/internal/core/amount"
	"github.com/gbmlabs/gbmd/internal/core/fees"
)

// buyNowAvailable reports whether the live gating condition holds:
// highestBid <= buyItNowPrice * threshold / 100. Evaluated at call time, not
// cached, so an outbid-and-refunded lower bid re-enables buy-now.
func (l *Ledger) buyNowAvailable(a *Auction) bool {
	limit := a.Info.BuyItNowPrice.MulDiv(l.params.BuyNowThresholdPct, 100)
	return a.HighestBid <= limit
}

// BuyNow purchases the lot at the buy-it-now price for the caller.
func (l *Ledger) BuyNow(caller string, id uint64) error {
	return l.BuyNowFor(caller, id, caller)
}

// BuyNowFor purchases the lot for a specified recipient.
func (l *Ledger) BuyNowFor(caller string, id uint64, recipient string) error {
	a, err := l.acquire(id)
	if err != nil {
		return err
	}
	defer l.release(a)
	return l.buyNowHeld(a, caller, recipient)
}

func (l *Ledger) buyNowHeld(a *Auction, caller, recipient string) error {
	now := l.now()

	if recipient == "" {
		return errResult(RevINVALID_RECIPIENT)
	}
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
	price := a.Info.BuyItNowPrice
	if price.IsZero() {
		return errResult(RevNO_BUY_IT_NOW_PRICE)
	}
	if !l.buyNowAvailable(a) {
		return errResult(RevHIGHEST_BID_TOO_HIGH)
	}

	// Pull the full price, then refund the displaced leader at principal
	// only: buy-now short-circuits the incentive game.
	if err := l.safeTransferFrom(caller, l.params.Account, price); err != nil {
		return err
	}
	if a.HighestBidder != "" {
		if err := l.safeTransfer(a.HighestBidder, a.HighestBid); err != nil {
			if pushErr := l.safeTransfer(caller, price); pushErr != nil {
				l.log.Error().Err(pushErr).Uint64("auction", a.ID).Msg("buy-now unwind failed")
				return errResultCause(RexTRANSFER_INTEGRITY, pushErr)
			}
			return err
		}
	}

	if err := l.escrow.Push(a.Info.TokenContract, a.Info.TokenKind, a.Info.TokenID, a.Info.TokenAmount, recipient); err != nil {
		return errResultCause(RexESCROW_FAILED, err)
	}

	l.settleProceeds(a, price)

	prevBidder := a.HighestBidder
	prevBid := a.HighestBid

	l.mu.Lock()
	a.HighestBid = 0
	a.HighestBidder = ""
	a.DueIncentives = 0
	a.Claimed = true
	l.persist(a)
	l.mu.Unlock()

	if prevBidder != "" {
		l.emit(EventBidRemoved, a.ID, prevBidder, prevBid)
	}
	l.emit(EventBoughtNow, a.ID, recipient, price)
	return nil
}

// SetBuyNow lowers the buy-it-now price. Raising is never allowed, and the
// gating condition must currently hold.
func (l *Ledger) SetBuyNow(caller string, id uint64, newPrice amount.Amount) error {
	a, err := l.acquire(id)
	if err != nil {
		return err
	}
	defer l.release(a)

	if a.Info.Owner != caller {
		return errResult(ReaNOT_OWNER)
	}
	if a.terminal() {
		return l.terminalError(a)
	}
	if a.Info.BuyItNowPrice.IsZero() {
		return errResult(RevNO_BUY_IT_NOW_PRICE)
	}
	if !l.buyNowAvailable(a) {
		return errResult(RevHIGHEST_BID_TOO_HIGH)
	}
	if newPrice.IsZero() || newPrice >= a.Info.BuyItNowPrice {
		return errResult(RevCAN_ONLY_LOWER_BUY_NOW)
	}

	l.mu.Lock()
	a.Info.BuyItNowPrice = newPrice
	l.persist(a)
	l.mu.Unlock()

	l.emit(EventBuyItNowUpdated, id, caller, newPrice)
	return nil
}

// Claim settles an ended auction. With a winner, the lot goes to the highest
// bidder and the seller receives the winning amount net of the protocol fee,
// plus the prepaid listing-fee credit. With no bids, the lot returns to the
// owner and no payment funds move.
func (l *Ledger) Claim(caller string, id uint64) error {
	a, err := l.acquire(id)
	if err != nil {
		return err
	}
	defer l.release(a)

	now := l.now()
	if a.terminal() {
		return l.terminalError(a)
	}
	if !now.After(a.Info.EndTime) {
		return errResult(RevAUCTION_NOT_ENDED)
	}
	return l.settleHeld(a)
}

// settleHeld routes the lot and funds per the claim rule: highest bidder if
// any, else the original owner.
func (l *Ledger) settleHeld(a *Auction) error {
	if a.HighestBidder == "" {
		if err := l.escrow.Push(a.Info.TokenContract, a.Info.TokenKind, a.Info.TokenID, a.Info.TokenAmount, a.Info.Owner); err != nil {
			return errResultCause(RexESCROW_FAILED, err)
		}
		l.mu.Lock()
		a.Claimed = true
		l.persist(a)
		l.mu.Unlock()
		l.emit(EventItemClaimed, a.ID, a.Info.Owner, 0)
		return nil
	}

	if err := l.escrow.Push(a.Info.TokenContract, a.Info.TokenKind, a.Info.TokenID, a.Info.TokenAmount, a.HighestBidder); err != nil {
		return errResultCause(RexESCROW_FAILED, err)
	}

	l.settleProceeds(a, a.HighestBid)

	l.mu.Lock()
	a.Claimed = true
	l.persist(a)
	l.mu.Unlock()

	l.emit(EventItemClaimed, a.ID, a.HighestBidder, a.HighestBid)
	return nil
}

// settleProceeds pays the seller and the fee recipients out of the escrowed
// gross amount. The protocol fee on gross is reduced by the listing fee the
// seller already prepaid at creation. A failed push-transfer parks the owed
// amount as per-recipient debt instead of losing it; CloseAuction retries
// each entry.
func (l *Ledger) settleProceeds(a *Auction, gross amount.Amount) {
	feeDue := fees.PercentOf(gross, l.params.FeeBps)
	netFee := feeDue.Sub(a.PrepaidFee)
	proceeds := gross.Sub(netFee)

	for _, payout := range fees.Split(netFee, l.params.FeeRecipients) {
		if err := l.safeTransfer(payout.Address, payout.Amount); err != nil {
			l.log.Error().Err(err).
				Uint64("auction", a.ID).
				Str("recipient", payout.Address).
				Msg("fee payout blocked, parked as debt")
			l.mu.Lock()
			a.parkDebt(payout.Address, payout.Amount)
			l.mu.Unlock()
		}
	}

	if err := l.safeTransfer(a.Info.Owner, proceeds); err != nil {
		l.log.Error().Err(err).
			Uint64("auction", a.ID).
			Str("recipient", a.Info.Owner).
			Msg("seller payout blocked, parked as debt")
		l.mu.Lock()
		a.parkDebt(a.Info.Owner, proceeds)
		l.mu.Unlock()
	}
}

// CloseAuction is the privileged recovery path for stuck settlements. It
// honors the same routing rule and fee split as Claim; the operator cannot
// redirect funds.
func (l *Ledger) CloseAuction(caller string, id uint64) error {
	if caller != l.params.Operator {
		return errResult(ReaNOT_OPERATOR)
	}

	a, err := l.acquire(id)
	if err != nil {
		return err
	}
	defer l.release(a)

	if a.Cancelled {
		return errResult(RevCANCELLED)
	}

	// Already claimed: the only thing left to recover is parked debt. Each
	// recipient's entry is retried independently so one stuck payout does
	// not hold the others hostage, and recovered entries are persisted even
	// when some remain.
	if a.Claimed {
		if len(a.Debts) == 0 {
			return errResult(RevALREADY_CLAIMED)
		}
		var paid, stuck []Debt
		var firstErr error
		for _, d := range a.Debts {
			if err := l.safeTransfer(d.Recipient, d.Amount); err != nil {
				stuck = append(stuck, d)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			paid = append(paid, d)
		}
		l.mu.Lock()
		a.Debts = stuck
		l.persist(a)
		l.mu.Unlock()
		for _, d := range paid {
			l.emit(EventClosed, id, d.Recipient, d.Amount)
		}
		if firstErr != nil {
			return errResultCause(RefSTUCK_DEBT, firstErr)
		}
		return nil
	}

	if err := l.settleHeld(a); err != nil {
		return err
	}
	l.emit(EventClosed, id, caller, 0)
	return nil
}
