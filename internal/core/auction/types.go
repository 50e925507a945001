// Package auction implements the GBM auction ledger: lot lifecycle, bid
// validation, incentive accounting, anti-snipe timers, and settlement.
package auction

import (
	"time"

	"github.com/gbmlabs/gbmd/internal/core/amount"
)

// TokenKind discriminates fungible from non-fungible lots.
type TokenKind uint8

const (
	TokenFungible TokenKind = iota + 1
	TokenNonFungible
)

func (k TokenKind) String() string {
	switch k {
	case TokenFungible:
		return "fungible"
	case TokenNonFungible:
		return "non-fungible"
	default:
		return "unknown"
	}
}

// Preset holds the increment-curve parameters for an auction. A live auction
// stores its own copy, so later registry edits never change running lots.
type Preset struct {
	IncMin        amount.Amount `json:"incMin"`
	IncMax        amount.Amount `json:"incMax"`
	BidMultiplier uint64        `json:"bidMultiplier"`
	StepMin       amount.Amount `json:"stepMin"`
	BidDecimals   uint64        `json:"bidDecimals"`
}

// ModifierKind selects the access gate applied to bids on a lot.
type ModifierKind uint8

const (
	ModifierNone ModifierKind = iota
	ModifierInGameOnly
	ModifierWhitelist
)

// Modifier is attached at creation time and immutable for the lot's lifetime.
type Modifier struct {
	Kind        ModifierKind `json:"kind"`
	WhitelistID uint64       `json:"whitelistId,omitempty"`
}

// LotInfo describes the asset under auction.
type LotInfo struct {
	Owner         string        `json:"owner"`
	TokenContract string        `json:"tokenContract"`
	TokenKind     TokenKind     `json:"tokenKind"`
	TokenID       uint64        `json:"tokenId"`
	TokenAmount   uint64        `json:"tokenAmount"`
	Category      uint32        `json:"category"`
	StartTime     time.Time     `json:"startTime"`
	EndTime       time.Time     `json:"endTime"`
	StartingBid   amount.Amount `json:"startingBid"`
	BuyItNowPrice amount.Amount `json:"buyItNowPrice"`
}

// Auction is the central ledger entity. It is owned exclusively by the Ledger;
// callers only observe copies or request transitions through Ledger operations.
type Auction struct {
	ID            uint64
	Info          LotInfo
	Preset        Preset
	Modifier      Modifier
	WarmupEndTime time.Time

	HighestBid    amount.Amount
	HighestBidder string
	DueIncentives amount.Amount
	Debts         []Debt
	PrepaidFee    amount.Amount

	Claimed   bool
	Cancelled bool

	// busy is the per-auction exclusion flag. It is set for the full span of
	// any mutating operation, including external value-moving calls, so a
	// reentrant or concurrent operation on the same lot fails instead of
	// interleaving. Guarded by the ledger mutex.
	busy bool
}

// Debt is a settlement payout that could not be delivered. It stays parked on
// the auction, keyed by its intended recipient, until CloseAuction retries it.
type Debt struct {
	Recipient string        `json:"recipient"`
	Amount    amount.Amount `json:"amount"`
}

// Snapshot is a caller-visible copy of an auction's state.
type Snapshot struct {
	ID            uint64        `json:"id"`
	Info          LotInfo       `json:"info"`
	Preset        Preset        `json:"preset"`
	Modifier      Modifier      `json:"modifier"`
	WarmupEndTime time.Time     `json:"warmupEndTime"`
	HighestBid    amount.Amount `json:"highestBid"`
	HighestBidder string        `json:"highestBidder,omitempty"`
	DueIncentives amount.Amount `json:"dueIncentives"`
	AuctionDebt   amount.Amount `json:"auctionDebt"`
	Debts         []Debt        `json:"debts,omitempty"`
	Claimed       bool          `json:"claimed"`
	Cancelled     bool          `json:"cancelled"`
}

func (a *Auction) snapshot() Snapshot {
	return Snapshot{
		ID:            a.ID,
		Info:          a.Info,
		Preset:        a.Preset,
		Modifier:      a.Modifier,
		WarmupEndTime: a.WarmupEndTime,
		HighestBid:    a.HighestBid,
		HighestBidder: a.HighestBidder,
		DueIncentives: a.DueIncentives,
		AuctionDebt:   a.debtTotal(),
		Debts:         append([]Debt(nil), a.Debts...),
		Claimed:       a.Claimed,
		Cancelled:     a.Cancelled,
	}
}

// parkDebt records a failed payout against its recipient, merging with any
// debt already owed to them.
func (a *Auction) parkDebt(recipient string, amt amount.Amount) {
	for i := range a.Debts {
		if a.Debts[i].Recipient == recipient {
			a.Debts[i].Amount = a.Debts[i].Amount.Add(amt)
			return
		}
	}
	a.Debts = append(a.Debts, Debt{Recipient: recipient, Amount: amt})
}

func (a *Auction) debtTotal() amount.Amount {
	var total amount.Amount
	for _, d := range a.Debts {
		total = total.Add(d.Amount)
	}
	return total
}

// terminal reports whether the auction has reached a terminal state.
func (a *Auction) terminal() bool {
	return a.Claimed || a.Cancelled
}
