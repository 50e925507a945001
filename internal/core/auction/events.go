package auction

import (
	"time"

	"github.com/google/uuid"

	"github.com/gbmlabs/gbmd/internal/core/amount"
)

// EventType identifies a structured notification emitted for off-chain
// indexing. The schema is an observability concern, not part of the core
// contract.
type EventType string

const (
	EventInitialized          EventType = "auction_initialized"
	EventStartingPriceUpdated EventType = "auction_starting_price_updated"
	EventBuyItNowUpdated      EventType = "auction_buy_it_now_updated"
	EventBidPlaced            EventType = "auction_bid_placed"
	EventBidRemoved           EventType = "auction_bid_removed"
	EventIncentivePaid        EventType = "auction_incentive_paid"
	EventBoughtNow            EventType = "auction_bought_now"
	EventItemClaimed          EventType = "auction_item_claimed"
	EventCancelled            EventType = "auction_cancelled"
	EventClosed               EventType = "auction_closed"
	EventBiddingToggled       EventType = "contract_bidding_toggled"
)

// Event is a structured notification about an auction state change.
type Event struct {
	ID        uuid.UUID     `json:"id"`
	Type      EventType     `json:"type"`
	AuctionID uint64        `json:"auctionId"`
	Actor     string        `json:"actor,omitempty"`
	Amount    amount.Amount `json:"amount,omitempty"`
	At        time.Time     `json:"at"`
}

// Hooks provides callbacks for engine events.
type Hooks struct {
	// OnEvent is called after every committed state change.
	OnEvent func(Event)
}

func (l *Ledger) emit(t EventType, auctionID uint64, actor string, amt amount.Amount) {
	ev := Event{
		ID:        uuid.New(),
		Type:      t,
		AuctionID: auctionID,
		Actor:     actor,
		Amount:    amt,
		At:        l.now(),
	}
	l.log.Debug().
		Str("event", string(t)).
		Uint64("auction", auctionID).
		Str("actor", actor).
		Str("amount", amt.String()).
		Msg("auction event")
	if l.hooks.OnEvent != nil {
		l.hooks.OnEvent(ev)
	}
}
