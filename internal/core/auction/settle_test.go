package auction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gbmlabs/gbmd/internal/core/amount"
)

func TestClaimPaysSellerNetOfFeeWithPrepaidCredit(t *testing.T) {
	h := newHarness()
	lot := h.lot()
	lot.StartingBid = 10000
	id := h.mustCreate(CreateParams{Lot: lot})

	require.NoError(t, h.bid(id, "bob", 20000, 0))
	h.clock.Advance(25 * time.Hour)
	require.NoError(t, h.ledger.Claim("bob", id))

	// Fee due is 4% of 20000 = 800, minus the 400 prepaid at listing.
	// Seller receives 20000 - 400 = 19600; the fee recipient gets the
	// remaining 400.
	assert.Equal(t, amount.Amount(19600), h.bank.balance(testSeller))
	assert.Equal(t, amount.Amount(400), h.bank.balance(testDAO))
	assert.Equal(t, amount.Amount(400), h.bank.balance(testEngine))
	assert.Equal(t, "bob", h.bank.holder(testContract, 1))

	snap, err := h.ledger.AuctionInfo(id)
	require.NoError(t, err)
	assert.True(t, snap.Claimed)
	assert.Equal(t, amount.Amount(0), snap.AuctionDebt)
}

func TestClaimWithoutBidsReturnsLot(t *testing.T) {
	h := newHarness()
	id := h.mustCreate(CreateParams{Lot: h.lot()})

	h.clock.Advance(25 * time.Hour)
	require.NoError(t, h.ledger.Claim(testSeller, id))

	assert.Equal(t, testSeller, h.bank.holder(testContract, 1))
	// No payment funds moved.
	assert.Equal(t, amount.Amount(0), h.bank.balance(testEngine))
	assert.Equal(t, amount.Amount(0), h.bank.balance(testDAO))
}

func TestClaimGates(t *testing.T) {
	h := newHarness()
	id := h.mustCreate(CreateParams{Lot: h.lot()})

	err := h.ledger.Claim(testSeller, id)
	assert.Equal(t, RevAUCTION_NOT_ENDED, ResultOf(err))

	h.clock.Advance(25 * time.Hour)
	require.NoError(t, h.ledger.Claim(testSeller, id))

	err = h.ledger.Claim(testSeller, id)
	assert.Equal(t, RevALREADY_CLAIMED, ResultOf(err))
}

func TestBuyNowSettlesImmediately(t *testing.T) {
	h := newHarness()
	lot := h.lot()
	lot.BuyItNowPrice = 50000
	id := h.mustCreate(CreateParams{Lot: lot})

	h.bank.mint("carol", 50000)
	require.NoError(t, h.ledger.BuyNow("carol", id))

	assert.Equal(t, "carol", h.bank.holder(testContract, 1))
	// 4% fee on the price, no prepaid credit on a zero starting bid.
	assert.Equal(t, amount.Amount(48000), h.bank.balance(testSeller))
	assert.Equal(t, amount.Amount(2000), h.bank.balance(testDAO))

	snap, err := h.ledger.AuctionInfo(id)
	require.NoError(t, err)
	assert.True(t, snap.Claimed)
	assert.Equal(t, amount.Amount(0), snap.HighestBid)
}

func TestBuyNowRefundsLeaderPrincipalOnly(t *testing.T) {
	h := newHarness()
	lot := h.lot()
	lot.BuyItNowPrice = 50000
	id := h.mustCreate(CreateParams{Lot: lot})

	require.NoError(t, h.bid(id, "bob", 10000, 0))
	h.clock.Advance(2 * time.Hour) // past warmup; buy-now still pays no incentive

	h.bank.mint("carol", 50000)
	require.NoError(t, h.ledger.BuyNow("carol", id))

	assert.Equal(t, amount.Amount(10000), h.bank.balance("bob"))
	assert.NotContains(t, h.eventTypes(), EventIncentivePaid)
}

func TestBuyNowThresholdIsEvaluatedLive(t *testing.T) {
	h := newHarness()
	lot := h.lot()
	lot.BuyItNowPrice = 10000
	id := h.mustCreate(CreateParams{Lot: lot})

	// 7001 > 70% of 10000: buy-now unavailable.
	require.NoError(t, h.bid(id, "bob", 7001, 0))
	h.bank.mint("carol", 10000)
	err := h.ledger.BuyNow("carol", id)
	assert.Equal(t, RevHIGHEST_BID_TOO_HIGH, ResultOf(err))

	// Exactly at the threshold the gate holds.
	h2 := newHarness()
	id2 := h2.mustCreate(CreateParams{Lot: lot})
	require.NoError(t, h2.bid(id2, "bob", 7000, 0))
	h2.bank.mint("carol", 10000)
	require.NoError(t, h2.ledger.BuyNow("carol", id2))
}

func TestBuyNowValidation(t *testing.T) {
	h := newHarness()
	id := h.mustCreate(CreateParams{Lot: h.lot()})

	// No buy-it-now price configured.
	h.bank.mint("carol", 50000)
	err := h.ledger.BuyNow("carol", id)
	assert.Equal(t, RevNO_BUY_IT_NOW_PRICE, ResultOf(err))

	lot := h.lot()
	lot.TokenID = 2
	lot.BuyItNowPrice = 50000
	id2 := h.mustCreate(CreateParams{Lot: lot})

	err = h.ledger.BuyNowFor("carol", id2, "")
	assert.Equal(t, RevINVALID_RECIPIENT, ResultOf(err))

	h.clock.Advance(25 * time.Hour)
	err = h.ledger.BuyNow("carol", id2)
	assert.Equal(t, RevAUCTION_ENDED, ResultOf(err))
}

func TestBuyNowForDeliversToRecipient(t *testing.T) {
	h := newHarness()
	lot := h.lot()
	lot.BuyItNowPrice = 50000
	id := h.mustCreate(CreateParams{Lot: lot})

	h.bank.mint("carol", 50000)
	require.NoError(t, h.ledger.BuyNowFor("carol", id, "dave"))
	assert.Equal(t, "dave", h.bank.holder(testContract, 1))
}

func TestSetBuyNowOnlyLowers(t *testing.T) {
	h := newHarness()
	lot := h.lot()
	lot.BuyItNowPrice = 50000
	id := h.mustCreate(CreateParams{Lot: lot})

	err := h.ledger.SetBuyNow("mallory", id, 40000)
	assert.Equal(t, ReaNOT_OWNER, ResultOf(err))

	err = h.ledger.SetBuyNow(testSeller, id, 50000)
	assert.Equal(t, RevCAN_ONLY_LOWER_BUY_NOW, ResultOf(err))
	err = h.ledger.SetBuyNow(testSeller, id, 60000)
	assert.Equal(t, RevCAN_ONLY_LOWER_BUY_NOW, ResultOf(err))

	require.NoError(t, h.ledger.SetBuyNow(testSeller, id, 40000))
	snap, err := h.ledger.AuctionInfo(id)
	require.NoError(t, err)
	assert.Equal(t, amount.Amount(40000), snap.Info.BuyItNowPrice)
}

func TestSetBuyNowRequiresGateToHold(t *testing.T) {
	h := newHarness()
	lot := h.lot()
	lot.BuyItNowPrice = 10000
	id := h.mustCreate(CreateParams{Lot: lot})

	require.NoError(t, h.bid(id, "bob", 7001, 0))
	err := h.ledger.SetBuyNow(testSeller, id, 8000)
	assert.Equal(t, RevHIGHEST_BID_TOO_HIGH, ResultOf(err))
}

func TestCloseAuctionRequiresOperator(t *testing.T) {
	h := newHarness()
	id := h.mustCreate(CreateParams{Lot: h.lot()})

	err := h.ledger.CloseAuction("mallory", id)
	assert.Equal(t, ReaNOT_OPERATOR, ResultOf(err))
}

func TestCloseAuctionSettlesStuckAuction(t *testing.T) {
	h := newHarness()
	id := h.mustCreate(CreateParams{Lot: h.lot()})
	require.NoError(t, h.bid(id, "bob", 20000, 0))
	h.clock.Advance(25 * time.Hour)

	// Routing follows the claim rule: the operator cannot redirect the lot.
	require.NoError(t, h.ledger.CloseAuction(testOperator, id))
	assert.Equal(t, "bob", h.bank.holder(testContract, 1))
	assert.Equal(t, amount.Amount(19200), h.bank.balance(testSeller))
}

func TestCloseAuctionRecoversParkedDebt(t *testing.T) {
	h := newHarness()
	id := h.mustCreate(CreateParams{Lot: h.lot()})
	require.NoError(t, h.bid(id, "bob", 20000, 0))
	h.clock.Advance(25 * time.Hour)

	// The seller payout is blocked at claim time; the owed amount parks as
	// debt instead of being lost, and the claim itself still succeeds.
	h.bank.failPushTo[testSeller] = true
	require.NoError(t, h.ledger.Claim("bob", id))

	snap, err := h.ledger.AuctionInfo(id)
	require.NoError(t, err)
	assert.Equal(t, amount.Amount(19200), snap.AuctionDebt)
	assert.Equal(t, amount.Amount(0), h.bank.balance(testSeller))

	// Once the account accepts transfers again, the operator recovers it.
	h.bank.failPushTo[testSeller] = false
	require.NoError(t, h.ledger.CloseAuction(testOperator, id))
	assert.Equal(t, amount.Amount(19200), h.bank.balance(testSeller))

	// Nothing left to recover.
	err = h.ledger.CloseAuction(testOperator, id)
	assert.Equal(t, RevALREADY_CLAIMED, ResultOf(err))
}

func TestCloseAuctionKeepsDebtRoutingPerRecipient(t *testing.T) {
	h := newHarness()
	id := h.mustCreate(CreateParams{Lot: h.lot()})
	require.NoError(t, h.bid(id, "bob", 20000, 0))
	h.clock.Advance(25 * time.Hour)

	// Both the fee payout and the seller payout are blocked at claim time.
	// Each parks against its own recipient; no starting bid means no prepaid
	// credit, so the DAO is owed the full 4% fee.
	h.bank.failPushTo[testDAO] = true
	h.bank.failPushTo[testSeller] = true
	require.NoError(t, h.ledger.Claim("bob", id))

	snap, err := h.ledger.AuctionInfo(id)
	require.NoError(t, err)
	assert.Equal(t, amount.Amount(20000), snap.AuctionDebt)
	assert.ElementsMatch(t, []Debt{
		{Recipient: testDAO, Amount: 800},
		{Recipient: testSeller, Amount: 19200},
	}, snap.Debts)

	// Only the DAO recovers; the seller entry stays parked and the close
	// reports the stuck remainder.
	h.bank.failPushTo[testDAO] = false
	err = h.ledger.CloseAuction(testOperator, id)
	assert.Equal(t, RefSTUCK_DEBT, ResultOf(err))
	assert.Equal(t, amount.Amount(800), h.bank.balance(testDAO))
	assert.Equal(t, amount.Amount(0), h.bank.balance(testSeller))

	snap, err = h.ledger.AuctionInfo(id)
	require.NoError(t, err)
	assert.Equal(t, []Debt{{Recipient: testSeller, Amount: 19200}}, snap.Debts)

	// The seller's entry is still routed to the seller, never merged into
	// whoever failed last.
	h.bank.failPushTo[testSeller] = false
	require.NoError(t, h.ledger.CloseAuction(testOperator, id))
	assert.Equal(t, amount.Amount(800), h.bank.balance(testDAO))
	assert.Equal(t, amount.Amount(19200), h.bank.balance(testSeller))

	err = h.ledger.CloseAuction(testOperator, id)
	assert.Equal(t, RevALREADY_CLAIMED, ResultOf(err))
}

func TestCloseAuctionOnCancelledFails(t *testing.T) {
	h := newHarness()
	id := h.mustCreate(CreateParams{Lot: h.lot()})
	require.NoError(t, h.ledger.CancelAuction(testSeller, id))

	err := h.ledger.CloseAuction(testOperator, id)
	assert.Equal(t, RevCANCELLED, ResultOf(err))
}
