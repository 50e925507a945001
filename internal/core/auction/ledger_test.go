package auction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gbmlabs/gbmd/internal/core/amount"
)

func TestCreateAuctionValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(h *harness, p *CreateParams)
		want    Result
	}{
		{
			name:   "unknown preset",
			mutate: func(h *harness, p *CreateParams) { p.PresetID = 99 },
			want:   RevUNKNOWN_PRESET,
		},
		{
			name: "non-fungible amount must be one",
			mutate: func(h *harness, p *CreateParams) {
				p.Lot.TokenAmount = 3
			},
			want: RevBAD_AMOUNT,
		},
		{
			name: "fungible amount must be positive",
			mutate: func(h *harness, p *CreateParams) {
				p.Lot.TokenKind = TokenFungible
				p.Lot.TokenAmount = 0
			},
			want: RevBAD_AMOUNT,
		},
		{
			name: "end must be after start",
			mutate: func(h *harness, p *CreateParams) {
				p.Lot.EndTime = p.Lot.StartTime
			},
			want: RevINVALID_TIMING,
		},
		{
			name: "warmup below minimum",
			mutate: func(h *harness, p *CreateParams) {
				p.WarmupDuration = time.Minute
			},
			want: RevWARMUP_TOO_SHORT,
		},
		{
			name: "unknown whitelist",
			mutate: func(h *harness, p *CreateParams) {
				p.Modifier = Modifier{Kind: ModifierWhitelist, WhitelistID: 7}
			},
			want: RevUNKNOWN_WHITELIST,
		},
		{
			name: "contract not enabled",
			mutate: func(h *harness, p *CreateParams) {
				p.Lot.TokenContract = "other"
			},
			want: RevBIDDING_NOT_ALLOWED,
		},
		{
			name: "creation paused",
			mutate: func(h *harness, p *CreateParams) {
				require.NoError(t, h.ledger.SetCreationPaused(testOperator, true))
			},
			want: RevCREATION_PAUSED,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			p := CreateParams{Lot: h.lot()}
			tt.mutate(h, &p)
			_, err := h.create(p)
			require.Error(t, err)
			assert.Equal(t, tt.want, ResultOf(err))
		})
	}
}

func TestCreateAuctionPullsAssetAndListingFee(t *testing.T) {
	h := newHarness()
	lot := h.lot()
	lot.StartingBid = 10000

	id, err := h.create(CreateParams{Lot: lot})
	require.NoError(t, err)

	// Asset is in engine custody, listing fee (4% of the starting bid) is
	// prepaid.
	assert.Equal(t, testEngine, h.bank.holder(testContract, 1))
	assert.Equal(t, amount.Amount(400), h.bank.balance(testEngine))
	assert.Equal(t, amount.Amount(0), h.bank.balance(testSeller))

	snap, err := h.ledger.AuctionInfo(id)
	require.NoError(t, err)
	assert.Equal(t, amount.Amount(10000), snap.Info.StartingBid)
	assert.Equal(t, h.base.Add(time.Hour), snap.WarmupEndTime)

	assert.Equal(t,
		[]EventType{EventBiddingToggled, EventInitialized, EventStartingPriceUpdated},
		h.eventTypes())
}

func TestCreateAuctionUnwindsEscrowOnFeeFailure(t *testing.T) {
	h := newHarness()
	lot := h.lot()
	lot.StartingBid = 10000

	// Seed custody but no listing-fee funds.
	h.bank.setHolder(testContract, 1, testSeller)
	_, err := h.ledger.CreateAuction(testSeller, CreateParams{Lot: lot})
	require.Error(t, err)
	assert.Equal(t, RexTRANSFER_FAILED, ResultOf(err))

	// The pulled asset went back to the seller.
	assert.Equal(t, testSeller, h.bank.holder(testContract, 1))
}

func TestCreateAuctionsStopsAtFirstFailure(t *testing.T) {
	h := newHarness()
	good := CreateParams{Lot: h.lot()}
	bad := CreateParams{Lot: h.lot(), PresetID: 99}
	bad.Lot.TokenID = 2

	h.bank.setHolder(testContract, 1, testSeller)
	h.bank.setHolder(testContract, 2, testSeller)

	ids, err := h.ledger.CreateAuctions(testSeller, []CreateParams{good, bad})
	require.Error(t, err)
	assert.Equal(t, RevUNKNOWN_PRESET, ResultOf(err))
	assert.Equal(t, []uint64{1}, ids)
}

func TestAuctionIDsAreNeverReused(t *testing.T) {
	h := newHarness()
	first := h.mustCreate(CreateParams{Lot: h.lot()})
	require.NoError(t, h.ledger.CancelAuction(testSeller, first))

	second := h.mustCreate(CreateParams{Lot: h.lot()})
	assert.Greater(t, second, first)
}

func TestModifyAuction(t *testing.T) {
	h := newHarness()
	id := h.mustCreate(CreateParams{Lot: h.lot()})

	newStart := h.base.Add(2 * time.Hour)
	newEnd := newStart.Add(12 * time.Hour)
	// Raising the starting bid owes the listing fee the creation skipped.
	h.bank.mint(testSeller, 200)
	require.NoError(t, h.ledger.ModifyAuction(testSeller, id, newStart, newEnd, 5000, 0))

	snap, err := h.ledger.AuctionInfo(id)
	require.NoError(t, err)
	assert.Equal(t, newStart, snap.Info.StartTime)
	assert.Equal(t, newEnd, snap.Info.EndTime)
	assert.Equal(t, amount.Amount(5000), snap.Info.StartingBid)
	// Warmup tracks the new start time.
	assert.Equal(t, newStart.Add(time.Hour), snap.WarmupEndTime)
	assert.Equal(t, amount.Amount(0), h.bank.balance(testSeller))
	assert.Contains(t, h.eventTypes(), EventStartingPriceUpdated)
}

func TestModifyAuctionListingFeeTopUp(t *testing.T) {
	h := newHarness()
	lot := h.lot()
	lot.StartingBid = 5000
	id := h.mustCreate(CreateParams{Lot: lot}) // prepaid 200 at creation

	end := h.base.Add(24 * time.Hour)

	// Raising the starting bid charges only the difference over the prepaid
	// fee. An unfunded seller cannot raise it.
	err := h.ledger.ModifyAuction(testSeller, id, h.base, end, 10000, 0)
	assert.Equal(t, RexTRANSFER_FAILED, ResultOf(err))

	h.bank.mint(testSeller, 200)
	require.NoError(t, h.ledger.ModifyAuction(testSeller, id, h.base, end, 10000, 0))
	assert.Equal(t, amount.Amount(0), h.bank.balance(testSeller))

	// Lowering never refunds; the prepaid credit is settled at claim time.
	require.NoError(t, h.ledger.ModifyAuction(testSeller, id, h.base, end, 5000, 0))
	assert.Equal(t, amount.Amount(0), h.bank.balance(testSeller))

	// The full 400 prepaid so far stays credited against the claim fee: on a
	// 20000 hammer the fee due is 800, so the DAO is owed only the balance.
	require.NoError(t, h.bid(id, "bob", 20000, 0))
	h.clock.Advance(25 * time.Hour)
	require.NoError(t, h.ledger.Claim("bob", id))
	assert.Equal(t, amount.Amount(19600), h.bank.balance(testSeller))
	assert.Equal(t, amount.Amount(400), h.bank.balance(testDAO))
}

func TestModifyAuctionCannotRaiseBuyNow(t *testing.T) {
	h := newHarness()
	lot := h.lot()
	lot.BuyItNowPrice = 50000
	id := h.mustCreate(CreateParams{Lot: lot})

	end := h.base.Add(24 * time.Hour)
	err := h.ledger.ModifyAuction(testSeller, id, h.base, end, 0, 60000)
	assert.Equal(t, RevCAN_ONLY_LOWER_BUY_NOW, ResultOf(err))
	before := len(h.eventTypes())

	require.NoError(t, h.ledger.ModifyAuction(testSeller, id, h.base, end, 0, 40000))
	snap, err := h.ledger.AuctionInfo(id)
	require.NoError(t, err)
	assert.Equal(t, amount.Amount(40000), snap.Info.BuyItNowPrice)
	events := h.eventTypes()
	require.Len(t, events, before+1)
	assert.Equal(t, EventBuyItNowUpdated, events[before])

	// A lot listed without a buy-it-now price cannot gain one afterwards.
	lot2 := h.lot()
	lot2.TokenID = 2
	id2 := h.mustCreate(CreateParams{Lot: lot2})
	err = h.ledger.ModifyAuction(testSeller, id2, h.base, end, 0, 30000)
	assert.Equal(t, RevCAN_ONLY_LOWER_BUY_NOW, ResultOf(err))
}

func TestModifyAuctionEmitsOnlyOnChange(t *testing.T) {
	h := newHarness()
	id := h.mustCreate(CreateParams{Lot: h.lot()})
	before := len(h.eventTypes())

	end := h.base.Add(30 * time.Hour)
	require.NoError(t, h.ledger.ModifyAuction(testSeller, id, h.base, end, 0, 0))

	// Timing-only changes announce no price updates.
	assert.Len(t, h.eventTypes(), before)
}

func TestModifyAuctionGates(t *testing.T) {
	h := newHarness()
	id := h.mustCreate(CreateParams{Lot: h.lot()})

	end := h.base.Add(24 * time.Hour)
	err := h.ledger.ModifyAuction("mallory", id, h.base, end, 0, 0)
	assert.Equal(t, ReaNOT_OWNER, ResultOf(err))

	err = h.ledger.ModifyAuction(testSeller, id, end, end, 0, 0)
	assert.Equal(t, RevINVALID_TIMING, ResultOf(err))

	require.NoError(t, h.bid(id, "bob", 10000, 0))
	err = h.ledger.ModifyAuction(testSeller, id, h.base, end, 0, 0)
	assert.Equal(t, RevAUCTION_HAS_BID, ResultOf(err))
}

func TestCancelAuctionReturnsAsset(t *testing.T) {
	h := newHarness()
	id := h.mustCreate(CreateParams{Lot: h.lot()})

	require.NoError(t, h.ledger.CancelAuction(testSeller, id))
	assert.Equal(t, testSeller, h.bank.holder(testContract, 1))

	snap, err := h.ledger.AuctionInfo(id)
	require.NoError(t, err)
	assert.True(t, snap.Cancelled)

	// Cancellation is terminal.
	err = h.ledger.CancelAuction(testSeller, id)
	assert.Equal(t, RevCANCELLED, ResultOf(err))
	err = h.bid(id, "bob", 10000, 0)
	assert.Equal(t, RevCANCELLED, ResultOf(err))
}

func TestCancelAuctionWithBidFails(t *testing.T) {
	h := newHarness()
	id := h.mustCreate(CreateParams{Lot: h.lot()})
	require.NoError(t, h.bid(id, "bob", 10000, 0))

	err := h.ledger.CancelAuction(testSeller, id)
	assert.Equal(t, RevAUCTION_HAS_BID, ResultOf(err))
}

func TestAdminOperationsRequireOperator(t *testing.T) {
	h := newHarness()

	err := h.ledger.ToggleBiddingAllowed("mallory", testContract)
	assert.Equal(t, ReaNOT_OPERATOR, ResultOf(err))

	err = h.ledger.SetCreationPaused("mallory", true)
	assert.Equal(t, ReaNOT_OPERATOR, ResultOf(err))

	err = h.ledger.EnableContract("mallory", "other")
	assert.Equal(t, ReaNOT_OPERATOR, ResultOf(err))
}

func TestToggleBiddingAllowedBlocksBids(t *testing.T) {
	h := newHarness()
	id := h.mustCreate(CreateParams{Lot: h.lot()})

	require.NoError(t, h.ledger.ToggleBiddingAllowed(testOperator, testContract))
	err := h.bid(id, "bob", 10000, 0)
	assert.Equal(t, RevBIDDING_NOT_ALLOWED, ResultOf(err))

	require.NoError(t, h.ledger.ToggleBiddingAllowed(testOperator, testContract))
	require.NoError(t, h.bid(id, "bob", 10000, 0))
}

func TestToggleBiddingAllowedBlocksBuyNow(t *testing.T) {
	h := newHarness()
	lot := h.lot()
	lot.BuyItNowPrice = 50000
	id := h.mustCreate(CreateParams{Lot: lot})

	// The kill switch covers both ways of winning the lot.
	require.NoError(t, h.ledger.ToggleBiddingAllowed(testOperator, testContract))
	h.bank.mint("carol", 50000)
	err := h.ledger.BuyNow("carol", id)
	assert.Equal(t, RevBIDDING_NOT_ALLOWED, ResultOf(err))

	require.NoError(t, h.ledger.ToggleBiddingAllowed(testOperator, testContract))
	require.NoError(t, h.ledger.BuyNow("carol", id))
	assert.Equal(t, "carol", h.bank.holder(testContract, 1))
}

func TestUnclaimedListsEndedAuctions(t *testing.T) {
	h := newHarness()
	id := h.mustCreate(CreateParams{Lot: h.lot()})

	assert.Empty(t, h.ledger.Unclaimed())

	h.clock.Advance(25 * time.Hour)
	unclaimed := h.ledger.Unclaimed()
	require.Len(t, unclaimed, 1)
	assert.Equal(t, id, unclaimed[0].ID)

	require.NoError(t, h.ledger.Claim(testSeller, id))
	assert.Empty(t, h.ledger.Unclaimed())
}
