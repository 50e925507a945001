package auction

import (
	"fmt"
	"sync"
	"time"

	"github.com/gbmlabs/gbmd/internal/core/amount"
	"github.com/gbmlabs/gbmd/internal/core/fees"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// fakeBank implements PaymentLedger and AssetEscrow with programmable
// failure modes.
type fakeBank struct {
	mu       sync.Mutex
	engine   string
	balances map[string]amount.Amount
	holders  map[string]string // contract/tokenID -> holder

	// failPushTo makes Transfer to these addresses report an error.
	failPushTo map[string]bool
	// liePushTo makes Transfer report success without moving funds.
	liePushTo map[string]bool
	// failPull makes TransferFrom fail for these senders.
	failPull map[string]bool
	// failEscrowPush makes Push fail for these recipients.
	failEscrowPush map[string]bool
}

func newFakeBank(engine string) *fakeBank {
	return &fakeBank{
		engine:         engine,
		balances:       make(map[string]amount.Amount),
		holders:        make(map[string]string),
		failPushTo:     make(map[string]bool),
		liePushTo:      make(map[string]bool),
		failPull:       make(map[string]bool),
		failEscrowPush: make(map[string]bool),
	}
}

func (b *fakeBank) mint(addr string, amt amount.Amount) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[addr] = b.balances[addr].Add(amt)
}

func (b *fakeBank) balance(addr string) amount.Amount {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[addr]
}

func (b *fakeBank) BalanceOf(addr string) (amount.Amount, error) {
	return b.balance(addr), nil
}

func (b *fakeBank) TransferFrom(from, to string, amt amount.Amount) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failPull[from] {
		return false, fmt.Errorf("pull from %s refused", from)
	}
	if b.balances[from] < amt {
		return false, fmt.Errorf("balance %s below transfer %s", b.balances[from], amt)
	}
	b.balances[from] = b.balances[from].Sub(amt)
	b.balances[to] = b.balances[to].Add(amt)
	return true, nil
}

func (b *fakeBank) Transfer(to string, amt amount.Amount) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failPushTo[to] {
		return false, fmt.Errorf("push to %s refused", to)
	}
	if b.liePushTo[to] {
		return true, nil
	}
	if b.balances[b.engine] < amt {
		return false, fmt.Errorf("engine balance %s below transfer %s", b.balances[b.engine], amt)
	}
	b.balances[b.engine] = b.balances[b.engine].Sub(amt)
	b.balances[to] = b.balances[to].Add(amt)
	return true, nil
}

func assetKey(contract string, tokenID uint64) string {
	return fmt.Sprintf("%s/%d", contract, tokenID)
}

func (b *fakeBank) setHolder(contract string, tokenID uint64, holder string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.holders[assetKey(contract, tokenID)] = holder
}

func (b *fakeBank) holder(contract string, tokenID uint64) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.holders[assetKey(contract, tokenID)]
}

func (b *fakeBank) Pull(contract string, kind TokenKind, tokenID, tokenAmount uint64, from string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := assetKey(contract, tokenID)
	if b.holders[key] != from {
		return fmt.Errorf("%s does not hold %s", from, key)
	}
	b.holders[key] = b.engine
	return nil
}

func (b *fakeBank) Push(contract string, kind TokenKind, tokenID, tokenAmount uint64, to string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failEscrowPush[to] {
		return fmt.Errorf("escrow push to %s refused", to)
	}
	key := assetKey(contract, tokenID)
	if b.holders[key] != b.engine {
		return fmt.Errorf("engine does not hold %s", key)
	}
	b.holders[key] = to
	return nil
}

// fakeAccess is an AccessOracle with a configurable whitelist.
type fakeAccess struct {
	whitelists map[uint64]map[string]bool
}

func newFakeAccess() *fakeAccess {
	return &fakeAccess{whitelists: make(map[uint64]map[string]bool)}
}

func (f *fakeAccess) addWhitelist(id uint64, members ...string) {
	m := make(map[string]bool, len(members))
	for _, member := range members {
		m[member] = true
	}
	f.whitelists[id] = m
}

func (f *fakeAccess) WhitelistExists(id uint64) bool {
	_, ok := f.whitelists[id]
	return ok
}

func (f *fakeAccess) IsPermitted(mod Modifier, actor string, proof AccessProof) bool {
	switch mod.Kind {
	case ModifierNone:
		return true
	case ModifierInGameOnly:
		return proof.InGame
	case ModifierWhitelist:
		return f.whitelists[mod.WhitelistID][actor]
	default:
		return false
	}
}

const (
	testEngine   = "engine"
	testOperator = "operator"
	testSeller   = "alice"
	testContract = "lots"
	testDAO      = "dao"
)

type harness struct {
	ledger *Ledger
	bank   *fakeBank
	access *fakeAccess
	clock  *fakeClock
	events []Event
	base   time.Time
}

func newHarness(opts ...Option) *harness {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := &harness{
		bank:   newFakeBank(testEngine),
		access: newFakeAccess(),
		clock:  newFakeClock(base),
		base:   base,
	}

	params := Params{
		Account:            testEngine,
		Operator:           testOperator,
		FeeBps:             400,
		ListingFeeBps:      400,
		BuyNowThresholdPct: 70,
		HammerTime:         5 * time.Minute,
		DefaultWarmup:      time.Hour,
		MinWarmup:          5 * time.Minute,
		FeeRecipients:      []fees.Recipient{{Address: testDAO, ShareBps: 10000}},
	}

	all := append([]Option{
		WithClock(h.clock.Now),
		WithHooks(Hooks{OnEvent: func(ev Event) { h.events = append(h.events, ev) }}),
	}, opts...)

	ledger, err := NewLedger(params, NewPresetRegistry(), h.bank, h.bank, h.access, all...)
	if err != nil {
		panic(err)
	}
	h.ledger = ledger

	if err := ledger.EnableContract(testOperator, testContract); err != nil {
		panic(err)
	}
	return h
}

// lot returns a default non-fungible lot owned by the seller, running from
// now for 24 hours.
func (h *harness) lot() LotInfo {
	return LotInfo{
		Owner:         testSeller,
		TokenContract: testContract,
		TokenKind:     TokenNonFungible,
		TokenID:       1,
		TokenAmount:   1,
		StartTime:     h.clock.Now(),
		EndTime:       h.clock.Now().Add(24 * time.Hour),
	}
}

// create opens an auction for the given lot, seeding asset custody and the
// seller's listing-fee budget.
func (h *harness) create(p CreateParams) (uint64, error) {
	h.bank.setHolder(p.Lot.TokenContract, p.Lot.TokenID, testSeller)
	if !p.Lot.StartingBid.IsZero() {
		h.bank.mint(testSeller, fees.PercentOf(p.Lot.StartingBid, 400))
	}
	return h.ledger.CreateAuction(testSeller, p)
}

// mustCreate is create with a panic on error for tests not about creation.
func (h *harness) mustCreate(p CreateParams) uint64 {
	id, err := h.create(p)
	if err != nil {
		panic(err)
	}
	return id
}

// bid funds the bidder and submits a plain bid on the default lot.
func (h *harness) bid(id uint64, bidder string, amt, expected amount.Amount) error {
	h.bank.mint(bidder, amt)
	return h.ledger.CommitBid(bidder, BidParams{
		AuctionID:          id,
		BidAmount:          amt,
		ExpectedHighestBid: expected,
		TokenContract:      testContract,
		TokenID:            1,
		TokenAmount:        1,
	})
}

func (h *harness) eventTypes() []EventType {
	types := make([]EventType, len(h.events))
	for i, ev := range h.events {
		types[i] = ev.Type
	}
	return types
}
