package auction

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gbmlabs/gbmd/internal/core/amount"
	"github.com/gbmlabs/gbmd/internal/core/fees"
)

// Params holds the engine tunables. Values come from configuration; defaults
// match the production deployment.
type Params struct {
	// Account is the engine's own address on the payment ledger. Escrowed
	// bids and collected fees sit here until settlement.
	Account string

	// Operator may force-close stuck auctions and toggle administrative
	// switches.
	Operator string

	// FeeBps is the protocol fee charged on the winning amount.
	FeeBps int64

	// ListingFeeBps is the fee prepaid by the seller on a non-zero starting
	// bid at creation, credited back against the protocol fee at settlement.
	ListingFeeBps int64

	// BuyNowThresholdPct: buy-now stays available while
	// highestBid <= buyItNowPrice * pct / 100. Evaluated live.
	BuyNowThresholdPct uint64

	// HammerTime is both the trailing window that triggers an anti-snipe
	// extension and the duration the deadline is pushed to.
	HammerTime time.Duration

	// DefaultWarmup is the warmup duration applied when the seller does not
	// request one. MinWarmup bounds requested durations from below.
	DefaultWarmup time.Duration
	MinWarmup     time.Duration

	// FeeRecipients receive the protocol fee, split by share.
	FeeRecipients []fees.Recipient
}

// Ledger owns the set of auction records and serializes every externally
// observable mutation per auction. External calls capable of reentering the
// engine happen while the target auction's exclusion flag is set, so an inner
// call fails without mutating state.
type Ledger struct {
	mu       sync.Mutex
	auctions map[uint64]*Auction
	nextID   uint64

	biddingAllowed map[string]bool
	creationPaused bool

	params     Params
	presets    *PresetRegistry
	payment    PaymentLedger
	escrow     AssetEscrow
	access     AccessOracle
	authorizer BidAuthorizer
	store      *Store
	hooks      Hooks
	log        zerolog.Logger
	now        func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithHooks installs event hooks.
func WithHooks(h Hooks) Option {
	return func(l *Ledger) { l.hooks = h }
}

// WithLogger sets the structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithAuthorizer installs a bid authorizer. Default is no authorization.
func WithAuthorizer(a BidAuthorizer) Option {
	return func(l *Ledger) { l.authorizer = a }
}

// WithStore attaches persistent storage. Live auctions are loaded immediately
// and every committed mutation is written back.
func WithStore(s *Store) Option {
	return func(l *Ledger) { l.store = s }
}

// NewLedger creates an auction ledger.
func NewLedger(params Params, presets *PresetRegistry, payment PaymentLedger, escrow AssetEscrow, access AccessOracle, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		auctions:       make(map[uint64]*Auction),
		nextID:         1,
		biddingAllowed: make(map[string]bool),
		params:         params,
		presets:        presets,
		payment:        payment,
		escrow:         escrow,
		access:         access,
		log:            zerolog.Nop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.store != nil {
		if err := l.restore(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// CreateParams carries the seller's creation request.
type CreateParams struct {
	Lot      LotInfo
	PresetID uint64
	Modifier Modifier

	// WarmupDuration of zero selects the configured default.
	WarmupDuration time.Duration
}

// CreateAuction opens a new lot. The asset is pulled into escrow; a non-zero
// starting bid is charged a prepaid listing fee. Returns a fresh monotonic id,
// never reused even after cancellation.
func (l *Ledger) CreateAuction(caller string, p CreateParams) (uint64, error) {
	l.mu.Lock()
	if l.creationPaused {
		l.mu.Unlock()
		return 0, errResult(RevCREATION_PAUSED)
	}
	if !l.biddingAllowed[p.Lot.TokenContract] {
		l.mu.Unlock()
		return 0, errResult(RevBIDDING_NOT_ALLOWED)
	}
	l.mu.Unlock()

	if p.Lot.TokenKind != TokenFungible && p.Lot.TokenKind != TokenNonFungible {
		return 0, errResult(RevBAD_AMOUNT)
	}
	if p.Lot.TokenKind == TokenNonFungible && p.Lot.TokenAmount != 1 {
		return 0, errResult(RevBAD_AMOUNT)
	}
	if p.Lot.TokenKind == TokenFungible && p.Lot.TokenAmount == 0 {
		return 0, errResult(RevBAD_AMOUNT)
	}
	if !p.Lot.EndTime.After(p.Lot.StartTime) {
		return 0, errResult(RevINVALID_TIMING)
	}

	preset, ok := l.presets.Get(p.PresetID)
	if !ok {
		return 0, errResult(RevUNKNOWN_PRESET)
	}
	if p.Modifier.Kind == ModifierWhitelist && !l.access.WhitelistExists(p.Modifier.WhitelistID) {
		return 0, errResult(RevUNKNOWN_WHITELIST)
	}

	warmup := p.WarmupDuration
	if warmup == 0 {
		warmup = l.params.DefaultWarmup
	} else if warmup < l.params.MinWarmup {
		return 0, errResult(RevWARMUP_TOO_SHORT)
	}

	// Pull the lot into escrow before any record exists. A failed pull leaves
	// no trace.
	if err := l.escrow.Pull(p.Lot.TokenContract, p.Lot.TokenKind, p.Lot.TokenID, p.Lot.TokenAmount, caller); err != nil {
		return 0, errResultCause(RexESCROW_FAILED, err)
	}

	var prepaid amount.Amount
	if !p.Lot.StartingBid.IsZero() {
		prepaid = fees.PercentOf(p.Lot.StartingBid, l.params.ListingFeeBps)
		if err := l.safeTransferFrom(caller, l.params.Account, prepaid); err != nil {
			// Unwind the escrow pull so asset and payment records agree.
			l.pushBack(p.Lot, caller)
			return 0, err
		}
	}

	lot := p.Lot
	lot.Owner = caller

	l.mu.Lock()
	id := l.nextID
	l.nextID++
	a := &Auction{
		ID:            id,
		Info:          lot,
		Preset:        preset,
		Modifier:      p.Modifier,
		WarmupEndTime: lot.StartTime.Add(warmup),
		PrepaidFee:    prepaid,
	}
	l.auctions[id] = a
	l.persist(a)
	l.mu.Unlock()

	l.emit(EventInitialized, id, caller, 0)
	if !lot.StartingBid.IsZero() {
		l.emit(EventStartingPriceUpdated, id, caller, lot.StartingBid)
	}
	if !lot.BuyItNowPrice.IsZero() {
		l.emit(EventBuyItNowUpdated, id, caller, lot.BuyItNowPrice)
	}
	return id, nil
}

// CreateAuctions opens several lots in one call. Creation stops at the first
// failure; already created ids are returned alongside the error.
func (l *Ledger) CreateAuctions(caller string, batch []CreateParams) ([]uint64, error) {
	ids := make([]uint64, 0, len(batch))
	for _, p := range batch {
		id, err := l.CreateAuction(caller, p)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ModifyAuction updates timing and pricing of a lot that has no bid yet.
func (l *Ledger) ModifyAuction(caller string, id uint64, startTime, endTime time.Time, startingBid, buyItNowPrice amount.Amount) error {
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
	if !a.HighestBid.IsZero() {
		return errResult(RevAUCTION_HAS_BID)
	}
	if !endTime.After(startTime) {
		return errResult(RevINVALID_TIMING)
	}
	// The buy-it-now price only ever goes down once listed.
	if buyItNowPrice > a.Info.BuyItNowPrice {
		return errResult(RevCAN_ONLY_LOWER_BUY_NOW)
	}

	// A starting bid raised after creation owes the same listing fee a fresh
	// listing would, less whatever was already prepaid.
	prepaidDue := fees.PercentOf(startingBid, l.params.ListingFeeBps)
	if prepaidDue > a.PrepaidFee {
		if err := l.safeTransferFrom(caller, l.params.Account, prepaidDue.Sub(a.PrepaidFee)); err != nil {
			return err
		}
	}

	warmup := a.WarmupEndTime.Sub(a.Info.StartTime)
	prevStarting := a.Info.StartingBid
	prevBuyNow := a.Info.BuyItNowPrice

	l.mu.Lock()
	a.Info.StartTime = startTime
	a.Info.EndTime = endTime
	a.Info.StartingBid = startingBid
	a.Info.BuyItNowPrice = buyItNowPrice
	if prepaidDue > a.PrepaidFee {
		a.PrepaidFee = prepaidDue
	}
	a.WarmupEndTime = startTime.Add(warmup)
	l.persist(a)
	l.mu.Unlock()

	if startingBid != prevStarting && !startingBid.IsZero() {
		l.emit(EventStartingPriceUpdated, id, caller, startingBid)
	}
	if buyItNowPrice != prevBuyNow {
		l.emit(EventBuyItNowUpdated, id, caller, buyItNowPrice)
	}
	return nil
}

// CancelAuction cancels a lot that has no bid, returning the escrowed asset to
// the owner. Cancellation is terminal.
func (l *Ledger) CancelAuction(caller string, id uint64) error {
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
	if !a.HighestBid.IsZero() {
		return errResult(RevAUCTION_HAS_BID)
	}

	if err := l.escrow.Push(a.Info.TokenContract, a.Info.TokenKind, a.Info.TokenID, a.Info.TokenAmount, a.Info.Owner); err != nil {
		return errResultCause(RexESCROW_FAILED, err)
	}

	l.mu.Lock()
	a.Cancelled = true
	l.persist(a)
	l.mu.Unlock()

	l.emit(EventCancelled, id, caller, 0)
	return nil
}

// EnableContract allows listing and bidding for an asset contract.
func (l *Ledger) EnableContract(caller, contract string) error {
	return l.setBiddingAllowed(caller, contract, true)
}

// ToggleBiddingAllowed flips the per-contract kill switch.
func (l *Ledger) ToggleBiddingAllowed(caller, contract string) error {
	l.mu.Lock()
	cur := l.biddingAllowed[contract]
	l.mu.Unlock()
	return l.setBiddingAllowed(caller, contract, !cur)
}

func (l *Ledger) setBiddingAllowed(caller, contract string, allowed bool) error {
	if caller != l.params.Operator {
		return errResult(ReaNOT_OPERATOR)
	}
	l.mu.Lock()
	l.biddingAllowed[contract] = allowed
	l.mu.Unlock()
	l.emit(EventBiddingToggled, 0, caller, 0)
	return nil
}

// SetCreationPaused toggles the global pause on new lots.
func (l *Ledger) SetCreationPaused(caller string, paused bool) error {
	if caller != l.params.Operator {
		return errResult(ReaNOT_OPERATOR)
	}
	l.mu.Lock()
	l.creationPaused = paused
	l.mu.Unlock()
	return nil
}

// AuctionInfo returns a snapshot of the auction's state.
func (l *Ledger) AuctionInfo(id uint64) (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.auctions[id]
	if !ok {
		return Snapshot{}, errResult(RevNO_AUCTION)
	}
	return a.snapshot(), nil
}

// HighestBid returns the current highest bid, for optimistic-concurrency bid
// submission.
func (l *Ledger) HighestBid(id uint64) (amount.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.auctions[id]
	if !ok {
		return 0, errResult(RevNO_AUCTION)
	}
	return a.HighestBid, nil
}

// WarmupEndTime returns the auction's current warmup deadline.
func (l *Ledger) WarmupEndTime(id uint64) (time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.auctions[id]
	if !ok {
		return time.Time{}, errResult(RevNO_AUCTION)
	}
	return a.WarmupEndTime, nil
}

// Unclaimed lists snapshots of auctions past their end time that are neither
// claimed nor cancelled.
func (l *Ledger) Unclaimed() []Snapshot {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Snapshot
	for _, a := range l.auctions {
		if !a.terminal() && now.After(a.Info.EndTime) {
			out = append(out, a.snapshot())
		}
	}
	return out
}

// acquire looks up the auction and takes its exclusion flag. The flag stays
// set until release, covering every external call the operation makes, so a
// reentrant or concurrent operation observes RecAUCTION_BUSY instead of
// interleaving.
func (l *Ledger) acquire(id uint64) (*Auction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.auctions[id]
	if !ok {
		return nil, errResult(RevNO_AUCTION)
	}
	if a.busy {
		return nil, errResult(RecAUCTION_BUSY)
	}
	a.busy = true
	return a, nil
}

func (l *Ledger) release(a *Auction) {
	l.mu.Lock()
	a.busy = false
	l.mu.Unlock()
}

func (l *Ledger) terminalError(a *Auction) error {
	if a.Cancelled {
		return errResult(RevCANCELLED)
	}
	return errResult(RevALREADY_CLAIMED)
}

// pushBack best-effort returns a just-pulled lot during creation unwind.
func (l *Ledger) pushBack(lot LotInfo, to string) {
	if err := l.escrow.Push(lot.TokenContract, lot.TokenKind, lot.TokenID, lot.TokenAmount, to); err != nil {
		l.log.Error().Err(err).
			Str("contract", lot.TokenContract).
			Uint64("token", lot.TokenID).
			Msg("escrow unwind failed")
	}
}

// persist writes the record through the attached store. Callers hold l.mu.
func (l *Ledger) persist(a *Auction) {
	if l.store == nil {
		return
	}
	if err := l.store.Save(a); err != nil {
		l.log.Error().Err(err).Uint64("auction", a.ID).Msg("persist failed")
	}
}

// restore loads persisted auctions at startup.
func (l *Ledger) restore() error {
	auctions, nextID, err := l.store.LoadAll()
	if err != nil {
		return errResultCause(RefSTORE_FAILED, err)
	}
	for _, a := range auctions {
		l.auctions[a.ID] = a
	}
	if nextID > l.nextID {
		l.nextID = nextID
	}
	return nil
}
