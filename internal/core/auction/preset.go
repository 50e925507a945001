package auction

import (
	"sync"

	"github.com/gbmlabs/gbmd/internal/core/amount"
)

// Built-in preset ids, in increasing order of bidding aggressiveness.
const (
	PresetLow    uint64 = 0
	PresetMedium uint64 = 1
	PresetHigh   uint64 = 2
)

// PresetRegistry stores named increment-curve parameter sets. Lookups return
// copies; nothing in the registry is mutated during bidding.
type PresetRegistry struct {
	mu      sync.RWMutex
	presets map[uint64]Preset
}

// NewPresetRegistry returns a registry seeded with the production low, medium
// and high presets.
func NewPresetRegistry() *PresetRegistry {
	return &PresetRegistry{
		presets: map[uint64]Preset{
			PresetLow:    {IncMin: 500, IncMax: 2000, BidMultiplier: 500, StepMin: 1000, BidDecimals: 100000},
			PresetMedium: {IncMin: 500, IncMax: 5000, BidMultiplier: 4970, StepMin: 5000, BidDecimals: 100000},
			PresetHigh:   {IncMin: 1000, IncMax: 10000, BidMultiplier: 11000, StepMin: 10000, BidDecimals: 100000},
		},
	}
}

// Set installs or replaces a preset. Live auctions are unaffected; they hold
// copies taken at creation.
func (r *PresetRegistry) Set(id uint64, p Preset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presets[id] = p
}

// Get returns a copy of the preset for id.
func (r *PresetRegistry) Get(id uint64) (Preset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.presets[id]
	return p, ok
}

// MinIncrement returns the minimum amount by which a new bid must exceed the
// current highest bid. The increment scales with the current bid
// (highestBid * bidMultiplier / bidDecimals), clamped into [incMin, incMax],
// with an absolute floor of stepMin. Cheap lots get small absolute increments,
// expensive lots proportionally larger ones, so repeatedly bidding the legal
// minimum is never profitable at any price level.
func MinIncrement(highestBid amount.Amount, p Preset) amount.Amount {
	inc := highestBid.MulDiv(p.BidMultiplier, p.BidDecimals)
	inc = inc.Clamp(p.IncMin, p.IncMax)
	return amount.Max(inc, p.StepMin)
}

// AccruedIncentive computes the rebate a leader earns at acceptance time,
// payable when they are later outbid. It follows the same curve as the
// minimum increment; the payout is additionally capped at the increment the
// leader is eventually outbid by.
func AccruedIncentive(bid amount.Amount, p Preset) amount.Amount {
	inc := bid.MulDiv(p.BidMultiplier, p.BidDecimals)
	return inc.Clamp(p.IncMin, p.IncMax)
}
