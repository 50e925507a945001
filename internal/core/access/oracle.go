// Package access implements the modifier gate applied to bids: open lots,
// in-game-only lots, and whitelist-gated lots. The auction engine consumes
// whitelist membership strictly as a boolean oracle; list management is an
// operator concern.
package access

import (
	"sync"

	"github.com/gbmlabs/gbmd/internal/core/auction"
)

// Oracle answers modifier checks against an in-memory whitelist set.
type Oracle struct {
	mu         sync.RWMutex
	nextListID uint64
	whitelists map[uint64]map[string]struct{}
}

var _ auction.AccessOracle = (*Oracle)(nil)

func NewOracle() *Oracle {
	return &Oracle{
		nextListID: 1,
		whitelists: make(map[uint64]map[string]struct{}),
	}
}

// CreateWhitelist registers a new list seeded with members and returns its id.
func (o *Oracle) CreateWhitelist(members ...string) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextListID
	o.nextListID++
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	o.whitelists[id] = set
	return id
}

// AddMembers inserts actors into an existing list.
func (o *Oracle) AddMembers(id uint64, members ...string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	set, ok := o.whitelists[id]
	if !ok {
		return false
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
	return true
}

// RemoveMembers deletes actors from an existing list.
func (o *Oracle) RemoveMembers(id uint64, members ...string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	set, ok := o.whitelists[id]
	if !ok {
		return false
	}
	for _, m := range members {
		delete(set, m)
	}
	return true
}

// WhitelistExists reports whether id refers to a known list.
func (o *Oracle) WhitelistExists(id uint64) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.whitelists[id]
	return ok
}

// IsPermitted answers whether actor may bid on a lot with the given modifier.
func (o *Oracle) IsPermitted(mod auction.Modifier, actor string, proof auction.AccessProof) bool {
	switch mod.Kind {
	case auction.ModifierNone:
		return true
	case auction.ModifierInGameOnly:
		return proof.InGame
	case auction.ModifierWhitelist:
		o.mu.RLock()
		defer o.mu.RUnlock()
		set, ok := o.whitelists[mod.WhitelistID]
		if !ok {
			return false
		}
		_, member := set[actor]
		return member
	default:
		return false
	}
}
