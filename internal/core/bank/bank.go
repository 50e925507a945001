// Package bank provides an in-process payment ledger and asset custody
// backend. It implements the engine's external-ledger interfaces for
// standalone deployments, where no real token ledger sits behind the daemon.
package bank

import (
	"fmt"
	"sync"
	"time"

	"github.com/gbmlabs/gbmd/internal/core/amount"
	"github.com/gbmlabs/gbmd/internal/core/auction"
)

// Bank is a thread-safe token ledger with allowance semantics plus custody
// tracking for auctioned lots.
type Bank struct {
	mu sync.Mutex

	// engine is the account Transfer pushes from.
	engine string

	balances   map[string]amount.Amount
	allowances map[string]map[string]amount.Amount // owner -> spender -> amt

	// holdings: contract -> tokenID -> holder. Fungible lots aggregate under
	// tokenID with per-holder amounts.
	nftHolder map[string]map[uint64]string
	ftBalance map[string]map[uint64]map[string]uint64
}

// New creates a bank whose Transfer operations debit the given engine
// account.
func New(engineAccount string) *Bank {
	return &Bank{
		engine:     engineAccount,
		balances:   make(map[string]amount.Amount),
		allowances: make(map[string]map[string]amount.Amount),
		nftHolder:  make(map[string]map[uint64]string),
		ftBalance:  make(map[string]map[uint64]map[string]uint64),
	}
}

// Mint credits addr with amt of the payment token.
func (b *Bank) Mint(addr string, amt amount.Amount) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[addr] = b.balances[addr].Add(amt)
}

// Approve lets spender pull up to amt from owner.
func (b *Bank) Approve(owner, spender string, amt amount.Amount) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.allowances[owner]
	if m == nil {
		m = make(map[string]amount.Amount)
		b.allowances[owner] = m
	}
	m[spender] = amt
}

// BalanceOf implements auction.PaymentLedger.
func (b *Bank) BalanceOf(addr string) (amount.Amount, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[addr], nil
}

// TransferFrom implements auction.PaymentLedger. The spender is always the
// engine account.
func (b *Bank) TransferFrom(from, to string, amt amount.Amount) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	allowed := b.allowances[from][b.engine]
	if allowed < amt {
		return false, fmt.Errorf("allowance %s below transfer %s", allowed, amt)
	}
	if b.balances[from] < amt {
		return false, fmt.Errorf("balance %s below transfer %s", b.balances[from], amt)
	}
	b.allowances[from][b.engine] = allowed.Sub(amt)
	b.balances[from] = b.balances[from].Sub(amt)
	b.balances[to] = b.balances[to].Add(amt)
	return true, nil
}

// Transfer implements auction.PaymentLedger, pushing from the engine account.
func (b *Bank) Transfer(to string, amt amount.Amount) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.balances[b.engine] < amt {
		return false, fmt.Errorf("engine balance %s below transfer %s", b.balances[b.engine], amt)
	}
	b.balances[b.engine] = b.balances[b.engine].Sub(amt)
	b.balances[to] = b.balances[to].Add(amt)
	return true, nil
}

// MintAsset assigns custody of a lot to holder.
func (b *Bank) MintAsset(contract string, kind auction.TokenKind, tokenID, tokenAmount uint64, holder string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.creditAsset(contract, kind, tokenID, tokenAmount, holder)
}

// Pull implements auction.AssetEscrow: custody moves from `from` to the
// engine.
func (b *Bank) Pull(contract string, kind auction.TokenKind, tokenID, tokenAmount uint64, from string) error {
	return b.moveAsset(contract, kind, tokenID, tokenAmount, from, b.engine)
}

// Push implements auction.AssetEscrow: custody moves from the engine to `to`.
func (b *Bank) Push(contract string, kind auction.TokenKind, tokenID, tokenAmount uint64, to string) error {
	return b.moveAsset(contract, kind, tokenID, tokenAmount, b.engine, to)
}

// Swap implements auction.SwapAdapter with a fixed 1:1 rate: amountIn of any
// input token mints the same amount of payment token to the recipient. The
// standalone bank has no real venue behind it.
func (b *Bank) Swap(tokenIn string, amountIn, minOut amount.Amount, deadline time.Time, recipient string) (amount.Amount, error) {
	if amountIn < minOut {
		return 0, fmt.Errorf("swap output %s below minimum %s", amountIn, minOut)
	}
	b.Mint(recipient, amountIn)
	return amountIn, nil
}

// Holder reports who currently holds a non-fungible lot.
func (b *Bank) Holder(contract string, tokenID uint64) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nftHolder[contract][tokenID]
}

// FungibleBalance reports holder's amount of a fungible lot.
func (b *Bank) FungibleBalance(contract string, tokenID uint64, holder string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ftBalance[contract][tokenID][holder]
}

func (b *Bank) moveAsset(contract string, kind auction.TokenKind, tokenID, tokenAmount uint64, from, to string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch kind {
	case auction.TokenNonFungible:
		holders := b.nftHolder[contract]
		if holders == nil || holders[tokenID] != from {
			return fmt.Errorf("%s does not hold token %d of %s", from, tokenID, contract)
		}
		holders[tokenID] = to
	case auction.TokenFungible:
		have := b.ftBalance[contract][tokenID][from]
		if have < tokenAmount {
			return fmt.Errorf("%s holds %d of token %d, need %d", from, have, tokenID, tokenAmount)
		}
		b.ftBalance[contract][tokenID][from] = have - tokenAmount
		b.creditAsset(contract, kind, tokenID, tokenAmount, to)
	default:
		return fmt.Errorf("unknown token kind %d", kind)
	}
	return nil
}

func (b *Bank) creditAsset(contract string, kind auction.TokenKind, tokenID, tokenAmount uint64, holder string) {
	switch kind {
	case auction.TokenNonFungible:
		if b.nftHolder[contract] == nil {
			b.nftHolder[contract] = make(map[uint64]string)
		}
		b.nftHolder[contract][tokenID] = holder
	case auction.TokenFungible:
		if b.ftBalance[contract] == nil {
			b.ftBalance[contract] = make(map[uint64]map[string]uint64)
		}
		if b.ftBalance[contract][tokenID] == nil {
			b.ftBalance[contract][tokenID] = make(map[string]uint64)
		}
		b.ftBalance[contract][tokenID][holder] += tokenAmount
	}
}
