package config

import (
	"encoding/hex"
	"fmt"
)

// ValidateConfig checks a loaded configuration for internally inconsistent or
// out-of-range values. It returns the first problem found.
func ValidateConfig(c *Config) error {
	if c.Server.RPCListen == "" {
		return fmt.Errorf("server.rpc_listen cannot be empty")
	}
	if c.Server.EventsListen == "" {
		return fmt.Errorf("server.events_listen cannot be empty")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be positive")
	}

	if c.Auction.Account == "" {
		return fmt.Errorf("auction.account cannot be empty")
	}
	if c.Auction.Operator == "" {
		return fmt.Errorf("auction.operator cannot be empty")
	}
	if c.Auction.FeeBps > 10000 {
		return fmt.Errorf("auction.fee_bps must be at most 10000, got %d", c.Auction.FeeBps)
	}
	if c.Auction.ListingFeeBps > c.Auction.FeeBps {
		return fmt.Errorf("auction.listing_fee_bps (%d) cannot exceed auction.fee_bps (%d)",
			c.Auction.ListingFeeBps, c.Auction.FeeBps)
	}
	if c.Auction.BuyNowThresholdPct == 0 || c.Auction.BuyNowThresholdPct > 100 {
		return fmt.Errorf("auction.buy_now_threshold_pct must be in 1..100, got %d", c.Auction.BuyNowThresholdPct)
	}
	if c.Auction.MinWarmup <= 0 {
		return fmt.Errorf("auction.min_warmup must be positive")
	}
	if c.Auction.DefaultWarmup < c.Auction.MinWarmup {
		return fmt.Errorf("auction.default_warmup (%s) cannot be below auction.min_warmup (%s)",
			c.Auction.DefaultWarmup, c.Auction.MinWarmup)
	}
	if c.Auction.HammerTime <= 0 {
		return fmt.Errorf("auction.hammer_time must be positive")
	}
	if key := c.Auction.BidSigningPubKey; key != "" {
		raw, err := hex.DecodeString(key)
		if err != nil {
			return fmt.Errorf("auction.bid_signing_pubkey is not valid hex: %w", err)
		}
		if len(raw) != 33 {
			return fmt.Errorf("auction.bid_signing_pubkey must be a 33-byte compressed key, got %d bytes", len(raw))
		}
	}

	var shareTotal uint64
	for i, r := range c.Fees.Recipients {
		if r.Address == "" {
			return fmt.Errorf("fees.recipients[%d].address cannot be empty", i)
		}
		if r.ShareBps == 0 {
			return fmt.Errorf("fees.recipients[%d].share_bps must be positive", i)
		}
		shareTotal += r.ShareBps
	}
	if len(c.Fees.Recipients) > 0 && shareTotal != 10000 {
		return fmt.Errorf("fees.recipients shares must sum to 10000 bps, got %d", shareTotal)
	}

	if c.Swap.Enabled && c.Swap.Venue == "" {
		return fmt.Errorf("swap.venue cannot be empty when swap.enabled is true")
	}

	switch c.Storage.Backend {
	case "pebble":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path cannot be empty for the pebble backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage.backend %q (supported: pebble, memory)", c.Storage.Backend)
	}
	if c.Storage.CacheSize <= 0 {
		return fmt.Errorf("storage.cache_size must be positive")
	}

	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log.level %q", c.Log.Level)
	}

	return nil
}
