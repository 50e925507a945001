// Package config loads and validates the gbmd configuration from defaults,
// a TOML file, and GBMD_-prefixed environment variables, in that priority
// order.
package config

import "time"

// Config is the complete gbmd configuration. It mirrors gbmd.toml.
type Config struct {
	Server  ServerConfig  `toml:"server" mapstructure:"server"`
	Auction AuctionConfig `toml:"auction" mapstructure:"auction"`
	Fees    FeesConfig    `toml:"fees" mapstructure:"fees"`
	Swap    SwapConfig    `toml:"swap" mapstructure:"swap"`
	Storage StorageConfig `toml:"storage" mapstructure:"storage"`
	Log     LogConfig     `toml:"log" mapstructure:"log"`

	configPath string `toml:"-" mapstructure:"-"`
}

// ServerConfig covers the RPC and event-stream listeners.
type ServerConfig struct {
	RPCListen      string        `toml:"rpc_listen" mapstructure:"rpc_listen"`
	EventsListen   string        `toml:"events_listen" mapstructure:"events_listen"`
	RequestTimeout time.Duration `toml:"request_timeout" mapstructure:"request_timeout"`
}

// AuctionConfig covers engine parameters.
type AuctionConfig struct {
	// Account is the engine's own payment account holding escrowed bids.
	Account string `toml:"account" mapstructure:"account"`

	// Operator may run admin operations and force-close auctions.
	Operator string `toml:"operator" mapstructure:"operator"`

	FeeBps             uint64        `toml:"fee_bps" mapstructure:"fee_bps"`
	ListingFeeBps      uint64        `toml:"listing_fee_bps" mapstructure:"listing_fee_bps"`
	BuyNowThresholdPct uint64        `toml:"buy_now_threshold_pct" mapstructure:"buy_now_threshold_pct"`
	HammerTime         time.Duration `toml:"hammer_time" mapstructure:"hammer_time"`
	DefaultWarmup      time.Duration `toml:"default_warmup" mapstructure:"default_warmup"`
	MinWarmup          time.Duration `toml:"min_warmup" mapstructure:"min_warmup"`

	// BidSigningPubKey enables signed-bid authorization when non-empty
	// (hex-encoded compressed secp256k1 public key).
	BidSigningPubKey string `toml:"bid_signing_pubkey" mapstructure:"bid_signing_pubkey"`
}

// FeeRecipientConfig is one protocol-fee recipient with its share in basis
// points of the collected fee.
type FeeRecipientConfig struct {
	Address  string `toml:"address" mapstructure:"address"`
	ShareBps uint64 `toml:"share_bps" mapstructure:"share_bps"`
}

// FeesConfig covers protocol fee distribution.
type FeesConfig struct {
	Recipients []FeeRecipientConfig `toml:"recipients" mapstructure:"recipients"`
}

// SwapConfig covers the swap-then-bid composition guard.
type SwapConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Venue   string `toml:"venue" mapstructure:"venue"`
}

// StorageConfig covers the persistence backend.
type StorageConfig struct {
	// Backend is "pebble" or "memory".
	Backend string `toml:"backend" mapstructure:"backend"`
	Path    string `toml:"path" mapstructure:"path"`

	// CacheSize is the in-memory auction cache capacity.
	CacheSize int `toml:"cache_size" mapstructure:"cache_size"`
}

// LogConfig covers structured logging output.
type LogConfig struct {
	Level  string `toml:"level" mapstructure:"level"`
	Pretty bool   `toml:"pretty" mapstructure:"pretty"`
}

// Path returns the file the configuration was loaded from, if any.
func (c *Config) Path() string { return c.configPath }
