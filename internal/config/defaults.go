package config

import "github.com/spf13/viper"

// setDefaults registers default values for every setting.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.rpc_listen", "127.0.0.1:5005")
	v.SetDefault("server.events_listen", "127.0.0.1:6006")
	v.SetDefault("server.request_timeout", "30s")

	// Auction defaults
	v.SetDefault("auction.account", "")
	v.SetDefault("auction.operator", "")
	v.SetDefault("auction.fee_bps", 400)
	v.SetDefault("auction.listing_fee_bps", 400)
	v.SetDefault("auction.buy_now_threshold_pct", 70)
	v.SetDefault("auction.hammer_time", "5m")
	v.SetDefault("auction.default_warmup", "1h")
	v.SetDefault("auction.min_warmup", "5m")
	v.SetDefault("auction.bid_signing_pubkey", "")

	// Swap defaults
	v.SetDefault("swap.enabled", false)
	v.SetDefault("swap.venue", "")

	// Storage defaults
	v.SetDefault("storage.backend", "pebble")
	v.SetDefault("storage.path", "data/auctions")
	v.SetDefault("storage.cache_size", 1024)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}
