package cli

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gbmlabs/gbmd/internal/config"
	"github.com/gbmlabs/gbmd/internal/core/access"
	"github.com/gbmlabs/gbmd/internal/core/amount"
	"github.com/gbmlabs/gbmd/internal/core/auction"
	"github.com/gbmlabs/gbmd/internal/core/authorize"
	"github.com/gbmlabs/gbmd/internal/core/bank"
	"github.com/gbmlabs/gbmd/internal/core/dispatch"
	"github.com/gbmlabs/gbmd/internal/core/fees"
	"github.com/gbmlabs/gbmd/internal/core/swap"
	"github.com/gbmlabs/gbmd/internal/rpc"
	"github.com/gbmlabs/gbmd/internal/storage/keyvaluedb"
	pebbledb "github.com/gbmlabs/gbmd/internal/storage/keyvaluedb/pebble"
)

// serverCmd starts the auction daemon (default action).
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the auction daemon",
	Long: `Start the gbmd server which provides:
- HTTP JSON-RPC API for auction lifecycle operations
- WebSocket stream of auction events
- Health check endpoint`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runServer(cmd, args)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	if !quiet {
		fmt.Println("Starting gbmd auction engine")
	}

	var db keyvaluedb.DB
	switch cfg.Storage.Backend {
	case "pebble":
		db, err = pebbledb.Open(cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("failed to open storage at %s: %w", cfg.Storage.Path, err)
		}
	case "memory":
		db = keyvaluedb.NewMemoryDB()
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	defer db.Close()

	store, err := auction.NewStore(db, cfg.Storage.CacheSize)
	if err != nil {
		return fmt.Errorf("failed to create auction store: %w", err)
	}

	recipients := make([]fees.Recipient, len(cfg.Fees.Recipients))
	for i, r := range cfg.Fees.Recipients {
		recipients[i] = fees.Recipient{Address: r.Address, ShareBps: int64(r.ShareBps)}
	}

	events := rpc.NewEventStream(log)

	treasury := bank.New(cfg.Auction.Account)
	oracle := access.NewOracle()

	opts := []auction.Option{
		auction.WithLogger(log),
		auction.WithStore(store),
		auction.WithHooks(events.Hooks()),
	}
	if key := cfg.Auction.BidSigningPubKey; key != "" {
		raw, err := hex.DecodeString(key)
		if err != nil {
			return fmt.Errorf("invalid bid signing key: %w", err)
		}
		signer := authorize.NewSecp256k1Authorizer()
		if err := signer.SetPubKey(raw); err != nil {
			return fmt.Errorf("invalid bid signing key: %w", err)
		}
		opts = append(opts, auction.WithAuthorizer(signer))
	}

	ledger, err := auction.NewLedger(auction.Params{
		Account:            cfg.Auction.Account,
		Operator:           cfg.Auction.Operator,
		FeeBps:             int64(cfg.Auction.FeeBps),
		ListingFeeBps:      int64(cfg.Auction.ListingFeeBps),
		BuyNowThresholdPct: cfg.Auction.BuyNowThresholdPct,
		HammerTime:         cfg.Auction.HammerTime,
		DefaultWarmup:      cfg.Auction.DefaultWarmup,
		MinWarmup:          cfg.Auction.MinWarmup,
		FeeRecipients:      recipients,
	}, auction.NewPresetRegistry(), treasury, treasury, oracle, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize auction ledger: %w", err)
	}

	registry := dispatch.NewRegistry()
	if err := rpc.RegisterMethods(registry, ledger); err != nil {
		return fmt.Errorf("failed to register rpc methods: %w", err)
	}

	if cfg.Swap.Enabled {
		guard := swap.New(ledger, treasury, bankApprover{treasury, cfg.Auction.Account}, cfg.Swap.Venue, log)
		if err := rpc.RegisterSwapMethods(registry, guard); err != nil {
			return fmt.Errorf("failed to register swap methods: %w", err)
		}
	}

	rpcServer := rpc.NewServer(registry, cfg.Server.RequestTimeout, log)

	mux := http.NewServeMux()
	mux.Handle("/", rpcServer)
	mux.Handle("/rpc", rpcServer)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"gbmd"}`))
	})

	httpSrv := &http.Server{
		Addr:              cfg.Server.RPCListen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	wsMux := http.NewServeMux()
	wsMux.Handle("/ws", events)
	eventsSrv := &http.Server{
		Addr:              cfg.Server.EventsListen,
		Handler:           wsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("listen", cfg.Server.RPCListen).Msg("rpc server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info().Str("listen", cfg.Server.EventsListen).Msg("event stream listening")
		if err := eventsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := eventsSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("event stream shutdown")
		}
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// bankApprover adapts the in-process bank's allowance surface to the swap
// guard's Approver. The input token is a formality for the standalone bank;
// allowances key on owner and spender only.
type bankApprover struct {
	b     *bank.Bank
	owner string
}

func (a bankApprover) Approve(token, spender string, amt amount.Amount) error {
	a.b.Approve(a.owner, spender, amt)
	return nil
}

func newLogger(cfg config.LogConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if debug {
		level = zerolog.DebugLevel
	}

	var out = os.Stderr
	log := zerolog.New(out).With().Timestamp().Logger().Level(level)
	if cfg.Pretty {
		log = log.Output(zerolog.ConsoleWriter{Out: out})
	}
	return log, nil
}
