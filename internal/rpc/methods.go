package rpc

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gbmlabs/gbmd/internal/core/amount"
	"github.com/gbmlabs/gbmd/internal/core/auction"
	"github.com/gbmlabs/gbmd/internal/core/dispatch"
	"github.com/gbmlabs/gbmd/internal/core/swap"
)

// Operation ids served over RPC. The manifest is the full known set; the
// registry reconciles against it at startup.
const (
	OpCreateAuction  = "auction_create"
	OpCreateAuctions = "auction_create_batch"
	OpModifyAuction  = "auction_modify"
	OpCancelAuction  = "auction_cancel"
	OpCommitBid      = "auction_bid"
	OpBuyNow         = "auction_buy_now"
	OpBuyNowFor      = "auction_buy_now_for"
	OpSetBuyNow      = "auction_set_buy_now"
	OpClaim          = "auction_claim"
	OpCloseAuction   = "auction_close"
	OpAuctionInfo    = "auction_info"
	OpHighestBid     = "auction_highest_bid"
	OpUnclaimed      = "auction_unclaimed"
	OpEnableContract = "admin_enable_contract"
	OpToggleBidding  = "admin_toggle_bidding"
	OpSetPaused      = "admin_set_creation_paused"
)

// Swap-composed operations, registered only when a swap venue is configured.
const (
	OpSwapBid    = "auction_swap_bid"
	OpSwapBuyNow = "auction_swap_buy_now"
)

// Manifest returns the complete operation manifest for reconciliation.
func Manifest() dispatch.Manifest {
	return dispatch.NewManifest(
		OpCreateAuction, OpCreateAuctions, OpModifyAuction, OpCancelAuction,
		OpCommitBid, OpBuyNow, OpBuyNowFor, OpSetBuyNow, OpClaim,
		OpCloseAuction, OpAuctionInfo, OpHighestBid, OpUnclaimed,
		OpEnableContract, OpToggleBidding, OpSetPaused,
	)
}

// lotParams mirrors auction.LotInfo with unix-second timestamps on the wire.
type lotParams struct {
	Owner         string `json:"owner"`
	TokenContract string `json:"tokenContract"`
	TokenKind     uint8  `json:"tokenKind"`
	TokenID       uint64 `json:"tokenId"`
	TokenAmount   uint64 `json:"tokenAmount"`
	Category      uint32 `json:"category"`
	StartTime     int64  `json:"startTime"`
	EndTime       int64  `json:"endTime"`
	StartingBid   uint64 `json:"startingBid"`
	BuyItNowPrice uint64 `json:"buyItNowPrice"`
}

func (p lotParams) toLot(caller string) auction.LotInfo {
	owner := p.Owner
	if owner == "" {
		owner = caller
	}
	return auction.LotInfo{
		Owner:         owner,
		TokenContract: p.TokenContract,
		TokenKind:     auction.TokenKind(p.TokenKind),
		TokenID:       p.TokenID,
		TokenAmount:   p.TokenAmount,
		Category:      p.Category,
		StartTime:     time.Unix(p.StartTime, 0).UTC(),
		EndTime:       time.Unix(p.EndTime, 0).UTC(),
		StartingBid:   amount.Amount(p.StartingBid),
		BuyItNowPrice: amount.Amount(p.BuyItNowPrice),
	}
}

type createParams struct {
	Lot           lotParams `json:"lot"`
	PresetID      uint64    `json:"presetId"`
	ModifierKind  uint8     `json:"modifierKind"`
	WhitelistID   uint64    `json:"whitelistId"`
	WarmupSeconds int64     `json:"warmupSeconds"`
}

func (p createParams) toCreate(caller string) auction.CreateParams {
	return auction.CreateParams{
		Lot:      p.Lot.toLot(caller),
		PresetID: p.PresetID,
		Modifier: auction.Modifier{
			Kind:        auction.ModifierKind(p.ModifierKind),
			WhitelistID: p.WhitelistID,
		},
		WarmupDuration: time.Duration(p.WarmupSeconds) * time.Second,
	}
}

type bidParams struct {
	AuctionID          uint64 `json:"auctionId"`
	BidAmount          uint64 `json:"bidAmount"`
	ExpectedHighestBid uint64 `json:"expectedHighestBid"`
	TokenContract      string `json:"tokenContract"`
	TokenID            uint64 `json:"tokenId"`
	TokenAmount        uint64 `json:"tokenAmount"`
	InGame             bool   `json:"inGame"`
	AuthSig            []byte `json:"authSig,omitempty"`
}

type idParams struct {
	AuctionID uint64 `json:"auctionId"`
}

// RegisterMethods wires every ledger operation into the registry and
// reconciles the result against the full manifest.
func RegisterMethods(reg *dispatch.Registry, ledger *auction.Ledger) error {
	cuts := []dispatch.Cut{
		op(OpCreateAuction, func(caller string, raw json.RawMessage) (any, error) {
			var p createParams
			if err := decode(raw, &p); err != nil {
				return nil, err
			}
			id, err := ledger.CreateAuction(caller, p.toCreate(caller))
			if err != nil {
				return nil, err
			}
			return map[string]uint64{"auctionId": id}, nil
		}),
		op(OpCreateAuctions, func(caller string, raw json.RawMessage) (any, error) {
			var p struct {
				Auctions []createParams `json:"auctions"`
			}
			if err := decode(raw, &p); err != nil {
				return nil, err
			}
			batch := make([]auction.CreateParams, len(p.Auctions))
			for i, cp := range p.Auctions {
				batch[i] = cp.toCreate(caller)
			}
			ids, err := ledger.CreateAuctions(caller, batch)
			if err != nil {
				return nil, err
			}
			return map[string][]uint64{"auctionIds": ids}, nil
		}),
		op(OpModifyAuction, func(caller string, raw json.RawMessage) (any, error) {
			var p struct {
				AuctionID     uint64 `json:"auctionId"`
				StartTime     int64  `json:"startTime"`
				EndTime       int64  `json:"endTime"`
				StartingBid   uint64 `json:"startingBid"`
				BuyItNowPrice uint64 `json:"buyItNowPrice"`
			}
			if err := decode(raw, &p); err != nil {
				return nil, err
			}
			err := ledger.ModifyAuction(caller, p.AuctionID,
				time.Unix(p.StartTime, 0).UTC(), time.Unix(p.EndTime, 0).UTC(),
				amount.Amount(p.StartingBid), amount.Amount(p.BuyItNowPrice))
			return ok(), err
		}),
		op(OpCancelAuction, func(caller string, raw json.RawMessage) (any, error) {
			var p idParams
			if err := decode(raw, &p); err != nil {
				return nil, err
			}
			return ok(), ledger.CancelAuction(caller, p.AuctionID)
		}),
		op(OpCommitBid, func(caller string, raw json.RawMessage) (any, error) {
			var p bidParams
			if err := decode(raw, &p); err != nil {
				return nil, err
			}
			err := ledger.CommitBid(caller, auction.BidParams{
				AuctionID:          p.AuctionID,
				BidAmount:          amount.Amount(p.BidAmount),
				ExpectedHighestBid: amount.Amount(p.ExpectedHighestBid),
				TokenContract:      p.TokenContract,
				TokenID:            p.TokenID,
				TokenAmount:        p.TokenAmount,
				Proof:              auction.AccessProof{InGame: p.InGame},
				AuthSig:            p.AuthSig,
			})
			return ok(), err
		}),
		op(OpBuyNow, func(caller string, raw json.RawMessage) (any, error) {
			var p idParams
			if err := decode(raw, &p); err != nil {
				return nil, err
			}
			return ok(), ledger.BuyNow(caller, p.AuctionID)
		}),
		op(OpBuyNowFor, func(caller string, raw json.RawMessage) (any, error) {
			var p struct {
				AuctionID uint64 `json:"auctionId"`
				Recipient string `json:"recipient"`
			}
			if err := decode(raw, &p); err != nil {
				return nil, err
			}
			return ok(), ledger.BuyNowFor(caller, p.AuctionID, p.Recipient)
		}),
		op(OpSetBuyNow, func(caller string, raw json.RawMessage) (any, error) {
			var p struct {
				AuctionID uint64 `json:"auctionId"`
				NewPrice  uint64 `json:"newPrice"`
			}
			if err := decode(raw, &p); err != nil {
				return nil, err
			}
			return ok(), ledger.SetBuyNow(caller, p.AuctionID, amount.Amount(p.NewPrice))
		}),
		op(OpClaim, func(caller string, raw json.RawMessage) (any, error) {
			var p idParams
			if err := decode(raw, &p); err != nil {
				return nil, err
			}
			return ok(), ledger.Claim(caller, p.AuctionID)
		}),
		op(OpCloseAuction, func(caller string, raw json.RawMessage) (any, error) {
			var p idParams
			if err := decode(raw, &p); err != nil {
				return nil, err
			}
			return ok(), ledger.CloseAuction(caller, p.AuctionID)
		}),
		op(OpAuctionInfo, func(caller string, raw json.RawMessage) (any, error) {
			var p idParams
			if err := decode(raw, &p); err != nil {
				return nil, err
			}
			return ledger.AuctionInfo(p.AuctionID)
		}),
		op(OpHighestBid, func(caller string, raw json.RawMessage) (any, error) {
			var p idParams
			if err := decode(raw, &p); err != nil {
				return nil, err
			}
			hb, err := ledger.HighestBid(p.AuctionID)
			if err != nil {
				return nil, err
			}
			return map[string]uint64{"highestBid": uint64(hb)}, nil
		}),
		op(OpUnclaimed, func(caller string, raw json.RawMessage) (any, error) {
			return ledger.Unclaimed(), nil
		}),
		op(OpEnableContract, func(caller string, raw json.RawMessage) (any, error) {
			var p struct {
				Contract string `json:"contract"`
			}
			if err := decode(raw, &p); err != nil {
				return nil, err
			}
			return ok(), ledger.EnableContract(caller, p.Contract)
		}),
		op(OpToggleBidding, func(caller string, raw json.RawMessage) (any, error) {
			var p struct {
				Contract string `json:"contract"`
			}
			if err := decode(raw, &p); err != nil {
				return nil, err
			}
			return ok(), ledger.ToggleBiddingAllowed(caller, p.Contract)
		}),
		op(OpSetPaused, func(caller string, raw json.RawMessage) (any, error) {
			var p struct {
				Paused bool `json:"paused"`
			}
			if err := decode(raw, &p); err != nil {
				return nil, err
			}
			return ok(), ledger.SetCreationPaused(caller, p.Paused)
		}),
	}
	return reg.Reconcile(cuts, Manifest())
}

// swapParams carries a swap-then-settle request on the wire.
type swapParams struct {
	AuctionID uint64 `json:"auctionId"`
	TokenIn   string `json:"tokenIn"`
	AmountIn  uint64 `json:"amountIn"`
	MinOut    uint64 `json:"minOut"`
	Deadline  int64  `json:"deadline"`

	BidAmount          uint64 `json:"bidAmount"`
	ExpectedHighestBid uint64 `json:"expectedHighestBid"`
	TokenContract      string `json:"tokenContract"`
	TokenID            uint64 `json:"tokenId"`
	TokenAmount        uint64 `json:"tokenAmount"`
	InGame             bool   `json:"inGame"`
	AuthSig            []byte `json:"authSig,omitempty"`

	// Recipient applies to buy-now only; empty means the caller.
	Recipient string `json:"recipient,omitempty"`
}

func (p swapParams) toParams() swap.Params {
	return swap.Params{
		AuctionID:          p.AuctionID,
		TokenIn:            p.TokenIn,
		AmountIn:           amount.Amount(p.AmountIn),
		MinOut:             amount.Amount(p.MinOut),
		Deadline:           time.Unix(p.Deadline, 0).UTC(),
		BidAmount:          amount.Amount(p.BidAmount),
		ExpectedHighestBid: amount.Amount(p.ExpectedHighestBid),
		TokenContract:      p.TokenContract,
		TokenID:            p.TokenID,
		TokenAmount:        p.TokenAmount,
		Proof:              auction.AccessProof{InGame: p.InGame},
		AuthSig:            p.AuthSig,
	}
}

// RegisterSwapMethods wires the swap-composed operations. Called only when the
// deployment has a swap venue configured.
func RegisterSwapMethods(reg *dispatch.Registry, guard *swap.Guard) error {
	cuts := []dispatch.Cut{
		op(OpSwapBid, func(caller string, raw json.RawMessage) (any, error) {
			var p swapParams
			if err := decode(raw, &p); err != nil {
				return nil, err
			}
			return ok(), guard.CommitBid(caller, p.toParams())
		}),
		op(OpSwapBuyNow, func(caller string, raw json.RawMessage) (any, error) {
			var p swapParams
			if err := decode(raw, &p); err != nil {
				return nil, err
			}
			recipient := p.Recipient
			if recipient == "" {
				recipient = caller
			}
			return ok(), guard.BuyNow(caller, p.toParams(), recipient)
		}),
	}
	return reg.Reconcile(cuts, dispatch.NewManifest(OpSwapBid, OpSwapBuyNow))
}

func op(id string, fn func(string, json.RawMessage) (any, error)) dispatch.Cut {
	return dispatch.Cut{
		Action:  dispatch.CutAdd,
		ID:      id,
		Handler: dispatch.HandlerFunc{ID: id, Fn: fn},
	}
}

func decode(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

func ok() map[string]string {
	return map[string]string{"status": "success"}
}
