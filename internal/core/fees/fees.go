// Package fees computes protocol fee amounts and their split across
// recipients. Decimal arithmetic keeps multi-recipient splits free of
// cumulative rounding drift; the remainder after truncation goes to the first
// recipient so the split always sums to the fee charged.
package fees

import (
	"github.com/shopspring/decimal"

	"github.com/gbmlabs/gbmd/internal/core/amount"
)

// BpsDenominator is the basis-point scale: 10000 bps = 100%.
const BpsDenominator = 10000

// Recipient receives a share of the protocol fee.
type Recipient struct {
	Address  string `json:"address" mapstructure:"address"`
	ShareBps int64  `json:"shareBps" mapstructure:"share_bps"`
}

// Payout is one recipient's computed cut.
type Payout struct {
	Address string
	Amount  amount.Amount
}

// PercentOf returns total * bps / 10000, truncated.
func PercentOf(total amount.Amount, bps int64) amount.Amount {
	v := decimal.NewFromUint64(total.Units()).
		Mul(decimal.NewFromInt(bps)).
		Div(decimal.NewFromInt(BpsDenominator)).
		Truncate(0)
	return amount.New(v.BigInt().Uint64())
}

// Split distributes fee across recipients by their shares. Shares are relative
// weights in basis points; they do not need to sum to 10000. Any truncation
// remainder is paid to the first recipient. An empty recipient set yields no
// payouts.
func Split(fee amount.Amount, recipients []Recipient) []Payout {
	if fee.IsZero() || len(recipients) == 0 {
		return nil
	}
	var totalShares int64
	for _, r := range recipients {
		totalShares += r.ShareBps
	}
	if totalShares <= 0 {
		return nil
	}

	feeDec := decimal.NewFromUint64(fee.Units())
	totalDec := decimal.NewFromInt(totalShares)

	payouts := make([]Payout, 0, len(recipients))
	var distributed amount.Amount
	for _, r := range recipients {
		cut := feeDec.
			Mul(decimal.NewFromInt(r.ShareBps)).
			Div(totalDec).
			Truncate(0)
		amt := amount.New(cut.BigInt().Uint64())
		distributed = distributed.Add(amt)
		payouts = append(payouts, Payout{Address: r.Address, Amount: amt})
	}
	if remainder := fee.Sub(distributed); !remainder.IsZero() {
		payouts[0].Amount = payouts[0].Amount.Add(remainder)
	}
	return payouts
}
