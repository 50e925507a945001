package auction

import (
	"encoding/binary"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ugorji/go/codec"

	"github.com/gbmlabs/gbmd/internal/core/amount"
	"github.com/gbmlabs/gbmd/internal/storage/keyvaluedb"
)

var (
	auctionKeyPrefix = []byte("auction/")
	nextIDKey        = []byte("meta/nextid")
)

// record is the persisted form of an Auction. Times are stored as unix
// seconds so encoding is stable across machines.
type record struct {
	ID            uint64 `codec:"id"`
	Owner         string `codec:"owner"`
	TokenContract string `codec:"contract"`
	TokenKind     uint8  `codec:"kind"`
	TokenID       uint64 `codec:"tokenId"`
	TokenAmount   uint64 `codec:"tokenAmount"`
	Category      uint32 `codec:"category"`
	StartTime     int64  `codec:"start"`
	EndTime       int64  `codec:"end"`
	WarmupEndTime int64  `codec:"warmupEnd"`
	StartingBid   uint64 `codec:"startingBid"`
	BuyItNowPrice uint64 `codec:"buyItNow"`

	IncMin        uint64 `codec:"incMin"`
	IncMax        uint64 `codec:"incMax"`
	BidMultiplier uint64 `codec:"bidMultiplier"`
	StepMin       uint64 `codec:"stepMin"`
	BidDecimals   uint64 `codec:"bidDecimals"`

	ModifierKind uint8  `codec:"modKind"`
	WhitelistID  uint64 `codec:"whitelistId"`

	HighestBid    uint64       `codec:"highestBid"`
	HighestBidder string       `codec:"highestBidder"`
	DueIncentives uint64       `codec:"dueIncentives"`
	Debts         []debtRecord `codec:"debts"`
	PrepaidFee    uint64       `codec:"prepaidFee"`

	Claimed   bool `codec:"claimed"`
	Cancelled bool `codec:"cancelled"`
}

type debtRecord struct {
	Recipient string `codec:"recipient"`
	Amount    uint64 `codec:"amount"`
}

// Store persists auction records in a key-value backend with an LRU cache over
// decoded records.
type Store struct {
	db    keyvaluedb.DB
	cache *lru.Cache[uint64, *Auction]
	mh    codec.MsgpackHandle
}

// NewStore wraps db. cacheSize bounds the decoded-record cache.
func NewStore(db keyvaluedb.DB, cacheSize int) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, err := lru.New[uint64, *Auction](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, cache: cache}, nil
}

func auctionKey(id uint64) []byte {
	key := make([]byte, len(auctionKeyPrefix)+8)
	copy(key, auctionKeyPrefix)
	binary.BigEndian.PutUint64(key[len(auctionKeyPrefix):], id)
	return key
}

// Save writes the record and its successor id watermark.
func (s *Store) Save(a *Auction) error {
	var buf []byte
	enc := codec.NewEncoderBytes(&buf, &s.mh)
	if err := enc.Encode(toRecord(a)); err != nil {
		return err
	}
	if err := s.db.Write(auctionKey(a.ID), buf); err != nil {
		return err
	}
	s.cache.Add(a.ID, a)

	var idBuf [8]byte
	binary.BigEndian.PutUint64(idBuf[:], a.ID+1)
	existing, err := s.db.Read(nextIDKey)
	if err == nil && binary.BigEndian.Uint64(existing) > a.ID {
		return nil
	}
	return s.db.Write(nextIDKey, idBuf[:])
}

// Load reads one auction by id.
func (s *Store) Load(id uint64) (*Auction, error) {
	if a, ok := s.cache.Get(id); ok {
		return a, nil
	}
	data, err := s.db.Read(auctionKey(id))
	if err != nil {
		return nil, err
	}
	a, err := s.decode(data)
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, a)
	return a, nil
}

// LoadAll reads every persisted auction and the next-id watermark.
func (s *Store) LoadAll() ([]*Auction, uint64, error) {
	var (
		out     []*Auction
		iterErr error
	)
	end := append(append([]byte{}, auctionKeyPrefix...), 0xff)
	err := s.db.Iterate(auctionKeyPrefix, end, func(_, value []byte) bool {
		a, err := s.decode(value)
		if err != nil {
			iterErr = err
			return false
		}
		out = append(out, a)
		return true
	})
	if err != nil {
		return nil, 0, err
	}
	if iterErr != nil {
		return nil, 0, iterErr
	}

	nextID := uint64(1)
	data, err := s.db.Read(nextIDKey)
	switch {
	case err == nil:
		nextID = binary.BigEndian.Uint64(data)
	case errors.Is(err, keyvaluedb.ErrKeyNotFound):
	default:
		return nil, 0, err
	}
	return out, nextID, nil
}

func (s *Store) decode(data []byte) (*Auction, error) {
	var r record
	dec := codec.NewDecoderBytes(data, &s.mh)
	if err := dec.Decode(&r); err != nil {
		return nil, err
	}
	return fromRecord(&r), nil
}

func toRecord(a *Auction) *record {
	return &record{
		ID:            a.ID,
		Owner:         a.Info.Owner,
		TokenContract: a.Info.TokenContract,
		TokenKind:     uint8(a.Info.TokenKind),
		TokenID:       a.Info.TokenID,
		TokenAmount:   a.Info.TokenAmount,
		Category:      a.Info.Category,
		StartTime:     a.Info.StartTime.Unix(),
		EndTime:       a.Info.EndTime.Unix(),
		WarmupEndTime: a.WarmupEndTime.Unix(),
		StartingBid:   a.Info.StartingBid.Units(),
		BuyItNowPrice: a.Info.BuyItNowPrice.Units(),
		IncMin:        a.Preset.IncMin.Units(),
		IncMax:        a.Preset.IncMax.Units(),
		BidMultiplier: a.Preset.BidMultiplier,
		StepMin:       a.Preset.StepMin.Units(),
		BidDecimals:   a.Preset.BidDecimals,
		ModifierKind:  uint8(a.Modifier.Kind),
		WhitelistID:   a.Modifier.WhitelistID,
		HighestBid:    a.HighestBid.Units(),
		HighestBidder: a.HighestBidder,
		DueIncentives: a.DueIncentives.Units(),
		Debts:         toDebtRecords(a.Debts),
		PrepaidFee:    a.PrepaidFee.Units(),
		Claimed:       a.Claimed,
		Cancelled:     a.Cancelled,
	}
}

func toDebtRecords(debts []Debt) []debtRecord {
	if len(debts) == 0 {
		return nil
	}
	out := make([]debtRecord, len(debts))
	for i, d := range debts {
		out[i] = debtRecord{Recipient: d.Recipient, Amount: d.Amount.Units()}
	}
	return out
}

func fromRecord(r *record) *Auction {
	return &Auction{
		ID: r.ID,
		Info: LotInfo{
			Owner:         r.Owner,
			TokenContract: r.TokenContract,
			TokenKind:     TokenKind(r.TokenKind),
			TokenID:       r.TokenID,
			TokenAmount:   r.TokenAmount,
			Category:      r.Category,
			StartTime:     time.Unix(r.StartTime, 0).UTC(),
			EndTime:       time.Unix(r.EndTime, 0).UTC(),
			StartingBid:   amount.New(r.StartingBid),
			BuyItNowPrice: amount.New(r.BuyItNowPrice),
		},
		Preset: Preset{
			IncMin:        amount.New(r.IncMin),
			IncMax:        amount.New(r.IncMax),
			BidMultiplier: r.BidMultiplier,
			StepMin:       amount.New(r.StepMin),
			BidDecimals:   r.BidDecimals,
		},
		Modifier:      Modifier{Kind: ModifierKind(r.ModifierKind), WhitelistID: r.WhitelistID},
		WarmupEndTime: time.Unix(r.WarmupEndTime, 0).UTC(),
		HighestBid:    amount.New(r.HighestBid),
		HighestBidder: r.HighestBidder,
		DueIncentives: amount.New(r.DueIncentives),
		Debts:         fromDebtRecords(r.Debts),
		PrepaidFee:    amount.New(r.PrepaidFee),
		Claimed:       r.Claimed,
		Cancelled:     r.Cancelled,
	}
}

func fromDebtRecords(records []debtRecord) []Debt {
	if len(records) == 0 {
		return nil
	}
	out := make([]Debt, len(records))
	for i, r := range records {
		out[i] = Debt{Recipient: r.Recipient, Amount: amount.New(r.Amount)}
	}
	return out
}
