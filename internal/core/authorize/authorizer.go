// Package authorize provides the pluggable bid-authorization strategies. The
// engine's production default accepts every bid; the signature variant binds
// (bidder, auctionID, bidAmount, lastHighestBid) under an off-chain
// authority's key.
package authorize

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/gbmlabs/gbmd/internal/core/amount"
	"github.com/gbmlabs/gbmd/internal/core/auction"
)

var (
	ErrNoPubKey        = errors.New("no authorizer public key set")
	ErrBadSignature    = errors.New("invalid bid authorization signature")
	ErrMalformedSig    = errors.New("malformed signature")
	ErrMalformedPubKey = errors.New("malformed public key")
)

// Nop accepts every bid. Production default since the signature-check
// removal.
type Nop struct{}

var _ auction.BidAuthorizer = Nop{}

func (Nop) Authorize(string, uint64, amount.Amount, amount.Amount, []byte) error {
	return nil
}

// Secp256k1Authorizer verifies a DER-encoded ECDSA signature over the bid
// digest against an operator-settable public key.
type Secp256k1Authorizer struct {
	mu  sync.RWMutex
	pub *secp256k1.PublicKey
}

var _ auction.BidAuthorizer = (*Secp256k1Authorizer)(nil)

func NewSecp256k1Authorizer() *Secp256k1Authorizer {
	return &Secp256k1Authorizer{}
}

// SetPubKey installs the authority's serialized (compressed or uncompressed)
// public key.
func (s *Secp256k1Authorizer) SetPubKey(serialized []byte) error {
	pub, err := secp256k1.ParsePubKey(serialized)
	if err != nil {
		return ErrMalformedPubKey
	}
	s.mu.Lock()
	s.pub = pub
	s.mu.Unlock()
	return nil
}

// Digest computes the signed message: sha256 over the length-prefixed bidder
// plus the fixed-width big-endian tuple (auctionID, bidAmount, lastHighestBid).
func Digest(bidder string, auctionID uint64, bidAmount, lastHighestBid amount.Amount) [32]byte {
	h := sha256.New()
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(bidder)))
	h.Write(n[:])
	h.Write([]byte(bidder))
	binary.BigEndian.PutUint64(n[:], auctionID)
	h.Write(n[:])
	binary.BigEndian.PutUint64(n[:], bidAmount.Units())
	h.Write(n[:])
	binary.BigEndian.PutUint64(n[:], lastHighestBid.Units())
	h.Write(n[:])
	var out [32]byte
	h.Sum(out[:0])
	return out
}

func (s *Secp256k1Authorizer) Authorize(bidder string, auctionID uint64, bidAmount, lastHighestBid amount.Amount, sig []byte) error {
	s.mu.RLock()
	pub := s.pub
	s.mu.RUnlock()
	if pub == nil {
		return ErrNoPubKey
	}
	parsed, err := secpecdsa.ParseDERSignature(sig)
	if err != nil {
		return ErrMalformedSig
	}
	digest := Digest(bidder, auctionID, bidAmount, lastHighestBid)
	if !parsed.Verify(digest[:], pub) {
		return ErrBadSignature
	}
	return nil
}
