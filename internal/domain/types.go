package domain

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// Royalty rate applied to every sale, expressed as a fixed process-wide
// fraction. Not configurable per asset or per sale.
const (
	RoyaltyNumerator   = 1
	RoyaltyDenominator = 100
)

// DefaultURIScheme is the default scheme used for asset display URIs.
const DefaultURIScheme = "asset"

// Identity is a participant address in EIP-55 checksum format
type Identity string

// String returns the string representation of the identity
func (i Identity) String() string {
	return string(i)
}

// Valid checks if the identity is a well-formed hex address
func (i Identity) Valid() bool {
	return common.IsHexAddress(string(i))
}

// NormalizeIdentity validates a raw address string and normalizes it to
// EIP-55 checksum format
func NormalizeIdentity(raw string) (Identity, error) {
	if !common.IsHexAddress(raw) {
		return "", fmt.Errorf("invalid identity %q", raw)
	}
	return Identity(common.HexToAddress(raw).Hex()), nil
}

// AssetID is a sequentially assigned, never reused asset identifier
type AssetID uint64

// String returns the decimal representation of the asset id
func (a AssetID) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// ParseAssetID parses a decimal asset id
func ParseAssetID(raw string) (AssetID, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid asset id %q: %w", raw, err)
	}
	return AssetID(id), nil
}

// AssetURI derives the deterministic display URI for an asset
// (e.g., "asset://42"). The scheme is configured per deployment.
func AssetURI(scheme string, id AssetID) string {
	if scheme == "" {
		scheme = DefaultURIScheme
	}
	return fmt.Sprintf("%s://%s", scheme, id)
}

// Listing is an active offer to sell one asset. A nil Buyer means the
// listing is open to any buyer; otherwise only Buyer may purchase.
type Listing struct {
	AssetID AssetID   `json:"asset_id"`
	Price   uint64    `json:"price"`
	Buyer   *Identity `json:"buyer,omitempty"`
}

// Open reports whether the listing has no buyer restriction
func (l *Listing) Open() bool {
	return l.Buyer == nil
}

// Eligible reports whether candidate satisfies the listing's buyer
// restriction. It does not consider ownership; callers must separately
// exclude the current owner.
func (l *Listing) Eligible(candidate Identity) bool {
	return l.Buyer == nil || *l.Buyer == candidate
}

// RoyaltySplit splits a payment into the seller proceeds and the royalty
// cut. The royalty is truncated so the remainder always favors the seller
// and the two parts always sum to the full payment.
func RoyaltySplit(payment uint64) (sellerAmount uint64, royaltyAmount uint64) {
	royaltyAmount = payment * RoyaltyNumerator / RoyaltyDenominator
	sellerAmount = payment - royaltyAmount
	return sellerAmount, royaltyAmount
}
