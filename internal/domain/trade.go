package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// TradeRecord represents a single historical NFT sale.
// Corresponds to nft_trades table / nft_trades.csv export.
type TradeRecord struct {
	ChainID         int64    // EVM chain id
	ContractAddress string   // collection contract, normalized via NormalizeContract
	TokenID         string   // token id as decimal text (may exceed 64 bits)
	BlockNumber     int64    // block the sale was mined in
	PriceETH        float64  // sale price in ETH
	TwapBid         *float64 // time-weighted bid benchmark in ETH (nullable)
}

// CollectionKey identifies an NFT collection. All estimation is scoped to one key.
type CollectionKey struct {
	ChainID         int64
	ContractAddress string
}

// String renders the key as "<chain_id>:<contract_address>".
func (k CollectionKey) String() string {
	return fmt.Sprintf("%d:%s", k.ChainID, k.ContractAddress)
}

// Less orders keys by chain id, then contract address.
func (k CollectionKey) Less(other CollectionKey) bool {
	if k.ChainID != other.ChainID {
		return k.ChainID < other.ChainID
	}
	return k.ContractAddress < other.ContractAddress
}

// TokenKey identifies a single token within a collection. Dedup unit.
type TokenKey struct {
	ChainID         int64
	ContractAddress string
	TokenID         string
}

// CollectionKey returns the collection the trade belongs to.
func (t TradeRecord) CollectionKey() CollectionKey {
	return CollectionKey{ChainID: t.ChainID, ContractAddress: t.ContractAddress}
}

// TokenKey returns the token the trade belongs to.
func (t TradeRecord) TokenKey() TokenKey {
	return TokenKey{ChainID: t.ChainID, ContractAddress: t.ContractAddress, TokenID: t.TokenID}
}

// NormalizeContract canonicalizes a contract address.
// Valid 20-byte hex addresses are lowercased so checksummed and plain exports
// of the same contract collapse into one collection. Anything else is trimmed only.
func NormalizeContract(addr string) string {
	addr = strings.TrimSpace(addr)
	if common.IsHexAddress(addr) {
		return strings.ToLower(common.HexToAddress(addr).Hex())
	}
	return addr
}
