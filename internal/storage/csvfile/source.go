// Package csvfile reads trade records from a CSV export.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"nft-floor-lab/internal/domain"
	"nft-floor-lab/internal/storage"
)

// Column names. The benchmark column is accepted under either spelling.
const (
	ColChainID         = "chain_id"
	ColContractAddress = "contract_address"
	ColTokenID         = "token_id"
	ColBlockNumber     = "block_number"
	ColPriceETH        = "price_eth"
	ColTwapBid         = "twap_bid"
	colTwapBidDashed   = "twap-bid"
)

// ctxCheckEvery is how many rows are parsed between context checks.
const ctxCheckEvery = 4096

// Source implements storage.TradeSource over a CSV file.
type Source struct {
	path string
}

// NewSource creates a Source reading path.
func NewSource(path string) *Source {
	return &Source{path: path}
}

var _ storage.TradeSource = (*Source)(nil)

// LoadTrades reads every row of the file in file order.
func (s *Source) LoadTrades(ctx context.Context) ([]domain.TradeRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open trades csv: %w", err)
	}
	defer f.Close()

	trades, err := Parse(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return trades, nil
}

type columns struct {
	chainID, contract, tokenID, block, price, twap int
}

// Parse decodes trades from r. The first row is the header; unknown columns
// are ignored. A malformed row fails the whole parse with its line number.
func Parse(ctx context.Context, r io.Reader) ([]domain.TradeRecord, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty csv, header required", storage.ErrInvalidInput)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var trades []domain.TradeRecord
	for n := 0; ; n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := reader.FieldPos(0)

		t, err := parseRecord(record, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		trades = append(trades, t)
	}
	return trades, nil
}

func resolveColumns(header []string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	lookup := func(names ...string) (int, error) {
		for _, name := range names {
			if i, ok := index[name]; ok {
				return i, nil
			}
		}
		return 0, fmt.Errorf("%w: missing column %q", storage.ErrInvalidInput, names[0])
	}

	var c columns
	var err error
	if c.chainID, err = lookup(ColChainID); err != nil {
		return c, err
	}
	if c.contract, err = lookup(ColContractAddress); err != nil {
		return c, err
	}
	if c.tokenID, err = lookup(ColTokenID); err != nil {
		return c, err
	}
	if c.block, err = lookup(ColBlockNumber); err != nil {
		return c, err
	}
	if c.price, err = lookup(ColPriceETH); err != nil {
		return c, err
	}
	if c.twap, err = lookup(ColTwapBid, colTwapBidDashed); err != nil {
		return c, err
	}
	return c, nil
}

func parseRecord(record []string, c columns) (domain.TradeRecord, error) {
	var t domain.TradeRecord
	var err error

	if t.ChainID, err = parseInteger(record[c.chainID]); err != nil {
		return t, fmt.Errorf("%w: %s: %v", storage.ErrInvalidInput, ColChainID, err)
	}
	t.ContractAddress = domain.NormalizeContract(record[c.contract])
	if t.ContractAddress == "" {
		return t, fmt.Errorf("%w: empty %s", storage.ErrInvalidInput, ColContractAddress)
	}
	t.TokenID = strings.TrimSpace(record[c.tokenID])
	if t.TokenID == "" {
		return t, fmt.Errorf("%w: empty %s", storage.ErrInvalidInput, ColTokenID)
	}
	if t.BlockNumber, err = parseInteger(record[c.block]); err != nil {
		return t, fmt.Errorf("%w: %s: %v", storage.ErrInvalidInput, ColBlockNumber, err)
	}

	// A missing price is kept as NaN so the filter counts it as a drop.
	price, ok, err := parseDecimal(record[c.price])
	if err != nil {
		return t, fmt.Errorf("%w: %s: %v", storage.ErrInvalidInput, ColPriceETH, err)
	}
	t.PriceETH = math.NaN()
	if ok {
		t.PriceETH = price
	}

	twap, ok, err := parseDecimal(record[c.twap])
	if err != nil {
		return t, fmt.Errorf("%w: %s: %v", storage.ErrInvalidInput, ColTwapBid, err)
	}
	if ok {
		t.TwapBid = &twap
	}
	return t, nil
}

// parseDecimal parses s exactly and converts to float64. Empty and NaN cells
// report ok=false.
func parseDecimal(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, false, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false, err
	}
	f, _ := d.Float64()
	return f, true, nil
}

// parseInteger accepts plain integers and integral decimals such as "17.0".
func parseInteger(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return d.IntPart(), nil
}
