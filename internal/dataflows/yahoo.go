package dataflows

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"

	"github.com/hmkim/marketbrief/config"
)

// spyIndexFactor converts an SPY ETF price into an S&P 500 index
// approximation. The ETF tracks the index at roughly one tenth of its
// level, so the approximation is explicit and recorded in snapshot notes
// whenever this fallback path is taken.
const spyIndexFactor = 10

// YahooClient is the secondary quote source, used when Finnhub cannot
// supply a field.
type YahooClient struct {
	cache *CacheManager
}

func NewYahooClient(cfg *config.Config) *YahooClient {
	cacheDir := filepath.Join(cfg.DataCacheDir, "yahoo")
	return &YahooClient{
		cache: NewCacheManager(cacheDir, 10*time.Minute, cfg.CacheEnabled),
	}
}

// Quote fetches the regular-market price for a symbol.
func (yc *YahooClient) Quote(symbol string) (decimal.Decimal, error) {
	var cached float64
	if yc.cache.Get("yahoo", "quote", symbol, &cached) {
		return decimal.NewFromFloat(cached), nil
	}

	q, err := quote.Get(symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("yahoo quote for %s: %w", symbol, err)
	}
	if q == nil {
		return decimal.Zero, fmt.Errorf("yahoo returned no data for %s", symbol)
	}

	price := q.RegularMarketPrice
	if price == 0 {
		price = q.RegularMarketPreviousClose
	}
	if price == 0 {
		return decimal.Zero, fmt.Errorf("yahoo quote for %s has no price", symbol)
	}

	yc.cache.Set("yahoo", "quote", symbol, price)

	return decimal.NewFromFloat(price), nil
}

// IndexApproximation derives the index level from the SPY ETF price.
func (yc *YahooClient) IndexApproximation() (decimal.Decimal, error) {
	spy, err := yc.Quote("SPY")
	if err != nil {
		return decimal.Zero, err
	}
	return spy.Mul(decimal.NewFromInt(spyIndexFactor)), nil
}
