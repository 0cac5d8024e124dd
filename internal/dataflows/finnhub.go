package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/hmkim/marketbrief/config"
)

// FinnhubClient handles Finnhub API operations. It is the primary quote
// source for the index, volatility and yield fields.
type FinnhubClient struct {
	client *resty.Client
	cache  *CacheManager
	apiKey string
}

func NewFinnhubClient(cfg *config.Config) *FinnhubClient {
	cacheDir := filepath.Join(cfg.DataCacheDir, "finnhub")
	cache := NewCacheManager(cacheDir, 10*time.Minute, cfg.CacheEnabled)

	client := resty.New()
	client.SetBaseURL("https://finnhub.io/api/v1")
	client.SetTimeout(30 * time.Second)

	return &FinnhubClient{
		client: client,
		cache:  cache,
		apiKey: cfg.FinnhubAPIKey,
	}
}

// finnhubQuote is the raw /quote payload.
type finnhubQuote struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	PercentChange float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PrevClose     float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// Quote fetches the current price for a symbol. A zero price with a zero
// timestamp means Finnhub does not cover the symbol; that is reported as
// an error so the caller can fall back to the secondary source.
func (fc *FinnhubClient) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if fc.apiKey == "" {
		return decimal.Zero, fmt.Errorf("finnhub API key not configured")
	}

	var cached finnhubQuote
	if fc.cache.Get("finnhub", "quote", symbol, &cached) {
		return decimal.NewFromFloat(cached.Current), nil
	}

	resp, err := fc.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"token":  fc.apiKey,
		}).
		Get("/quote")
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch quote for %s: %w", symbol, err)
	}
	if resp.StatusCode() != 200 {
		return decimal.Zero, fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
	}

	var quote finnhubQuote
	if err := json.Unmarshal(resp.Body(), &quote); err != nil {
		return decimal.Zero, fmt.Errorf("parse quote response: %w", err)
	}
	if quote.Current == 0 && quote.Timestamp == 0 {
		return decimal.Zero, fmt.Errorf("no quote data for %s", symbol)
	}

	fc.cache.Set("finnhub", "quote", symbol, quote)

	return decimal.NewFromFloat(quote.Current), nil
}
