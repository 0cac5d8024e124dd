package dataflows

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/hmkim/marketbrief/config"
	"github.com/hmkim/marketbrief/internal/logging"
	"github.com/hmkim/marketbrief/internal/models"
	"github.com/hmkim/marketbrief/internal/resilience"
)

const (
	indexSymbol     = "^GSPC"
	secondarySymbol = "^IXIC"
	vixSymbol       = "^VIX"
	yieldSymbol     = "^TNX"

	// ^TNX quotes the 10Y yield multiplied by ten.
	tnxYieldDivisor = 10
)

type primaryQuoter interface {
	Quote(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type fallbackQuoter interface {
	Quote(symbol string) (decimal.Decimal, error)
	IndexApproximation() (decimal.Decimal, error)
}

type sentimentSource interface {
	Sentiment(ctx context.Context) (*SentimentReading, error)
}

// Collector assembles a MarketSnapshot from independent provider requests.
// Index price and sentiment are required: if either is unobtainable after
// every fallback the whole collection fails and no partial snapshot is
// returned. All other fields degrade to nil.
type Collector struct {
	primary   primaryQuoter
	fallback  fallbackQuoter
	sentiment sentimentSource
	retry     *resilience.RetryConfig
}

func NewCollector(cfg *config.Config) *Collector {
	return &Collector{
		primary:   NewFinnhubClient(cfg),
		fallback:  NewYahooClient(cfg),
		sentiment: NewFearGreedClient(cfg),
		retry: &resilience.RetryConfig{
			MaxRetries: 2,
			BaseDelay:  500 * time.Millisecond,
			MaxDelay:   5 * time.Second,
			Multiplier: 2.0,
			RetryIf:    resilience.IsRetryable,
		},
	}
}

// Collect issues the provider requests concurrently and recombines them in
// fixed field order so the resulting snapshot (and the prompt built from
// it) is reproducible for the same upstream data.
func (c *Collector) Collect(ctx context.Context) (*models.MarketSnapshot, error) {
	log := logging.Log

	var (
		indexPrice     decimal.Decimal
		indexNote      string
		secondaryPrice *decimal.Decimal
		reading        *SentimentReading
		volatility     *decimal.Decimal
		yield          *decimal.Decimal
		yieldNote      string
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		price, err := c.quoteWithRetry(gctx, indexSymbol)
		if err == nil {
			indexPrice = price
			return nil
		}
		log.WithField("symbol", indexSymbol).Warnf("primary index source failed, falling back to SPY approximation: %v", err)

		approx, fbErr := c.fallbackWithRetry(gctx, func() (decimal.Decimal, error) {
			return c.fallback.IndexApproximation()
		})
		if fbErr != nil {
			return fmt.Errorf("index price unavailable (primary: %v, fallback: %v)", err, fbErr)
		}
		indexPrice = approx
		indexNote = "index price approximated from SPY x10 after primary source failure"
		return nil
	})

	g.Go(func() error {
		var err error
		reading, err = c.sentimentWithRetry(gctx)
		if err != nil {
			return fmt.Errorf("sentiment index unavailable: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		price, err := c.quoteWithRetry(gctx, secondarySymbol)
		if err != nil {
			if p, fbErr := c.fallbackWithRetry(gctx, func() (decimal.Decimal, error) {
				return c.fallback.Quote(secondarySymbol)
			}); fbErr == nil {
				secondaryPrice = &p
				return nil
			}
			log.Warnf("secondary index unavailable, continuing without it: %v", err)
			return nil
		}
		secondaryPrice = &price
		return nil
	})

	g.Go(func() error {
		price, err := c.quoteWithRetry(gctx, vixSymbol)
		if err != nil {
			if p, fbErr := c.fallbackWithRetry(gctx, func() (decimal.Decimal, error) {
				return c.fallback.Quote(vixSymbol)
			}); fbErr == nil {
				volatility = &p
				return nil
			}
			log.Warnf("volatility index unavailable, continuing without it: %v", err)
			return nil
		}
		volatility = &price
		return nil
	})

	g.Go(func() error {
		raw, err := c.fallbackWithRetry(gctx, func() (decimal.Decimal, error) {
			return c.fallback.Quote(yieldSymbol)
		})
		if err != nil {
			log.Warnf("treasury yield unavailable, continuing without it: %v", err)
			return nil
		}
		y := raw.Div(decimal.NewFromInt(tnxYieldDivisor))
		yield = &y
		yieldNote = "10Y yield derived from ^TNX/10"
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	snapshot := &models.MarketSnapshot{
		IndexPrice:          indexPrice,
		SecondaryIndexPrice: secondaryPrice,
		SentimentIndex:      reading.Score,
		Volatility:          volatility,
		TreasuryYield:       yield,
		PutCallRatio:        reading.PutCallRatio,
		CollectedAt:         time.Now(),
	}
	// notes in fixed field order, for prompt determinism
	if indexNote != "" {
		snapshot.Notes = append(snapshot.Notes, indexNote)
	}
	if yieldNote != "" {
		snapshot.Notes = append(snapshot.Notes, yieldNote)
	}

	log.WithField("index", snapshot.IndexPrice.StringFixed(2)).
		WithField("sentiment", snapshot.SentimentIndex).
		Info("market snapshot collected")

	return snapshot, nil
}

func (c *Collector) quoteWithRetry(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := resilience.WithRetry(ctx, c.retry, func(ctx context.Context) error {
		p, err := c.primary.Quote(ctx, symbol)
		if err != nil {
			return err
		}
		price = p
		return nil
	})
	return price, err
}

func (c *Collector) fallbackWithRetry(ctx context.Context, fetch func() (decimal.Decimal, error)) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := resilience.WithRetry(ctx, c.retry, func(ctx context.Context) error {
		p, err := fetch()
		if err != nil {
			return err
		}
		price = p
		return nil
	})
	return price, err
}

func (c *Collector) sentimentWithRetry(ctx context.Context) (*SentimentReading, error) {
	var reading *SentimentReading
	err := resilience.WithRetry(ctx, c.retry, func(ctx context.Context) error {
		r, err := c.sentiment.Sentiment(ctx)
		if err != nil {
			return err
		}
		reading = r
		return nil
	})
	return reading, err
}
