package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hmkim/marketbrief/config"
)

// FearGreedClient fetches CNN's fear & greed gauge, the pipeline's market
// sentiment source. The same payload carries the put/call options series.
type FearGreedClient struct {
	client *resty.Client
	cache  *CacheManager
}

func NewFearGreedClient(cfg *config.Config) *FearGreedClient {
	cacheDir := filepath.Join(cfg.DataCacheDir, "feargreed")
	cache := NewCacheManager(cacheDir, 30*time.Minute, cfg.CacheEnabled)

	client := resty.New()
	client.SetBaseURL("https://production.dataviz.cnn.io")
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", "marketbrief/1.0")

	return &FearGreedClient{client: client, cache: cache}
}

// SentimentReading is the normalized fear & greed result.
type SentimentReading struct {
	Score        float64  `json:"score"`
	Rating       string   `json:"rating"`
	PutCallRatio *float64 `json:"put_call_ratio,omitempty"`
}

type fearGreedPayload struct {
	FearAndGreed struct {
		Score  float64 `json:"score"`
		Rating string  `json:"rating"`
	} `json:"fear_and_greed"`
	PutCallOptions struct {
		Data []struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"data"`
	} `json:"put_call_options"`
}

// Sentiment fetches the current gauge reading, 0-100.
func (fg *FearGreedClient) Sentiment(ctx context.Context) (*SentimentReading, error) {
	var cached SentimentReading
	if fg.cache.Get("feargreed", "graphdata", "current", &cached) {
		return &cached, nil
	}

	resp, err := fg.client.R().
		SetContext(ctx).
		Get("/index/fearandgreed/graphdata")
	if err != nil {
		return nil, fmt.Errorf("fetch fear & greed index: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
	}

	var payload fearGreedPayload
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("parse fear & greed response: %w", err)
	}
	if payload.FearAndGreed.Score < 0 || payload.FearAndGreed.Score > 100 {
		return nil, fmt.Errorf("fear & greed score %.1f out of range", payload.FearAndGreed.Score)
	}

	reading := &SentimentReading{
		Score:  payload.FearAndGreed.Score,
		Rating: payload.FearAndGreed.Rating,
	}
	if n := len(payload.PutCallOptions.Data); n > 0 {
		ratio := payload.PutCallOptions.Data[n-1].Y
		reading.PutCallRatio = &ratio
	}

	fg.cache.Set("feargreed", "graphdata", "current", reading)

	return reading, nil
}
