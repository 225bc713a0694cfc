package coinalyze

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wickengine/internal/domain/models"
	drepo "wickengine/internal/domain/repository"
	"wickengine/internal/service/ratelimit"
	"wickengine/pkg/logger"

	pkghttp "wickengine/pkg/http"
)

const (
	defaultBaseURL = "https://api.coinalyze.net/v1"
	requestTimeout = 10 * time.Second

	// oiLookback covers two 5-minute OI candles plus slack.
	oiLookback  = 15 * time.Minute
	liqLookback = 5 * time.Minute

	fundingIntervalHours = 8

	// Coinalyze free tier allows roughly 40 requests/minute; the limiter keeps
	// a multi-symbol poll loop under that.
	rateLimitKey      = "coinalyze"
	rateLimitCapacity = 40
	rateLimitRefill   = 40.0 / 60.0
)

// symbolMap translates exchange instrument IDs to Coinalyze aggregated
// perpetual symbols. Unmapped symbols fall back to a linear-perp guess.
var symbolMap = map[string]string{
	"BTC-USDT":      "BTCUSDT_PERP.A",
	"ETH-USDT":      "ETHUSDT_PERP.A",
	"SOL-USDT":      "SOLUSDT_PERP.A",
	"BTC-USDT-SWAP": "BTCUSDT_PERP.A",
	"ETH-USDT-SWAP": "ETHUSDT_PERP.A",
	"SOL-USDT-SWAP": "SOLUSDT_PERP.A",
}

// Client implements a DerivativesProvider on the Coinalyze REST API.
// All fetches are soft: rate-limit hits and upstream failures return empty
// results so the poll loop never stops.
type Client struct {
	baseURL string
	apiKey  string
	http    *pkghttp.Client
	limiter *ratelimit.Limiter
	log     *logger.Logger
}

func New(baseURL, apiKey string, limiter *ratelimit.Limiter, log *logger.Logger) drepo.DerivativesProvider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    pkghttp.NewClient(pkghttp.WithTimeout(requestTimeout)),
		limiter: limiter,
		log:     log,
	}
}

func convertSymbol(symbol string) string {
	if mapped, ok := symbolMap[symbol]; ok {
		return mapped
	}
	base := symbol
	if i := strings.Index(symbol, "-"); i > 0 {
		base = symbol[:i]
	}
	return base + "USDT_PERP.A"
}

func (c *Client) headers() map[string]string {
	h := map[string]string{}
	if c.apiKey != "" {
		h["api_key"] = c.apiKey
	}
	return h
}

func (c *Client) allowed(op string) bool {
	if c.limiter != nil && !c.limiter.Allow(rateLimitKey, rateLimitCapacity, rateLimitRefill) {
		c.log.Debug("coinalyze rate limited", logger.String("op", op))
		return false
	}
	return true
}

// historyEnvelope wraps the history endpoints' per-symbol response.
type historyEnvelope struct {
	Symbol  string          `json:"symbol"`
	History []historyCandle `json:"history"`
}

type historyCandle struct {
	T int64   `json:"t"` // ms epoch
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
}

// liqCandle is the liquidation-history record: l is long volume here, not low.
type liqCandle struct {
	T     int64   `json:"t"`
	Long  float64 `json:"l"`
	Short float64 `json:"s"`
}

type liqEnvelope struct {
	Symbol  string      `json:"symbol"`
	History []liqCandle `json:"history"`
}

type fundingRecord struct {
	Symbol    string  `json:"symbol"`
	Value     float64 `json:"value"`
	Predicted float64 `json:"predicted"`
	Update    int64   `json:"update"`
}

// FetchOpenInterest pulls the OI history window and derives an open/close
// delta from the last two candles, or from a lone candle's own range.
func (c *Client) FetchOpenInterest(ctx context.Context, symbol string) (*models.OIDeltaSnapshot, error) {
	if !c.allowed("open_interest") {
		return nil, nil
	}
	now := time.Now().UTC()
	var envs []historyEnvelope
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:  pkghttp.MethodGet,
		URL:     c.baseURL + "/open-interest-history",
		Headers: c.headers(),
		QueryParams: map[string][]string{
			"symbols":  {convertSymbol(symbol)},
			"interval": {"5min"},
			"from":     {fmt.Sprint(now.Add(-oiLookback).Unix())},
			"to":       {fmt.Sprint(now.Unix())},
		},
	}, &envs)
	if err != nil {
		c.log.Warn("coinalyze oi fetch failed",
			logger.String("symbol", symbol), logger.Error(err))
		return nil, nil
	}
	if len(envs) == 0 || len(envs[0].History) == 0 {
		return nil, nil
	}

	records := envs[0].History
	curr := records[len(records)-1]
	snap := &models.OIDeltaSnapshot{
		TS:     time.UnixMilli(curr.T).UTC(),
		Symbol: symbol,
	}
	if len(records) >= 2 {
		prev := records[len(records)-2]
		snap.OIOpen = prev.C
		snap.OIClose = curr.C
	} else {
		snap.OIOpen = curr.O
		snap.OIClose = curr.C
	}
	snap.DeltaOI = snap.OIClose - snap.OIOpen
	return snap, nil
}

// FetchFundingRate pulls the current funding rate. Coinalyze reports percent;
// the snapshot stores decimals. The next funding timestamp is the next 8-hour
// boundary in UTC.
func (c *Client) FetchFundingRate(ctx context.Context, symbol string) (*models.FundingSnapshot, error) {
	if !c.allowed("funding") {
		return nil, nil
	}
	var records []fundingRecord
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:  pkghttp.MethodGet,
		URL:     c.baseURL + "/funding-rate",
		Headers: c.headers(),
		QueryParams: map[string][]string{
			"symbols": {convertSymbol(symbol)},
		},
	}, &records)
	if err != nil {
		c.log.Warn("coinalyze funding fetch failed",
			logger.String("symbol", symbol), logger.Error(err))
		return nil, nil
	}
	if len(records) == 0 {
		return nil, nil
	}

	rec := records[0]
	next := rec.Predicted
	if next == 0 {
		next = rec.Value
	}
	now := time.Now().UTC()
	return &models.FundingSnapshot{
		TS:              now,
		Symbol:          symbol,
		FundingRateNow:  rec.Value / 100,
		FundingRateNext: next / 100,
		NextFundingTS:   nextFundingTime(now),
	}, nil
}

// FetchLiquidations pulls forced-liquidation volume candles over the short
// lookback and expands them into per-side events.
func (c *Client) FetchLiquidations(ctx context.Context, symbol string) ([]models.LiquidationEvent, error) {
	if !c.allowed("liquidations") {
		return nil, nil
	}
	now := time.Now().UTC()
	var envs []liqEnvelope
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:  pkghttp.MethodGet,
		URL:     c.baseURL + "/liquidation-history",
		Headers: c.headers(),
		QueryParams: map[string][]string{
			"symbols":  {convertSymbol(symbol)},
			"interval": {"5min"},
			"from":     {fmt.Sprint(now.Add(-liqLookback).Unix())},
			"to":       {fmt.Sprint(now.Unix())},
		},
	}, &envs)
	if err != nil {
		c.log.Warn("coinalyze liquidation fetch failed",
			logger.String("symbol", symbol), logger.Error(err))
		return nil, nil
	}
	if len(envs) == 0 {
		return nil, nil
	}

	var events []models.LiquidationEvent
	for _, rec := range envs[0].History {
		ts := time.UnixMilli(rec.T).UTC()
		if rec.Long > 0 {
			events = append(events, models.LiquidationEvent{
				TS: ts, Symbol: symbol, Side: models.LiqLong, Volume: rec.Long,
			})
		}
		if rec.Short > 0 {
			events = append(events, models.LiquidationEvent{
				TS: ts, Symbol: symbol, Side: models.LiqShort, Volume: rec.Short,
			})
		}
	}
	return events, nil
}

func (c *Client) Close() error { return nil }

// nextFundingTime returns the next 00/08/16 UTC boundary after now.
func nextFundingTime(now time.Time) time.Time {
	nextHour := ((now.Hour() / fundingIntervalHours) + 1) * fundingIntervalHours
	day := now.Truncate(24 * time.Hour)
	if nextHour >= 24 {
		return day.Add(24 * time.Hour)
	}
	return day.Add(time.Duration(nextHour) * time.Hour)
}
