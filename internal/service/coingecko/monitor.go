package coingecko

import (
	"context"
	"sync"
	"time"

	"wickengine/internal/domain/models"
	"wickengine/pkg/logger"

	pkghttp "wickengine/pkg/http"
)

const (
	defaultBaseURL = "https://api.coingecko.com/api/v3"
	requestTimeout = 10 * time.Second

	defaultPollInterval = 60 * time.Second
	trendWindow         = time.Hour

	// Dominance drift beyond ±1% over the window flips the trend label.
	trendThreshold = 0.01
)

type dominancePoint struct {
	ts    time.Time
	value float64
}

// Monitor polls CoinGecko's global endpoint and keeps the latest dominance
// state plus a rolling one-hour USDT dominance trend. Implements MacroProvider.
type Monitor struct {
	baseURL  string
	apiKey   string
	interval time.Duration
	http     *pkghttp.Client
	log      *logger.Logger

	mu      sync.RWMutex
	state   models.MacroState
	history []dominancePoint
}

func NewMonitor(baseURL, apiKey string, interval time.Duration, log *logger.Logger) *Monitor {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Monitor{
		baseURL:  baseURL,
		apiKey:   apiKey,
		interval: interval,
		http:     pkghttp.NewClient(pkghttp.WithTimeout(requestTimeout)),
		log:      log,
		state:    models.MacroState{USDTTrend: "NEUTRAL"},
	}
}

// Run polls until the context ends. Poll failures keep the previous state.
func (m *Monitor) Run(ctx context.Context) {
	m.log.Info("macro monitor started", logger.Duration("interval", m.interval))
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			m.log.Info("macro monitor stopped")
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

type globalResponse struct {
	Data struct {
		MarketCapPercentage map[string]float64 `json:"market_cap_percentage"`
	} `json:"data"`
}

func (m *Monitor) poll(ctx context.Context) {
	headers := map[string]string{}
	if m.apiKey != "" {
		headers["x-cg-demo-api-key"] = m.apiKey
	}
	var resp globalResponse
	err := m.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:  pkghttp.MethodGet,
		URL:     m.baseURL + "/global",
		Headers: headers,
	}, &resp)
	if err != nil {
		m.log.Warn("macro poll failed", logger.Error(err))
		return
	}

	now := time.Now().UTC()
	usdtD := resp.Data.MarketCapPercentage["usdt"]
	btcD := resp.Data.MarketCapPercentage["btc"]

	m.mu.Lock()
	m.state.USDTDominance = usdtD
	m.state.BTCDominance = btcD
	m.state.LastUpdate = now
	m.state.USDTTrend = m.updateTrend(now, usdtD)
	trend := m.state.USDTTrend
	m.mu.Unlock()

	m.log.Info("macro updated",
		logger.Any("usdt_d", usdtD),
		logger.Any("btc_d", btcD),
		logger.String("usdt_trend", trend))
}

// updateTrend appends the observation, prunes beyond the window, and compares
// the newest reading against the oldest surviving one. Caller holds mu.
func (m *Monitor) updateTrend(now time.Time, usdtD float64) string {
	m.history = append(m.history, dominancePoint{ts: now, value: usdtD})
	cutoff := now.Add(-trendWindow)
	for len(m.history) > 0 && !m.history[0].ts.After(cutoff) {
		m.history = m.history[1:]
	}
	if len(m.history) < 2 {
		return "NEUTRAL"
	}
	start, end := m.history[0].value, m.history[len(m.history)-1].value
	switch {
	case end > start*(1+trendThreshold):
		return "UP"
	case end < start*(1-trendThreshold):
		return "DOWN"
	default:
		return "NEUTRAL"
	}
}

// State returns the latest macro snapshot.
func (m *Monitor) State() models.MacroState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// LastUpdate reports the time of the last successful poll.
func (m *Monitor) LastUpdate() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.LastUpdate
}
