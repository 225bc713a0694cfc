package discord

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"wickengine/internal/domain/models"
	drepo "wickengine/internal/domain/repository"
	"wickengine/pkg/logger"

	pkghttp "wickengine/pkg/http"
)

const (
	requestTimeout  = 10 * time.Second
	defaultCooldown = 5 * time.Minute

	colorBull = 0x00FF00
	colorBear = 0xFF0000
)

// Notifier posts wick alerts to Discord webhooks. A general webhook receives
// everything; per-asset webhooks receive their own symbols. Repeat alerts for
// the same symbol and wick side are suppressed for the cooldown window.
type Notifier struct {
	webhooks map[string]string // channel name -> webhook URL
	cooldown time.Duration
	http     *pkghttp.Client
	log      *logger.Logger
	now      func() time.Time

	mu        sync.Mutex
	lastAlert map[string]time.Time
}

// Config maps channel names to webhook URLs. The "general" channel receives
// every alert; any other key is matched as a substring of the symbol.
type Config struct {
	Webhooks map[string]string
	Cooldown time.Duration
}

func New(cfg Config, log *logger.Logger) drepo.Notifier {
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &Notifier{
		webhooks:  cfg.Webhooks,
		cooldown:  cooldown,
		http:      pkghttp.NewClient(pkghttp.WithTimeout(requestTimeout)),
		log:       log,
		now:       time.Now,
		lastAlert: make(map[string]time.Time),
	}
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Timestamp   string       `json:"timestamp"`
	Fields      []embedField `json:"fields"`
	Footer      struct {
		Text string `json:"text"`
	} `json:"footer"`
}

type webhookPayload struct {
	Username string  `json:"username"`
	Embeds   []embed `json:"embeds"`
}

// SendWickAlert posts the event to every matching webhook. Returns false with
// a nil error when the (symbol, side) pair is still cooling down; returns true
// when at least one webhook accepted the payload.
func (n *Notifier) SendWickAlert(ctx context.Context, ev *models.WickEvent) (bool, error) {
	key := fmt.Sprintf("%s_%s", ev.Symbol, ev.WickSide)
	if !n.checkCooldown(key) {
		n.log.Debug("discord alert suppressed", logger.String("key", key))
		return false, nil
	}

	payload := webhookPayload{
		Username: "wickengine",
		Embeds:   []embed{buildEmbed(ev, n.now().UTC())},
	}

	var sent bool
	var lastErr error
	for _, channel := range n.channels(ev.Symbol) {
		url := n.webhooks[channel]
		if url == "" {
			continue
		}
		err := n.http.SendAndParse(ctx, &pkghttp.RequestOptions{
			Method: pkghttp.MethodPost,
			URL:    url,
			Body:   payload,
		}, nil)
		if err != nil {
			n.log.Warn("discord send failed",
				logger.String("channel", channel), logger.Error(err))
			lastErr = err
			continue
		}
		sent = true
		n.log.Info("discord alert sent",
			logger.String("channel", channel),
			logger.String("symbol", ev.Symbol),
			logger.String("side", string(ev.WickSide)))
	}

	if sent {
		n.markSent(key)
		return true, nil
	}
	return false, lastErr
}

func (n *Notifier) Close() error { return nil }

func (n *Notifier) channels(symbol string) []string {
	channels := []string{"general"}
	upper := strings.ToUpper(symbol)
	for name := range n.webhooks {
		if name == "general" {
			continue
		}
		if strings.Contains(upper, strings.ToUpper(name)) {
			channels = append(channels, name)
		}
	}
	return channels
}

func (n *Notifier) checkCooldown(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	last, ok := n.lastAlert[key]
	return !ok || n.now().Sub(last) >= n.cooldown
}

func (n *Notifier) markSent(key string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lastAlert[key] = n.now()
}

func buildEmbed(ev *models.WickEvent, now time.Time) embed {
	emoji, direction, color := "🔴", "BEAR", colorBear
	if ev.WickSide == models.WickLower {
		emoji, direction, color = "🟢", "BULL", colorBull
	}
	f := ev.Features

	e := embed{
		Title:       fmt.Sprintf("%s %s WICK - %s", emoji, direction, ev.Symbol),
		Description: fmt.Sprintf("Wick detected on %s timeframe", ev.Timeframe),
		Color:       color,
		Timestamp:   now.Format(time.RFC3339),
		Fields: []embedField{
			{Name: "High", Value: fmt.Sprintf("$%.2f", ev.WickHigh), Inline: true},
			{Name: "Low", Value: fmt.Sprintf("$%.2f", ev.WickLow), Inline: true},
			{Name: "Wick Ratio", Value: fmt.Sprintf("%.2f", f.WickToBodyRatio), Inline: true},
			{Name: "Delta", Value: fmt.Sprintf("%+.4f", f.DeltaAtWick), Inline: true},
			{Name: "Depth Imbal", Value: fmt.Sprintf("%+.2f%%", f.DepthImbalance*100), Inline: true},
			{Name: "Funding", Value: fmt.Sprintf("%.4f%%", f.FundingRateNow*100), Inline: true},
			{Name: "Magnet", Value: fmt.Sprintf("%.0f", ev.Score.MagnetScore), Inline: true},
			{Name: "Confidence", Value: fmt.Sprintf("%.0f", ev.Score.Confidence), Inline: true},
		},
	}
	e.Footer.Text = "wickengine"
	return e
}
