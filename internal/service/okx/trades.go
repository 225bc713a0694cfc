package okx

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"wickengine/internal/domain/models"
	drepo "wickengine/internal/domain/repository"
	"wickengine/pkg/logger"
)

const tradeBuffer = 1024

// TradeStream implements a live trade-tape subscription over the OKX public
// trades channel.
type TradeStream struct {
	*wsClient
}

func NewTradeStream(url string, symbols []string, log *logger.Logger) drepo.TradeStream {
	return &TradeStream{wsClient: newWSClient(url, "trades", symbols, log)}
}

// okxTrade is the wire form of one trades-channel entry. OKX encodes all
// numerics as strings.
type okxTrade struct {
	InstID string `json:"instId"`
	Px     string `json:"px"`
	Sz     string `json:"sz"`
	Side   string `json:"side"`
	TS     string `json:"ts"` // ms epoch
}

// Read streams validated trades. Malformed or non-positive entries are logged
// and dropped; the error channel fires only when the reconnect budget is
// exhausted. Both channels close when the stream ends.
func (s *TradeStream) Read(ctx context.Context) (<-chan *models.Trade, <-chan error) {
	trades := make(chan *models.Trade, tradeBuffer)
	errs := make(chan error, 1)

	go s.pingLoop(ctx)
	go func() {
		defer close(trades)
		defer close(errs)
		err := s.readLoop(ctx, func(env *wsEnvelope) {
			for _, raw := range env.Data {
				t, ok := s.parseTrade(raw)
				if !ok {
					continue
				}
				select {
				case trades <- t:
				default:
					// drop on backpressure, never block the socket
				}
			}
		})
		if err != nil {
			errs <- err
		}
	}()
	return trades, errs
}

func (s *TradeStream) parseTrade(raw json.RawMessage) (*models.Trade, bool) {
	var wire okxTrade
	if err := json.Unmarshal(raw, &wire); err != nil {
		s.log.Warn("okx trade decode failed", logger.Error(err))
		return nil, false
	}
	price, err := strconv.ParseFloat(wire.Px, 64)
	if err != nil || price <= 0 {
		s.log.Warn("okx trade invalid price",
			logger.String("symbol", wire.InstID),
			logger.String("px", wire.Px))
		return nil, false
	}
	size, err := strconv.ParseFloat(wire.Sz, 64)
	if err != nil || size <= 0 {
		s.log.Warn("okx trade invalid size",
			logger.String("symbol", wire.InstID),
			logger.String("sz", wire.Sz))
		return nil, false
	}
	side := models.TradeSide(wire.Side)
	if side != models.SideBuy && side != models.SideSell {
		s.log.Warn("okx trade invalid side",
			logger.String("symbol", wire.InstID),
			logger.String("side", wire.Side))
		return nil, false
	}
	ms, err := strconv.ParseInt(wire.TS, 10, 64)
	if err != nil || ms <= 0 {
		return nil, false
	}
	return &models.Trade{
		TS:     time.UnixMilli(ms).UTC(),
		Symbol: wire.InstID,
		Price:  price,
		Size:   size,
		Side:   side,
	}, true
}
