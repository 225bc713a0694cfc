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

const bookBuffer = 256

// BookStream implements a 5-level order-book subscription over the OKX books5
// channel. books5 pushes full snapshots, so no delta merging is needed.
type BookStream struct {
	*wsClient
}

func NewBookStream(url string, symbols []string, log *logger.Logger) drepo.BookStream {
	return &BookStream{wsClient: newWSClient(url, "books5", symbols, log)}
}

// okxBook is the wire form of one books5 entry. Levels arrive as
// [price, size, liquidated orders, order count] string quadruples.
type okxBook struct {
	InstID string     `json:"instId"`
	Bids   [][]string `json:"bids"`
	Asks   [][]string `json:"asks"`
	TS     string     `json:"ts"`
}

// Read streams book snapshots. Invalid levels are skipped; snapshots with an
// empty side are dropped whole.
func (s *BookStream) Read(ctx context.Context) (<-chan *models.OrderBookSnapshot, <-chan error) {
	books := make(chan *models.OrderBookSnapshot, bookBuffer)
	errs := make(chan error, 1)

	go s.pingLoop(ctx)
	go func() {
		defer close(books)
		defer close(errs)
		err := s.readLoop(ctx, func(env *wsEnvelope) {
			for _, raw := range env.Data {
				ob, ok := s.parseBook(raw, env.Arg.InstID)
				if !ok {
					continue
				}
				select {
				case books <- ob:
				default:
				}
			}
		})
		if err != nil {
			errs <- err
		}
	}()
	return books, errs
}

func (s *BookStream) parseBook(raw json.RawMessage, instID string) (*models.OrderBookSnapshot, bool) {
	var wire okxBook
	if err := json.Unmarshal(raw, &wire); err != nil {
		s.log.Warn("okx book decode failed", logger.Error(err))
		return nil, false
	}
	symbol := wire.InstID
	if symbol == "" {
		symbol = instID
	}

	bids := s.parseLevels(wire.Bids, symbol)
	asks := s.parseLevels(wire.Asks, symbol)
	if len(bids) == 0 || len(asks) == 0 {
		return nil, false
	}

	ms, err := strconv.ParseInt(wire.TS, 10, 64)
	if err != nil || ms <= 0 {
		return nil, false
	}
	return &models.OrderBookSnapshot{
		TS:      time.UnixMilli(ms).UTC(),
		Symbol:  symbol,
		BestBid: bids[0].Price,
		BestAsk: asks[0].Price,
		Bids:    bids,
		Asks:    asks,
	}, true
}

func (s *BookStream) parseLevels(raw [][]string, symbol string) []models.BookLevel {
	levels := make([]models.BookLevel, 0, len(raw))
	for _, entry := range raw {
		if len(entry) < 2 {
			continue
		}
		price, err := strconv.ParseFloat(entry[0], 64)
		if err != nil || price <= 0 {
			s.log.Warn("okx book invalid level price",
				logger.String("symbol", symbol),
				logger.String("px", entry[0]))
			continue
		}
		size, err := strconv.ParseFloat(entry[1], 64)
		if err != nil || size < 0 {
			s.log.Warn("okx book invalid level size",
				logger.String("symbol", symbol),
				logger.String("sz", entry[1]))
			continue
		}
		levels = append(levels, models.BookLevel{Price: price, Size: size})
	}
	return levels
}
