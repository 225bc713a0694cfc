package repository

import (
	"context"
	"time"

	"wickengine/internal/domain/models"
)

// TradeStream is a live trade-tape subscription. Read yields validated trades
// only; malformed wire payloads are dropped inside the stream. The error
// channel carries transport failures the reconnect loop could not recover.
type TradeStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Trade, <-chan error)
	Close() error
	IsConnected() bool
}

// BookStream is a live N-level order-book subscription.
type BookStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.OrderBookSnapshot, <-chan error)
	Close() error
	IsConnected() bool
}

// DerivativesProvider pulls OI, funding, and liquidation snapshots. Calls are
// soft: a timeout or upstream failure yields (nil, nil) / empty, never an
// error that should stop the poll loop.
type DerivativesProvider interface {
	FetchOpenInterest(ctx context.Context, symbol string) (*models.OIDeltaSnapshot, error)
	FetchFundingRate(ctx context.Context, symbol string) (*models.FundingSnapshot, error)
	FetchLiquidations(ctx context.Context, symbol string) ([]models.LiquidationEvent, error)
	Close() error
}

// MacroProvider exposes the latest macro dominance state.
type MacroProvider interface {
	State() models.MacroState
	LastUpdate() time.Time
}

// Notifier is the best-effort alert sink. Send returns (false, nil) when the
// alert was suppressed by cooldown.
type Notifier interface {
	SendWickAlert(ctx context.Context, ev *models.WickEvent) (bool, error)
	Close() error
}

// EventLog is the append-only audit log. Append must surface write failures
// as typed errors; silent loss is not acceptable.
type EventLog interface {
	Append(ev *models.WickEvent) error
	Close() error
}

// EventPublisher pushes scored events to a message broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev *models.WickEvent) error
	Close() error
}

// EventStore archives scored events in a queryable backend.
type EventStore interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, ev *models.WickEvent) error
	QueryRecent(ctx context.Context, symbol string, limit int) ([]*models.WickEvent, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics records pipeline observability signals.
type Metrics interface {
	RecordTradeIngested(symbol string)
	RecordCandleClosed(symbol string)
	RecordWickDetected(symbol, side string)
	RecordAlertSent(symbol string)
	RecordEventPersisted(backend string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordFeedAge(feed string, seconds float64)
}
