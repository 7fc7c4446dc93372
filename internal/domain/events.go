package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is a single state-changing record. Current state of any entity is
// derived by replaying its events in append order.
type Event interface {
	ID() uuid.UUID
	Time() time.Time
}

// OrderEvent is an Event that applies to one order.
type OrderEvent interface {
	Event
	OrderID() ClientOrderID
}

// EventMeta carries the identity and timestamp common to every event.
// Timestamps are normalized to UTC so a decoded event compares equal to the
// one that was encoded.
type EventMeta struct {
	EventID   uuid.UUID
	Timestamp time.Time
}

// NewEventMeta returns metadata with a fresh event id.
func NewEventMeta(ts time.Time) EventMeta {
	return EventMeta{EventID: uuid.New(), Timestamp: ts.UTC()}
}

func (m EventMeta) ID() uuid.UUID   { return m.EventID }
func (m EventMeta) Time() time.Time { return m.Timestamp }

// OrderInitialized is the creation record for an order: the intent that
// produced it. It is log entry 0 and is serialized by the command codec,
// unlike the applied events that follow it.
type OrderInitialized struct {
	EventMeta
	ClientOrderID ClientOrderID
	StrategyID    StrategyID
	Symbol        Symbol
	Side          OrderSide
	OrderType     OrderType
	Quantity      decimal.Decimal
	Price         *decimal.Decimal // nil for market orders
	TimeInForce   TimeInForce
}

func (e *OrderInitialized) OrderID() ClientOrderID { return e.ClientOrderID }

// OrderSubmitted records the order being sent to the venue.
type OrderSubmitted struct {
	EventMeta
	ClientOrderID ClientOrderID
}

func (e *OrderSubmitted) OrderID() ClientOrderID { return e.ClientOrderID }

// OrderAccepted records venue acknowledgement and carries the venue order id.
type OrderAccepted struct {
	EventMeta
	ClientOrderID ClientOrderID
	VenueOrderID  VenueOrderID
}

func (e *OrderAccepted) OrderID() ClientOrderID { return e.ClientOrderID }

// OrderRejected records a venue rejection. Terminal.
type OrderRejected struct {
	EventMeta
	ClientOrderID ClientOrderID
	Reason        string
}

func (e *OrderRejected) OrderID() ClientOrderID { return e.ClientOrderID }

// OrderWorking records the order resting on the book (stop/limit orders).
type OrderWorking struct {
	EventMeta
	ClientOrderID ClientOrderID
	VenueOrderID  VenueOrderID
}

func (e *OrderWorking) OrderID() ClientOrderID { return e.ClientOrderID }

// OrderCancelled records a cancellation. Terminal.
type OrderCancelled struct {
	EventMeta
	ClientOrderID ClientOrderID
}

func (e *OrderCancelled) OrderID() ClientOrderID { return e.ClientOrderID }

// OrderExpired records expiry of a timed order. Terminal.
type OrderExpired struct {
	EventMeta
	ClientOrderID ClientOrderID
}

func (e *OrderExpired) OrderID() ClientOrderID { return e.ClientOrderID }

// OrderFilled records a fill. It is also the event that opens and moves
// positions: a position's log is a sequence of fills.
type OrderFilled struct {
	EventMeta
	ClientOrderID ClientOrderID
	VenueOrderID  VenueOrderID
	ExecutionID   ExecutionID
	PositionID    PositionID
	StrategyID    StrategyID
	Symbol        Symbol
	Side          OrderSide
	Quantity      decimal.Decimal
	Price         decimal.Decimal
}

func (e *OrderFilled) OrderID() ClientOrderID { return e.ClientOrderID }

// AccountState is the full-state snapshot event for an account. Accounts use
// upsert semantics: only the latest state is persisted.
type AccountState struct {
	EventMeta
	AccountID       AccountID
	Currency        string
	Balance         decimal.Decimal
	MarginBalance   decimal.Decimal
	MarginAvailable decimal.Decimal
}
