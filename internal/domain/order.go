package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType is the order's execution instruction.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
	OrderTypeStop   OrderType = "stop"
)

// TimeInForce is the order's lifetime policy.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC" // Good-Till-Cancelled
	TimeInForceDay TimeInForce = "DAY"
	TimeInForceIOC TimeInForce = "IOC" // Immediate-Or-Cancel
	TimeInForceFOK TimeInForce = "FOK" // Fill-Or-Kill
)

// OrderStatus tracks the order lifecycle.
type OrderStatus string

const (
	OrderStatusInitialized     OrderStatus = "initialized"
	OrderStatusSubmitted       OrderStatus = "submitted"
	OrderStatusAccepted        OrderStatus = "accepted"
	OrderStatusRejected        OrderStatus = "rejected"
	OrderStatusWorking         OrderStatus = "working"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusExpired         OrderStatus = "expired"
)

// Completed reports whether the status is terminal. Every order is in exactly
// one of the working or completed categories; working is the complement.
func (s OrderStatus) Completed() bool {
	switch s {
	case OrderStatusRejected, OrderStatusFilled, OrderStatusCancelled, OrderStatusExpired:
		return true
	default:
		return false
	}
}

// orderTransitions is the allowed status transition table.
var orderTransitions = map[OrderStatus]map[OrderStatus]struct{}{
	OrderStatusInitialized: {
		OrderStatusSubmitted: {},
	},
	OrderStatusSubmitted: {
		OrderStatusAccepted:        {},
		OrderStatusRejected:        {},
		OrderStatusCancelled:       {},
		OrderStatusPartiallyFilled: {},
		OrderStatusFilled:          {},
	},
	OrderStatusAccepted: {
		OrderStatusWorking:         {},
		OrderStatusCancelled:       {},
		OrderStatusExpired:         {},
		OrderStatusPartiallyFilled: {},
		OrderStatusFilled:          {},
	},
	OrderStatusWorking: {
		OrderStatusCancelled:       {},
		OrderStatusExpired:         {},
		OrderStatusPartiallyFilled: {},
		OrderStatusFilled:          {},
	},
	OrderStatusPartiallyFilled: {
		OrderStatusPartiallyFilled: {},
		OrderStatusFilled:          {},
		OrderStatusCancelled:       {},
		OrderStatusExpired:         {},
	},
}

// Order is an event-sourced order aggregate. It is created from an
// OrderInitialized record and mutated exclusively through Apply; replaying
// the same records through a fresh Order reproduces it exactly.
type Order struct {
	ClientOrderID ClientOrderID
	VenueOrderID  VenueOrderID
	StrategyID    StrategyID
	Symbol        Symbol
	Side          OrderSide
	OrderType     OrderType
	Quantity      decimal.Decimal
	Price         *decimal.Decimal
	TimeInForce   TimeInForce
	Status        OrderStatus
	FilledQty     decimal.Decimal
	AvgPrice      decimal.Decimal

	init   *OrderInitialized
	events []OrderEvent
}

// NewOrder constructs an order in its initial state from its creation record.
func NewOrder(init *OrderInitialized) *Order {
	return &Order{
		ClientOrderID: init.ClientOrderID,
		StrategyID:    init.StrategyID,
		Symbol:        init.Symbol,
		Side:          init.Side,
		OrderType:     init.OrderType,
		Quantity:      init.Quantity,
		Price:         init.Price,
		TimeInForce:   init.TimeInForce,
		Status:        OrderStatusInitialized,
		FilledQty:     decimal.Zero,
		AvgPrice:      decimal.Zero,
		init:          init,
	}
}

// Init returns the creation record (log entry 0).
func (o *Order) Init() *OrderInitialized { return o.init }

// Events returns the applied events in application order, excluding the
// creation record.
func (o *Order) Events() []OrderEvent { return o.events }

// LastEvent returns the most recently applied event, or nil when the order
// has only been initialized.
func (o *Order) LastEvent() OrderEvent {
	if len(o.events) == 0 {
		return nil
	}
	return o.events[len(o.events)-1]
}

// EventCount returns the number of applied events.
func (o *Order) EventCount() int { return len(o.events) }

// IsCompleted reports whether the order has reached a terminal status.
func (o *Order) IsCompleted() bool { return o.Status.Completed() }

// IsWorking reports whether the order is still live.
func (o *Order) IsWorking() bool { return !o.Status.Completed() }

// Apply transitions the order with the given event. The transition table is
// enforced; an event that is not valid from the current status returns an
// error wrapping ErrInvalidStateTransition and leaves the order unchanged.
func (o *Order) Apply(ev OrderEvent) error {
	if ev.OrderID() != o.ClientOrderID {
		return fmt.Errorf("order %s: event for order %s: %w",
			o.ClientOrderID, ev.OrderID(), ErrInvalidStateTransition)
	}

	target, err := o.targetStatus(ev)
	if err != nil {
		return err
	}
	if _, ok := orderTransitions[o.Status][target]; !ok {
		return fmt.Errorf("order %s: %s -> %s: %w",
			o.ClientOrderID, o.Status, target, ErrInvalidStateTransition)
	}

	switch e := ev.(type) {
	case *OrderAccepted:
		o.VenueOrderID = e.VenueOrderID
	case *OrderWorking:
		o.VenueOrderID = e.VenueOrderID
	case *OrderFilled:
		o.fill(e)
	}

	o.Status = target
	o.events = append(o.events, ev)
	return nil
}

// targetStatus maps an event to the status it drives the order toward.
func (o *Order) targetStatus(ev OrderEvent) (OrderStatus, error) {
	switch e := ev.(type) {
	case *OrderSubmitted:
		return OrderStatusSubmitted, nil
	case *OrderAccepted:
		return OrderStatusAccepted, nil
	case *OrderRejected:
		return OrderStatusRejected, nil
	case *OrderWorking:
		return OrderStatusWorking, nil
	case *OrderCancelled:
		return OrderStatusCancelled, nil
	case *OrderExpired:
		return OrderStatusExpired, nil
	case *OrderFilled:
		if o.FilledQty.Add(e.Quantity).Cmp(o.Quantity) < 0 {
			return OrderStatusPartiallyFilled, nil
		}
		return OrderStatusFilled, nil
	default:
		return "", fmt.Errorf("order %s: unknown event %T: %w",
			o.ClientOrderID, ev, ErrInvalidStateTransition)
	}
}

// fill folds a fill into the filled quantity and volume-weighted average
// price.
func (o *Order) fill(e *OrderFilled) {
	total := o.FilledQty.Add(e.Quantity)
	if total.IsZero() {
		return
	}
	notional := o.AvgPrice.Mul(o.FilledQty).Add(e.Price.Mul(e.Quantity))
	o.AvgPrice = notional.Div(total)
	o.FilledQty = total
}
