package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PositionStatus tracks whether a position is open or closed.
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

// Position is an event-sourced position aggregate. Its log is seeded by the
// fill that opened it, followed by every subsequent fill in application
// order; replaying the fills through a fresh Position reproduces it exactly.
type Position struct {
	ID            PositionID
	StrategyID    StrategyID
	Symbol        Symbol
	EntrySide     OrderSide
	Quantity      decimal.Decimal // net absolute quantity
	PeakQuantity  decimal.Decimal
	BuyQty        decimal.Decimal
	SellQty       decimal.Decimal
	AvgOpenPrice  decimal.Decimal
	AvgClosePrice decimal.Decimal
	Status        PositionStatus
	OrderIDs      []ClientOrderID // contributing orders, append-only
	OpenedAt      time.Time
	ClosedAt      *time.Time

	events []*OrderFilled
}

// NewPosition opens a position from its first fill.
func NewPosition(fill *OrderFilled) *Position {
	p := &Position{
		ID:            fill.PositionID,
		StrategyID:    fill.StrategyID,
		Symbol:        fill.Symbol,
		EntrySide:     fill.Side,
		Quantity:      decimal.Zero,
		PeakQuantity:  decimal.Zero,
		BuyQty:        decimal.Zero,
		SellQty:       decimal.Zero,
		AvgOpenPrice:  decimal.Zero,
		AvgClosePrice: decimal.Zero,
		Status:        PositionStatusOpen,
		OpenedAt:      fill.Time(),
	}
	p.fold(fill)
	return p
}

// Apply folds a subsequent fill into the position.
func (p *Position) Apply(fill *OrderFilled) error {
	if !fill.PositionID.IsNull() && fill.PositionID != p.ID {
		return fmt.Errorf("position %s: fill for position %s: %w",
			p.ID, fill.PositionID, ErrInvalidStateTransition)
	}
	if p.Status == PositionStatusClosed {
		return fmt.Errorf("position %s: fill after close: %w", p.ID, ErrInvalidStateTransition)
	}
	p.fold(fill)
	return nil
}

// Events returns every fill applied to the position, the opening fill first.
func (p *Position) Events() []*OrderFilled { return p.events }

// LastEvent returns the most recently applied fill.
func (p *Position) LastEvent() *OrderFilled {
	return p.events[len(p.events)-1]
}

// EventCount returns the number of fills applied.
func (p *Position) EventCount() int { return len(p.events) }

// IsOpen reports whether the position still carries quantity.
func (p *Position) IsOpen() bool { return p.Status == PositionStatusOpen }

// IsClosed reports whether the position has gone flat.
func (p *Position) IsClosed() bool { return p.Status == PositionStatusClosed }

func (p *Position) fold(fill *OrderFilled) {
	if fill.Side == p.EntrySide {
		p.AvgOpenPrice = weightedAvg(p.AvgOpenPrice, p.openQty(), fill.Price, fill.Quantity)
	} else {
		p.AvgClosePrice = weightedAvg(p.AvgClosePrice, p.closeQty(), fill.Price, fill.Quantity)
	}

	if fill.Side == OrderSideBuy {
		p.BuyQty = p.BuyQty.Add(fill.Quantity)
	} else {
		p.SellQty = p.SellQty.Add(fill.Quantity)
	}

	p.Quantity = p.BuyQty.Sub(p.SellQty).Abs()
	if p.Quantity.Cmp(p.PeakQuantity) > 0 {
		p.PeakQuantity = p.Quantity
	}

	if p.Quantity.IsZero() {
		p.Status = PositionStatusClosed
		ts := fill.Time()
		p.ClosedAt = &ts
	} else {
		p.Status = PositionStatusOpen
		p.ClosedAt = nil
	}

	p.appendOrderID(fill.ClientOrderID)
	p.events = append(p.events, fill)
}

// RealizedPoints returns the price distance captured by the closed portion
// of the position: positive when the exits improved on the entries.
func (p *Position) RealizedPoints() decimal.Decimal {
	if p.closeQty().IsZero() {
		return decimal.Zero
	}
	if p.EntrySide == OrderSideBuy {
		return p.AvgClosePrice.Sub(p.AvgOpenPrice)
	}
	return p.AvgOpenPrice.Sub(p.AvgClosePrice)
}

func (p *Position) openQty() decimal.Decimal {
	if p.EntrySide == OrderSideBuy {
		return p.BuyQty
	}
	return p.SellQty
}

func (p *Position) closeQty() decimal.Decimal {
	if p.EntrySide == OrderSideBuy {
		return p.SellQty
	}
	return p.BuyQty
}

func (p *Position) appendOrderID(id ClientOrderID) {
	for _, existing := range p.OrderIDs {
		if existing == id {
			return
		}
	}
	p.OrderIDs = append(p.OrderIDs, id)
}

func weightedAvg(avg, qty, price, fillQty decimal.Decimal) decimal.Decimal {
	total := qty.Add(fillQty)
	if total.IsZero() {
		return avg
	}
	return avg.Mul(qty).Add(price.Mul(fillQty)).Div(total)
}
