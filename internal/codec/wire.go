// Package codec implements the command and event codecs consumed by the
// execution database. Domain values are mapped to explicit wire structs
// (decimals as strings, timestamps as UTC unix nanoseconds, uuids as
// strings) so that both the MsgPack and JSON forms are deterministic and
// round-trip exactly.
package codec

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quantfabric/execdb/internal/domain"
)

type marshalFunc func(v any) ([]byte, error)
type unmarshalFunc func(data []byte, v any) error

// Wire type tags. These are part of the stored format; renaming one breaks
// replay of existing logs.
const (
	typeOrderInitialized = "OrderInitialized"
	typeOrderSubmitted   = "OrderSubmitted"
	typeOrderAccepted    = "OrderAccepted"
	typeOrderRejected    = "OrderRejected"
	typeOrderWorking     = "OrderWorking"
	typeOrderCancelled   = "OrderCancelled"
	typeOrderExpired     = "OrderExpired"
	typeOrderFilled      = "OrderFilled"
	typeAccountState     = "AccountState"
)

// envelope wraps every record with its type tag.
type envelope struct {
	Type    string `json:"type" msgpack:"type"`
	Payload []byte `json:"payload" msgpack:"payload"`
}

type wireMeta struct {
	EventID   string `json:"event_id" msgpack:"event_id"`
	Timestamp int64  `json:"ts" msgpack:"ts"`
}

type wireOrderInitialized struct {
	wireMeta
	ClientOrderID string `json:"cl_ord_id" msgpack:"cl_ord_id"`
	StrategyID    string `json:"strategy_id" msgpack:"strategy_id"`
	Symbol        string `json:"symbol" msgpack:"symbol"`
	Side          string `json:"side" msgpack:"side"`
	OrderType     string `json:"order_type" msgpack:"order_type"`
	Quantity      string `json:"quantity" msgpack:"quantity"`
	Price         string `json:"price,omitempty" msgpack:"price"`
	TimeInForce   string `json:"time_in_force" msgpack:"time_in_force"`
}

type wireOrderSubmitted struct {
	wireMeta
	ClientOrderID string `json:"cl_ord_id" msgpack:"cl_ord_id"`
}

type wireOrderAccepted struct {
	wireMeta
	ClientOrderID string `json:"cl_ord_id" msgpack:"cl_ord_id"`
	VenueOrderID  string `json:"venue_ord_id" msgpack:"venue_ord_id"`
}

type wireOrderRejected struct {
	wireMeta
	ClientOrderID string `json:"cl_ord_id" msgpack:"cl_ord_id"`
	Reason        string `json:"reason" msgpack:"reason"`
}

type wireOrderWorking struct {
	wireMeta
	ClientOrderID string `json:"cl_ord_id" msgpack:"cl_ord_id"`
	VenueOrderID  string `json:"venue_ord_id" msgpack:"venue_ord_id"`
}

type wireOrderCancelled struct {
	wireMeta
	ClientOrderID string `json:"cl_ord_id" msgpack:"cl_ord_id"`
}

type wireOrderExpired struct {
	wireMeta
	ClientOrderID string `json:"cl_ord_id" msgpack:"cl_ord_id"`
}

type wireOrderFilled struct {
	wireMeta
	ClientOrderID string `json:"cl_ord_id" msgpack:"cl_ord_id"`
	VenueOrderID  string `json:"venue_ord_id" msgpack:"venue_ord_id"`
	ExecutionID   string `json:"exec_id" msgpack:"exec_id"`
	PositionID    string `json:"position_id" msgpack:"position_id"`
	StrategyID    string `json:"strategy_id" msgpack:"strategy_id"`
	Symbol        string `json:"symbol" msgpack:"symbol"`
	Side          string `json:"side" msgpack:"side"`
	Quantity      string `json:"quantity" msgpack:"quantity"`
	Price         string `json:"price" msgpack:"price"`
}

type wireAccountState struct {
	wireMeta
	AccountID       string `json:"account_id" msgpack:"account_id"`
	Currency        string `json:"currency" msgpack:"currency"`
	Balance         string `json:"balance" msgpack:"balance"`
	MarginBalance   string `json:"margin_balance" msgpack:"margin_balance"`
	MarginAvailable string `json:"margin_available" msgpack:"margin_available"`
}

func toWireMeta(m domain.EventMeta) wireMeta {
	return wireMeta{EventID: m.EventID.String(), Timestamp: m.Timestamp.UnixNano()}
}

func fromWireMeta(w wireMeta) (domain.EventMeta, error) {
	id, err := uuid.Parse(w.EventID)
	if err != nil {
		return domain.EventMeta{}, decodeErr(fmt.Errorf("event id %q: %w", w.EventID, err))
	}
	return domain.EventMeta{EventID: id, Timestamp: time.Unix(0, w.Timestamp).UTC()}, nil
}

func parseDec(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, decodeErr(fmt.Errorf("%s %q: %w", field, s, err))
	}
	return d, nil
}

func optPriceString(p *decimal.Decimal) string {
	if p == nil {
		return ""
	}
	return p.String()
}

func parseOptPrice(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := parseDec("price", s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func decodeErr(err error) error {
	return fmt.Errorf("codec: %w: %w", domain.ErrDeserialization, err)
}

// ---------------------------------------------------------------------------
// Shared encode/decode logic. The concrete codecs only differ in the marshal
// and unmarshal functions they pass in.
// ---------------------------------------------------------------------------

func encodeOrderInit(init *domain.OrderInitialized, marshal marshalFunc) ([]byte, error) {
	w := wireOrderInitialized{
		wireMeta:      toWireMeta(init.EventMeta),
		ClientOrderID: string(init.ClientOrderID),
		StrategyID:    string(init.StrategyID),
		Symbol:        string(init.Symbol),
		Side:          string(init.Side),
		OrderType:     string(init.OrderType),
		Quantity:      init.Quantity.String(),
		Price:         optPriceString(init.Price),
		TimeInForce:   string(init.TimeInForce),
	}
	return sealEnvelope(typeOrderInitialized, w, marshal)
}

func decodeOrderInit(data []byte, unmarshal unmarshalFunc) (*domain.OrderInitialized, error) {
	env, err := openEnvelope(data, unmarshal)
	if err != nil {
		return nil, err
	}
	if env.Type != typeOrderInitialized {
		return nil, decodeErr(fmt.Errorf("expected %s, got %q", typeOrderInitialized, env.Type))
	}
	var w wireOrderInitialized
	if err := unmarshal(env.Payload, &w); err != nil {
		return nil, decodeErr(err)
	}
	return orderInitFromWire(w)
}

func orderInitFromWire(w wireOrderInitialized) (*domain.OrderInitialized, error) {
	meta, err := fromWireMeta(w.wireMeta)
	if err != nil {
		return nil, err
	}
	qty, err := parseDec("quantity", w.Quantity)
	if err != nil {
		return nil, err
	}
	price, err := parseOptPrice(w.Price)
	if err != nil {
		return nil, err
	}
	return &domain.OrderInitialized{
		EventMeta:     meta,
		ClientOrderID: domain.ClientOrderID(w.ClientOrderID),
		StrategyID:    domain.StrategyID(w.StrategyID),
		Symbol:        domain.Symbol(w.Symbol),
		Side:          domain.OrderSide(w.Side),
		OrderType:     domain.OrderType(w.OrderType),
		Quantity:      qty,
		Price:         price,
		TimeInForce:   domain.TimeInForce(w.TimeInForce),
	}, nil
}

func encodeEvent(ev domain.Event, marshal marshalFunc) ([]byte, error) {
	switch e := ev.(type) {
	case *domain.OrderSubmitted:
		return sealEnvelope(typeOrderSubmitted, wireOrderSubmitted{
			wireMeta:      toWireMeta(e.EventMeta),
			ClientOrderID: string(e.ClientOrderID),
		}, marshal)
	case *domain.OrderAccepted:
		return sealEnvelope(typeOrderAccepted, wireOrderAccepted{
			wireMeta:      toWireMeta(e.EventMeta),
			ClientOrderID: string(e.ClientOrderID),
			VenueOrderID:  string(e.VenueOrderID),
		}, marshal)
	case *domain.OrderRejected:
		return sealEnvelope(typeOrderRejected, wireOrderRejected{
			wireMeta:      toWireMeta(e.EventMeta),
			ClientOrderID: string(e.ClientOrderID),
			Reason:        e.Reason,
		}, marshal)
	case *domain.OrderWorking:
		return sealEnvelope(typeOrderWorking, wireOrderWorking{
			wireMeta:      toWireMeta(e.EventMeta),
			ClientOrderID: string(e.ClientOrderID),
			VenueOrderID:  string(e.VenueOrderID),
		}, marshal)
	case *domain.OrderCancelled:
		return sealEnvelope(typeOrderCancelled, wireOrderCancelled{
			wireMeta:      toWireMeta(e.EventMeta),
			ClientOrderID: string(e.ClientOrderID),
		}, marshal)
	case *domain.OrderExpired:
		return sealEnvelope(typeOrderExpired, wireOrderExpired{
			wireMeta:      toWireMeta(e.EventMeta),
			ClientOrderID: string(e.ClientOrderID),
		}, marshal)
	case *domain.OrderFilled:
		return sealEnvelope(typeOrderFilled, wireOrderFilled{
			wireMeta:      toWireMeta(e.EventMeta),
			ClientOrderID: string(e.ClientOrderID),
			VenueOrderID:  string(e.VenueOrderID),
			ExecutionID:   string(e.ExecutionID),
			PositionID:    string(e.PositionID),
			StrategyID:    string(e.StrategyID),
			Symbol:        string(e.Symbol),
			Side:          string(e.Side),
			Quantity:      e.Quantity.String(),
			Price:         e.Price.String(),
		}, marshal)
	case *domain.AccountState:
		return sealEnvelope(typeAccountState, wireAccountState{
			wireMeta:        toWireMeta(e.EventMeta),
			AccountID:       string(e.AccountID),
			Currency:        e.Currency,
			Balance:         e.Balance.String(),
			MarginBalance:   e.MarginBalance.String(),
			MarginAvailable: e.MarginAvailable.String(),
		}, marshal)
	default:
		return nil, fmt.Errorf("codec: unsupported event type %T", ev)
	}
}

func decodeEvent(data []byte, unmarshal unmarshalFunc) (domain.Event, error) {
	env, err := openEnvelope(data, unmarshal)
	if err != nil {
		return nil, err
	}

	switch env.Type {
	case typeOrderSubmitted:
		var w wireOrderSubmitted
		if err := unmarshal(env.Payload, &w); err != nil {
			return nil, decodeErr(err)
		}
		meta, err := fromWireMeta(w.wireMeta)
		if err != nil {
			return nil, err
		}
		return &domain.OrderSubmitted{
			EventMeta:     meta,
			ClientOrderID: domain.ClientOrderID(w.ClientOrderID),
		}, nil

	case typeOrderAccepted:
		var w wireOrderAccepted
		if err := unmarshal(env.Payload, &w); err != nil {
			return nil, decodeErr(err)
		}
		meta, err := fromWireMeta(w.wireMeta)
		if err != nil {
			return nil, err
		}
		return &domain.OrderAccepted{
			EventMeta:     meta,
			ClientOrderID: domain.ClientOrderID(w.ClientOrderID),
			VenueOrderID:  domain.VenueOrderID(w.VenueOrderID),
		}, nil

	case typeOrderRejected:
		var w wireOrderRejected
		if err := unmarshal(env.Payload, &w); err != nil {
			return nil, decodeErr(err)
		}
		meta, err := fromWireMeta(w.wireMeta)
		if err != nil {
			return nil, err
		}
		return &domain.OrderRejected{
			EventMeta:     meta,
			ClientOrderID: domain.ClientOrderID(w.ClientOrderID),
			Reason:        w.Reason,
		}, nil

	case typeOrderWorking:
		var w wireOrderWorking
		if err := unmarshal(env.Payload, &w); err != nil {
			return nil, decodeErr(err)
		}
		meta, err := fromWireMeta(w.wireMeta)
		if err != nil {
			return nil, err
		}
		return &domain.OrderWorking{
			EventMeta:     meta,
			ClientOrderID: domain.ClientOrderID(w.ClientOrderID),
			VenueOrderID:  domain.VenueOrderID(w.VenueOrderID),
		}, nil

	case typeOrderCancelled:
		var w wireOrderCancelled
		if err := unmarshal(env.Payload, &w); err != nil {
			return nil, decodeErr(err)
		}
		meta, err := fromWireMeta(w.wireMeta)
		if err != nil {
			return nil, err
		}
		return &domain.OrderCancelled{
			EventMeta:     meta,
			ClientOrderID: domain.ClientOrderID(w.ClientOrderID),
		}, nil

	case typeOrderExpired:
		var w wireOrderExpired
		if err := unmarshal(env.Payload, &w); err != nil {
			return nil, decodeErr(err)
		}
		meta, err := fromWireMeta(w.wireMeta)
		if err != nil {
			return nil, err
		}
		return &domain.OrderExpired{
			EventMeta:     meta,
			ClientOrderID: domain.ClientOrderID(w.ClientOrderID),
		}, nil

	case typeOrderFilled:
		var w wireOrderFilled
		if err := unmarshal(env.Payload, &w); err != nil {
			return nil, decodeErr(err)
		}
		return orderFilledFromWire(w)

	case typeAccountState:
		var w wireAccountState
		if err := unmarshal(env.Payload, &w); err != nil {
			return nil, decodeErr(err)
		}
		return accountStateFromWire(w)

	default:
		return nil, decodeErr(fmt.Errorf("unknown record type %q", env.Type))
	}
}

func orderFilledFromWire(w wireOrderFilled) (*domain.OrderFilled, error) {
	meta, err := fromWireMeta(w.wireMeta)
	if err != nil {
		return nil, err
	}
	qty, err := parseDec("quantity", w.Quantity)
	if err != nil {
		return nil, err
	}
	price, err := parseDec("price", w.Price)
	if err != nil {
		return nil, err
	}
	return &domain.OrderFilled{
		EventMeta:     meta,
		ClientOrderID: domain.ClientOrderID(w.ClientOrderID),
		VenueOrderID:  domain.VenueOrderID(w.VenueOrderID),
		ExecutionID:   domain.ExecutionID(w.ExecutionID),
		PositionID:    domain.PositionID(w.PositionID),
		StrategyID:    domain.StrategyID(w.StrategyID),
		Symbol:        domain.Symbol(w.Symbol),
		Side:          domain.OrderSide(w.Side),
		Quantity:      qty,
		Price:         price,
	}, nil
}

func accountStateFromWire(w wireAccountState) (*domain.AccountState, error) {
	meta, err := fromWireMeta(w.wireMeta)
	if err != nil {
		return nil, err
	}
	balance, err := parseDec("balance", w.Balance)
	if err != nil {
		return nil, err
	}
	marginBalance, err := parseDec("margin_balance", w.MarginBalance)
	if err != nil {
		return nil, err
	}
	marginAvailable, err := parseDec("margin_available", w.MarginAvailable)
	if err != nil {
		return nil, err
	}
	return &domain.AccountState{
		EventMeta:       meta,
		AccountID:       domain.AccountID(w.AccountID),
		Currency:        w.Currency,
		Balance:         balance,
		MarginBalance:   marginBalance,
		MarginAvailable: marginAvailable,
	}, nil
}

func sealEnvelope(typ string, payload any, marshal marshalFunc) ([]byte, error) {
	body, err := marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal %s: %w", typ, err)
	}
	data, err := marshal(envelope{Type: typ, Payload: body})
	if err != nil {
		return nil, fmt.Errorf("codec: marshal %s envelope: %w", typ, err)
	}
	return data, nil
}

func openEnvelope(data []byte, unmarshal unmarshalFunc) (envelope, error) {
	var env envelope
	if err := unmarshal(data, &env); err != nil {
		return envelope{}, decodeErr(err)
	}
	if env.Type == "" {
		return envelope{}, decodeErr(fmt.Errorf("missing record type"))
	}
	return env, nil
}
