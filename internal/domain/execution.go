package domain

import (
	"context"
	"time"
)

// CommandCodec serializes order creation records. Implementations must be
// deterministic and must report malformed bytes as an error wrapping
// ErrDeserialization, never as a zero value.
type CommandCodec interface {
	EncodeOrderInit(init *OrderInitialized) ([]byte, error)
	DecodeOrderInit(data []byte) (*OrderInitialized, error)
}

// EventCodec serializes applied events (order events and account states)
// under the same determinism and failure rules as CommandCodec.
type EventCodec interface {
	EncodeEvent(ev Event) ([]byte, error)
	DecodeEvent(data []byte) (Event, error)
}

// Residuals is the report produced by a consistency check: state left over
// from a prior run, plus any index entries that fail referential checks.
type Residuals struct {
	WorkingOrders []ClientOrderID
	OpenPositions []PositionID
	IndexGaps     []string
}

// Empty reports whether the check found nothing.
func (r Residuals) Empty() bool {
	return len(r.WorkingOrders) == 0 && len(r.OpenPositions) == 0 && len(r.IndexGaps) == 0
}

// JournalEntry is one audit row describing a persisted record.
type JournalEntry struct {
	ID         int64
	TraderID   TraderID
	Kind       string // "account", "order", "position", "strategy"
	EntityID   string
	RecordType string
	Payload    []byte
	RecordedAt time.Time
}

// EventJournal is an optional append-only audit of everything the execution
// database persists. It is advisory: journal failures must never fail a
// write.
type EventJournal interface {
	Record(ctx context.Context, entry JournalEntry) error
	List(ctx context.Context, traderID TraderID, limit int) ([]JournalEntry, error)
}

// ExecutionDatabase is the authoritative, crash-recoverable store of a
// trading engine's execution state, scoped to a single trader namespace.
//
// Writes touching more than one key are atomic: a reader observes them
// fully applied or not at all. A caller seeing an error wrapping
// ErrStoreUnavailable must treat the write as having had no effect.
//
// Single-entity loads return (nil, nil) for unknown ids; absence is not an
// error. The Account/Order/Orders/Position/Positions accessors read only the
// in-process cache populated by loads and writes — they never touch the
// store and are never the system of record.
type ExecutionDatabase interface {
	AddAccount(ctx context.Context, account *Account) error
	UpdateAccount(ctx context.Context, account *Account) error
	LoadAccount(ctx context.Context, id AccountID) (*Account, error)
	LoadAccounts(ctx context.Context) (map[AccountID]*Account, error)

	// AddOrder persists the creation record and registers the order under
	// its strategy, and under positionID unless it is null. The association
	// is immutable for the order's lifetime.
	AddOrder(ctx context.Context, order *Order, positionID PositionID, strategyID StrategyID) error
	// UpdateOrder appends the order's most recently applied event and
	// migrates its working/completed status membership.
	UpdateOrder(ctx context.Context, order *Order) error
	LoadOrder(ctx context.Context, id ClientOrderID) (*Order, error)
	LoadOrders(ctx context.Context) (map[ClientOrderID]*Order, error)

	AddPosition(ctx context.Context, position *Position, strategyID StrategyID) error
	UpdatePosition(ctx context.Context, position *Position) error
	LoadPosition(ctx context.Context, id PositionID) (*Position, error)
	LoadPositions(ctx context.Context) (map[PositionID]*Position, error)

	// UpdateStrategy registers the strategy; DeleteStrategy removes the
	// registry entry only — orders and positions previously attributed to
	// the strategy remain loadable.
	UpdateStrategy(ctx context.Context, id StrategyID) error
	DeleteStrategy(ctx context.Context, id StrategyID) error
	StrategyIDs(ctx context.Context) ([]StrategyID, error)

	Account(id AccountID) *Account
	Order(id ClientOrderID) *Order
	Orders() map[ClientOrderID]*Order
	Position(id PositionID) *Position
	Positions() map[PositionID]*Position

	OrderExists(ctx context.Context, id ClientOrderID) (bool, error)
	PositionExists(ctx context.Context, id PositionID) (bool, error)
	// PositionExistsForOrder reports whether the order maps to a position
	// that is itself known to the store.
	PositionExistsForOrder(ctx context.Context, id ClientOrderID) (bool, error)
	// PositionIndexedForOrder reports whether the order->position index
	// holds any entry for the order, regardless of whether that position
	// has been materialized.
	PositionIndexedForOrder(ctx context.Context, id ClientOrderID) (bool, error)

	// The id-set queries accept at most one optional strategy filter that
	// intersects the global set with the strategy-scoped membership set.
	OrderIDs(ctx context.Context, strategyID ...StrategyID) (map[ClientOrderID]struct{}, error)
	PositionIDs(ctx context.Context, strategyID ...StrategyID) (map[PositionID]struct{}, error)
	OrdersWorking(ctx context.Context, strategyID ...StrategyID) (map[ClientOrderID]struct{}, error)
	OrdersCompleted(ctx context.Context, strategyID ...StrategyID) (map[ClientOrderID]struct{}, error)
	PositionsOpen(ctx context.Context, strategyID ...StrategyID) (map[PositionID]struct{}, error)
	PositionsClosed(ctx context.Context, strategyID ...StrategyID) (map[PositionID]struct{}, error)

	// CheckResiduals reports working orders and open positions left over
	// from a prior run. It is advisory and never returns an error.
	CheckResiduals(ctx context.Context) Residuals
	// Reset discards the in-process cache; persisted data is untouched.
	Reset()
	// Flush deletes every key under the trader's namespace. Idempotent.
	Flush(ctx context.Context) error
	Close() error
}
