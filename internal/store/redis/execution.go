package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/quantfabric/execdb/internal/domain"
)

// bulkLoadConcurrency bounds the number of event logs replayed in parallel
// during a bulk load.
const bulkLoadConcurrency = 8

// DatabaseConfig holds the collaborators for an ExecutionDatabase.
type DatabaseConfig struct {
	TraderID domain.TraderID
	Commands domain.CommandCodec
	Events   domain.EventCodec
	// Journal is optional; nil disables audit journaling.
	Journal domain.EventJournal
	Logger  *slog.Logger
}

// ExecutionDatabase persists a trader's execution state in Redis as
// append-only event logs plus secondary indices, and keeps an in-process
// object cache as a read accelerator. It implements
// domain.ExecutionDatabase. A single logical writer per trader namespace is
// assumed; concurrent readers are safe.
type ExecutionDatabase struct {
	traderID domain.TraderID
	keys     Keys
	client   *Client
	store    *recordStore
	commands domain.CommandCodec
	events   domain.EventCodec
	journal  domain.EventJournal
	log      *slog.Logger

	mu        sync.RWMutex
	accounts  map[domain.AccountID]*domain.Account
	orders    map[domain.ClientOrderID]*domain.Order
	positions map[domain.PositionID]*domain.Position
}

// NewExecutionDatabase creates the database for one trader namespace on top
// of an established client.
func NewExecutionDatabase(client *Client, cfg DatabaseConfig) *ExecutionDatabase {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecutionDatabase{
		traderID:  cfg.TraderID,
		keys:      NewKeys(cfg.TraderID),
		client:    client,
		store:     &recordStore{rdb: client.Underlying()},
		commands:  cfg.Commands,
		events:    cfg.Events,
		journal:   cfg.Journal,
		log:       logger.With(slog.String("component", "execdb"), slog.String("trader", string(cfg.TraderID))),
		accounts:  make(map[domain.AccountID]*domain.Account),
		orders:    make(map[domain.ClientOrderID]*domain.Order),
		positions: make(map[domain.PositionID]*domain.Position),
	}
}

// Keys exposes the derived key set, mainly for operational tooling and tests.
func (db *ExecutionDatabase) Keys() Keys { return db.keys }

// ---------------------------------------------------------------------------
// Write path: accounts
// ---------------------------------------------------------------------------

// AddAccount upserts the account's latest state snapshot. Idempotent.
func (db *ExecutionDatabase) AddAccount(ctx context.Context, account *domain.Account) error {
	state := account.LastEvent()
	payload, err := db.events.EncodeEvent(state)
	if err != nil {
		return fmt.Errorf("add account %s: %w", account.ID, err)
	}

	err = db.store.tx(ctx, "add account", func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, db.keys.Accounts, string(account.ID), payload)
		return nil
	})
	if err != nil {
		return err
	}

	db.mu.Lock()
	db.accounts[account.ID] = account
	db.mu.Unlock()

	db.journalRecord(ctx, "account", string(account.ID), "AccountState", payload)
	return nil
}

// UpdateAccount has the same upsert semantics as AddAccount; the distinction
// is caller intent only.
func (db *ExecutionDatabase) UpdateAccount(ctx context.Context, account *domain.Account) error {
	return db.AddAccount(ctx, account)
}

// ---------------------------------------------------------------------------
// Write path: orders
// ---------------------------------------------------------------------------

// AddOrder writes the order's creation record as log entry 0 and registers
// every index the order participates in, atomically. The position and
// strategy associations are immutable for the order's lifetime.
func (db *ExecutionDatabase) AddOrder(ctx context.Context, order *domain.Order, positionID domain.PositionID, strategyID domain.StrategyID) error {
	payload, err := db.commands.EncodeOrderInit(order.Init())
	if err != nil {
		return fmt.Errorf("add order %s: %w", order.ClientOrderID, err)
	}

	id := string(order.ClientOrderID)
	err = db.store.tx(ctx, "add order", func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, db.keys.Order(order.ClientOrderID), payload)
		pipe.SAdd(ctx, db.keys.IndexOrders, id)
		pipe.HSet(ctx, db.keys.IndexOrderStrategy, id, string(strategyID))
		pipe.SAdd(ctx, db.keys.StrategyOrders(strategyID), id)
		if !positionID.IsNull() {
			pipe.HSet(ctx, db.keys.IndexOrderPosition, id, string(positionID))
			pipe.SAdd(ctx, db.keys.PositionOrders(positionID), id)
		}
		db.migrateOrderStatus(ctx, pipe, order)
		return nil
	})
	if err != nil {
		return err
	}

	db.mu.Lock()
	db.orders[order.ClientOrderID] = order
	db.mu.Unlock()

	db.journalRecord(ctx, "order", id, "OrderInitialized", payload)
	return nil
}

// UpdateOrder appends the order's most recently applied event to its log and
// migrates the working/completed status membership, atomically. Previous log
// entries are never rewritten.
func (db *ExecutionDatabase) UpdateOrder(ctx context.Context, order *domain.Order) error {
	last := order.LastEvent()
	if last == nil {
		return fmt.Errorf("update order %s: no applied event to persist", order.ClientOrderID)
	}
	payload, err := db.events.EncodeEvent(last)
	if err != nil {
		return fmt.Errorf("update order %s: %w", order.ClientOrderID, err)
	}

	err = db.store.tx(ctx, "update order", func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, db.keys.Order(order.ClientOrderID), payload)
		db.migrateOrderStatus(ctx, pipe, order)
		return nil
	})
	if err != nil {
		return err
	}

	db.mu.Lock()
	db.orders[order.ClientOrderID] = order
	db.mu.Unlock()

	db.journalRecord(ctx, "order", string(order.ClientOrderID), eventTypeName(last), payload)
	return nil
}

// migrateOrderStatus pins the order id to exactly one status set. Removal
// from the opposite set is unconditional; removing an absent member is fine.
func (db *ExecutionDatabase) migrateOrderStatus(ctx context.Context, pipe redis.Pipeliner, order *domain.Order) {
	id := string(order.ClientOrderID)
	if order.IsCompleted() {
		pipe.SRem(ctx, db.keys.IndexOrdersWorking, id)
		pipe.SAdd(ctx, db.keys.IndexOrdersCompleted, id)
	} else {
		pipe.SAdd(ctx, db.keys.IndexOrdersWorking, id)
		pipe.SRem(ctx, db.keys.IndexOrdersCompleted, id)
	}
}

// ---------------------------------------------------------------------------
// Write path: positions
// ---------------------------------------------------------------------------

// AddPosition writes the position's opening fill as log entry 0 and
// registers its strategy indices, atomically.
func (db *ExecutionDatabase) AddPosition(ctx context.Context, position *domain.Position, strategyID domain.StrategyID) error {
	opening := position.Events()[0]
	payload, err := db.events.EncodeEvent(opening)
	if err != nil {
		return fmt.Errorf("add position %s: %w", position.ID, err)
	}

	id := string(position.ID)
	err = db.store.tx(ctx, "add position", func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, db.keys.Position(position.ID), payload)
		pipe.SAdd(ctx, db.keys.IndexPositions, id)
		pipe.HSet(ctx, db.keys.IndexPositionStrategy, id, string(strategyID))
		pipe.SAdd(ctx, db.keys.StrategyPositions(strategyID), id)
		db.migratePositionStatus(ctx, pipe, position)
		return nil
	})
	if err != nil {
		return err
	}

	db.mu.Lock()
	db.positions[position.ID] = position
	db.mu.Unlock()

	db.journalRecord(ctx, "position", id, eventTypeName(opening), payload)
	return nil
}

// UpdatePosition appends the position's latest fill and migrates the
// open/closed status membership, atomically.
func (db *ExecutionDatabase) UpdatePosition(ctx context.Context, position *domain.Position) error {
	last := position.LastEvent()
	payload, err := db.events.EncodeEvent(last)
	if err != nil {
		return fmt.Errorf("update position %s: %w", position.ID, err)
	}

	err = db.store.tx(ctx, "update position", func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, db.keys.Position(position.ID), payload)
		db.migratePositionStatus(ctx, pipe, position)
		return nil
	})
	if err != nil {
		return err
	}

	db.mu.Lock()
	db.positions[position.ID] = position
	db.mu.Unlock()

	db.journalRecord(ctx, "position", string(position.ID), eventTypeName(last), payload)
	return nil
}

func (db *ExecutionDatabase) migratePositionStatus(ctx context.Context, pipe redis.Pipeliner, position *domain.Position) {
	id := string(position.ID)
	if position.IsClosed() {
		pipe.SRem(ctx, db.keys.IndexPositionsOpen, id)
		pipe.SAdd(ctx, db.keys.IndexPositionsClosed, id)
	} else {
		pipe.SAdd(ctx, db.keys.IndexPositionsOpen, id)
		pipe.SRem(ctx, db.keys.IndexPositionsClosed, id)
	}
}

// ---------------------------------------------------------------------------
// Write path: strategies
// ---------------------------------------------------------------------------

// UpdateStrategy registers the strategy in the registry. It never touches
// order or position logs.
func (db *ExecutionDatabase) UpdateStrategy(ctx context.Context, id domain.StrategyID) error {
	if err := db.store.rdb.HSet(ctx, db.keys.Strategy(id), "ID", string(id)).Err(); err != nil {
		return storeErr("update strategy", err)
	}
	db.journalRecord(ctx, "strategy", string(id), "StrategyRegistered", nil)
	return nil
}

// DeleteStrategy removes the registry entry only. Orders and positions
// previously attributed to the strategy are retained as history.
func (db *ExecutionDatabase) DeleteStrategy(ctx context.Context, id domain.StrategyID) error {
	if err := db.store.rdb.Del(ctx, db.keys.Strategy(id)).Err(); err != nil {
		return storeErr("delete strategy", err)
	}
	db.journalRecord(ctx, "strategy", string(id), "StrategyDeleted", nil)
	return nil
}

// StrategyIDs returns every registered strategy id.
func (db *ExecutionDatabase) StrategyIDs(ctx context.Context) ([]domain.StrategyID, error) {
	keys, err := db.store.scanKeys(ctx, "strategy ids", db.keys.Strategies+"*")
	if err != nil {
		return nil, err
	}
	ids := make([]domain.StrategyID, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, domain.StrategyID(strings.TrimPrefix(key, db.keys.Strategies)))
	}
	return ids, nil
}

// ---------------------------------------------------------------------------
// Read path & cache
// ---------------------------------------------------------------------------

// LoadAccount reads the account's snapshot field. Unknown id returns
// (nil, nil).
func (db *ExecutionDatabase) LoadAccount(ctx context.Context, id domain.AccountID) (*domain.Account, error) {
	data, ok, err := db.store.hashGet(ctx, "load account", db.keys.Accounts, string(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	account, err := db.decodeAccount(id, data)
	if err != nil {
		return nil, err
	}

	db.mu.Lock()
	db.accounts[id] = account
	db.mu.Unlock()
	return account, nil
}

func (db *ExecutionDatabase) decodeAccount(id domain.AccountID, data []byte) (*domain.Account, error) {
	ev, err := db.events.DecodeEvent(data)
	if err != nil {
		return nil, fmt.Errorf("load account %s: %w", id, err)
	}
	state, ok := ev.(*domain.AccountState)
	if !ok {
		return nil, fmt.Errorf("load account %s: record is %T: %w", id, ev, domain.ErrDeserialization)
	}
	return domain.NewAccount(state), nil
}

// LoadAccounts reads every account snapshot and refreshes the cache.
func (db *ExecutionDatabase) LoadAccounts(ctx context.Context) (map[domain.AccountID]*domain.Account, error) {
	fields, err := db.store.hashGetAll(ctx, "load accounts", db.keys.Accounts)
	if err != nil {
		return nil, err
	}

	result := make(map[domain.AccountID]*domain.Account, len(fields))
	for field, data := range fields {
		id := domain.AccountID(field)
		account, err := db.decodeAccount(id, []byte(data))
		if err != nil {
			if errors.Is(err, domain.ErrDeserialization) {
				db.log.Error("skipping corrupt account record", slog.String("account", field), slog.Any("error", err))
				continue
			}
			return nil, err
		}
		result[id] = account
	}

	db.mu.Lock()
	for id, account := range result {
		db.accounts[id] = account
	}
	db.mu.Unlock()
	return result, nil
}

// LoadOrder replays the order's full event log: entry 0 through the command
// codec, entries 1..n through the event codec, applied in order. The result
// is structurally identical to the order last handed to UpdateOrder. Unknown
// id returns (nil, nil).
func (db *ExecutionDatabase) LoadOrder(ctx context.Context, id domain.ClientOrderID) (*domain.Order, error) {
	entries, err := db.store.readLog(ctx, "load order", db.keys.Order(id))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	init, err := db.commands.DecodeOrderInit(entries[0])
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", id, err)
	}
	order := domain.NewOrder(init)

	for i, entry := range entries[1:] {
		ev, err := db.events.DecodeEvent(entry)
		if err != nil {
			return nil, fmt.Errorf("load order %s: entry %d: %w", id, i+1, err)
		}
		oe, ok := ev.(domain.OrderEvent)
		if !ok {
			return nil, fmt.Errorf("load order %s: entry %d is %T: %w", id, i+1, ev, domain.ErrDeserialization)
		}
		if err := order.Apply(oe); err != nil {
			return nil, fmt.Errorf("load order %s: entry %d: %w", id, i+1, err)
		}
	}

	db.mu.Lock()
	db.orders[id] = order
	db.mu.Unlock()
	return order, nil
}

// LoadOrders replays every known order log and refreshes the cache. A
// corrupt record is logged and skipped so one bad log cannot hide the rest
// of the state.
func (db *ExecutionDatabase) LoadOrders(ctx context.Context) (map[domain.ClientOrderID]*domain.Order, error) {
	members, err := db.store.setMembers(ctx, "load orders", db.keys.IndexOrders)
	if err != nil {
		return nil, err
	}

	var (
		resultMu sync.Mutex
		result   = make(map[domain.ClientOrderID]*domain.Order, len(members))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkLoadConcurrency)
	for _, member := range members {
		id := domain.ClientOrderID(member)
		g.Go(func() error {
			order, err := db.LoadOrder(gctx, id)
			if err != nil {
				if errors.Is(err, domain.ErrDeserialization) {
					db.log.Error("skipping corrupt order log", slog.String("order", string(id)), slog.Any("error", err))
					return nil
				}
				return err
			}
			if order == nil {
				return nil
			}
			resultMu.Lock()
			result[id] = order
			resultMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// LoadPosition replays the position's fill log. Unknown id returns
// (nil, nil).
func (db *ExecutionDatabase) LoadPosition(ctx context.Context, id domain.PositionID) (*domain.Position, error) {
	entries, err := db.store.readLog(ctx, "load position", db.keys.Position(id))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	opening, err := db.decodeFill(id, 0, entries[0])
	if err != nil {
		return nil, err
	}
	position := domain.NewPosition(opening)

	for i, entry := range entries[1:] {
		fill, err := db.decodeFill(id, i+1, entry)
		if err != nil {
			return nil, err
		}
		if err := position.Apply(fill); err != nil {
			return nil, fmt.Errorf("load position %s: entry %d: %w", id, i+1, err)
		}
	}

	db.mu.Lock()
	db.positions[id] = position
	db.mu.Unlock()
	return position, nil
}

func (db *ExecutionDatabase) decodeFill(id domain.PositionID, entry int, data []byte) (*domain.OrderFilled, error) {
	ev, err := db.events.DecodeEvent(data)
	if err != nil {
		return nil, fmt.Errorf("load position %s: entry %d: %w", id, entry, err)
	}
	fill, ok := ev.(*domain.OrderFilled)
	if !ok {
		return nil, fmt.Errorf("load position %s: entry %d is %T: %w", id, entry, ev, domain.ErrDeserialization)
	}
	return fill, nil
}

// LoadPositions replays every known position log and refreshes the cache,
// with the same skip-and-report policy as LoadOrders.
func (db *ExecutionDatabase) LoadPositions(ctx context.Context) (map[domain.PositionID]*domain.Position, error) {
	members, err := db.store.setMembers(ctx, "load positions", db.keys.IndexPositions)
	if err != nil {
		return nil, err
	}

	var (
		resultMu sync.Mutex
		result   = make(map[domain.PositionID]*domain.Position, len(members))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkLoadConcurrency)
	for _, member := range members {
		id := domain.PositionID(member)
		g.Go(func() error {
			position, err := db.LoadPosition(gctx, id)
			if err != nil {
				if errors.Is(err, domain.ErrDeserialization) {
					db.log.Error("skipping corrupt position log", slog.String("position", string(id)), slog.Any("error", err))
					return nil
				}
				return err
			}
			if position == nil {
				return nil
			}
			resultMu.Lock()
			result[id] = position
			resultMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Cached accessors. These never touch the store.
// ---------------------------------------------------------------------------

// Account returns the cached account, or nil when not cached.
func (db *ExecutionDatabase) Account(id domain.AccountID) *domain.Account {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.accounts[id]
}

// Order returns the cached order, or nil when not cached.
func (db *ExecutionDatabase) Order(id domain.ClientOrderID) *domain.Order {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.orders[id]
}

// Orders returns a copy of the cached order map.
func (db *ExecutionDatabase) Orders() map[domain.ClientOrderID]*domain.Order {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make(map[domain.ClientOrderID]*domain.Order, len(db.orders))
	for id, order := range db.orders {
		out[id] = order
	}
	return out
}

// Position returns the cached position, or nil when not cached.
func (db *ExecutionDatabase) Position(id domain.PositionID) *domain.Position {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.positions[id]
}

// Positions returns a copy of the cached position map.
func (db *ExecutionDatabase) Positions() map[domain.PositionID]*domain.Position {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make(map[domain.PositionID]*domain.Position, len(db.positions))
	for id, position := range db.positions {
		out[id] = position
	}
	return out
}

// ---------------------------------------------------------------------------
// Index & query surface
// ---------------------------------------------------------------------------

// OrderExists reports whether the order id is known to the store.
func (db *ExecutionDatabase) OrderExists(ctx context.Context, id domain.ClientOrderID) (bool, error) {
	return db.store.setContains(ctx, "order exists", db.keys.IndexOrders, string(id))
}

// PositionExists reports whether the position id is known to the store.
func (db *ExecutionDatabase) PositionExists(ctx context.Context, id domain.PositionID) (bool, error) {
	return db.store.setContains(ctx, "position exists", db.keys.IndexPositions, string(id))
}

// PositionExistsForOrder reports whether the order maps to a known position.
func (db *ExecutionDatabase) PositionExistsForOrder(ctx context.Context, id domain.ClientOrderID) (bool, error) {
	data, ok, err := db.store.hashGet(ctx, "position exists for order", db.keys.IndexOrderPosition, string(id))
	if err != nil || !ok {
		return false, err
	}
	positionID := domain.PositionID(data)
	if positionID.IsNull() {
		return false, nil
	}
	return db.PositionExists(ctx, positionID)
}

// PositionIndexedForOrder reports whether the order->position index holds an
// entry for the order at all, which distinguishes "indexed" from "loaded".
func (db *ExecutionDatabase) PositionIndexedForOrder(ctx context.Context, id domain.ClientOrderID) (bool, error) {
	return db.store.hashContains(ctx, "position indexed for order", db.keys.IndexOrderPosition, string(id))
}

// OrderIDs returns the global order id set, optionally intersected with one
// strategy's membership set.
func (db *ExecutionDatabase) OrderIDs(ctx context.Context, strategyID ...domain.StrategyID) (map[domain.ClientOrderID]struct{}, error) {
	return db.orderIDSet(ctx, "order ids", db.keys.IndexOrders, strategyID)
}

// PositionIDs returns the global position id set, optionally intersected
// with one strategy's membership set.
func (db *ExecutionDatabase) PositionIDs(ctx context.Context, strategyID ...domain.StrategyID) (map[domain.PositionID]struct{}, error) {
	return db.positionIDSet(ctx, "position ids", db.keys.IndexPositions, strategyID)
}

// OrdersWorking returns the ids of orders currently in the working set.
func (db *ExecutionDatabase) OrdersWorking(ctx context.Context, strategyID ...domain.StrategyID) (map[domain.ClientOrderID]struct{}, error) {
	return db.orderIDSet(ctx, "orders working", db.keys.IndexOrdersWorking, strategyID)
}

// OrdersCompleted returns the ids of orders in the completed set.
func (db *ExecutionDatabase) OrdersCompleted(ctx context.Context, strategyID ...domain.StrategyID) (map[domain.ClientOrderID]struct{}, error) {
	return db.orderIDSet(ctx, "orders completed", db.keys.IndexOrdersCompleted, strategyID)
}

// PositionsOpen returns the ids of positions in the open set.
func (db *ExecutionDatabase) PositionsOpen(ctx context.Context, strategyID ...domain.StrategyID) (map[domain.PositionID]struct{}, error) {
	return db.positionIDSet(ctx, "positions open", db.keys.IndexPositionsOpen, strategyID)
}

// PositionsClosed returns the ids of positions in the closed set.
func (db *ExecutionDatabase) PositionsClosed(ctx context.Context, strategyID ...domain.StrategyID) (map[domain.PositionID]struct{}, error) {
	return db.positionIDSet(ctx, "positions closed", db.keys.IndexPositionsClosed, strategyID)
}

func (db *ExecutionDatabase) orderIDSet(ctx context.Context, op, key string, filter []domain.StrategyID) (map[domain.ClientOrderID]struct{}, error) {
	members, err := db.filteredMembers(ctx, op, key, filter, db.keys.StrategyOrders)
	if err != nil {
		return nil, err
	}
	out := make(map[domain.ClientOrderID]struct{}, len(members))
	for _, m := range members {
		out[domain.ClientOrderID(m)] = struct{}{}
	}
	return out, nil
}

func (db *ExecutionDatabase) positionIDSet(ctx context.Context, op, key string, filter []domain.StrategyID) (map[domain.PositionID]struct{}, error) {
	members, err := db.filteredMembers(ctx, op, key, filter, db.keys.StrategyPositions)
	if err != nil {
		return nil, err
	}
	out := make(map[domain.PositionID]struct{}, len(members))
	for _, m := range members {
		out[domain.PositionID(m)] = struct{}{}
	}
	return out, nil
}

// filteredMembers returns the members of key, intersected with the strategy
// scope set when a filter is given. At most one filter is honored.
func (db *ExecutionDatabase) filteredMembers(ctx context.Context, op, key string, filter []domain.StrategyID, scopeKey func(domain.StrategyID) string) ([]string, error) {
	members, err := db.store.setMembers(ctx, op, key)
	if err != nil {
		return nil, err
	}
	if len(filter) == 0 {
		return members, nil
	}

	scoped, err := db.store.setMembers(ctx, op, scopeKey(filter[0]))
	if err != nil {
		return nil, err
	}
	inScope := make(map[string]struct{}, len(scoped))
	for _, m := range scoped {
		inScope[m] = struct{}{}
	}

	out := members[:0]
	for _, m := range members {
		if _, ok := inScope[m]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Consistency checker / reset / flush
// ---------------------------------------------------------------------------

// CheckResiduals reports any working orders or open positions left over from
// a prior run and verifies their index entries. It is advisory: every
// finding is logged, nothing is raised, and a store failure terminates the
// scan early with whatever was gathered.
func (db *ExecutionDatabase) CheckResiduals(ctx context.Context) domain.Residuals {
	var res domain.Residuals

	working, err := db.store.setMembers(ctx, "check residuals", db.keys.IndexOrdersWorking)
	if err != nil {
		db.log.Error("residual check could not read working orders", slog.Any("error", err))
		return res
	}
	for _, member := range working {
		id := domain.ClientOrderID(member)
		res.WorkingOrders = append(res.WorkingOrders, id)
		db.log.Warn("residual working order", slog.String("order", member))
		db.checkOrderIndexes(ctx, member, &res)
	}

	open, err := db.store.setMembers(ctx, "check residuals", db.keys.IndexPositionsOpen)
	if err != nil {
		db.log.Error("residual check could not read open positions", slog.Any("error", err))
		return res
	}
	for _, member := range open {
		id := domain.PositionID(member)
		res.OpenPositions = append(res.OpenPositions, id)
		db.log.Warn("residual open position", slog.String("position", member))
		db.checkPositionIndexes(ctx, member, &res)
	}

	return res
}

func (db *ExecutionDatabase) checkOrderIndexes(ctx context.Context, id string, res *domain.Residuals) {
	ok, err := db.store.hashContains(ctx, "check residuals", db.keys.IndexOrderStrategy, id)
	if err == nil && !ok {
		db.addIndexGap(res, fmt.Sprintf("order %s has no strategy index entry", id))
	}

	positionID, ok, err := db.store.hashGet(ctx, "check residuals", db.keys.IndexOrderPosition, id)
	if err != nil || !ok {
		return
	}
	member, err := db.store.setContains(ctx, "check residuals", db.keys.PositionOrders(domain.PositionID(positionID)), id)
	if err == nil && !member {
		db.addIndexGap(res, fmt.Sprintf("order %s missing from position %s order set", id, positionID))
	}
}

func (db *ExecutionDatabase) checkPositionIndexes(ctx context.Context, id string, res *domain.Residuals) {
	ok, err := db.store.hashContains(ctx, "check residuals", db.keys.IndexPositionStrategy, id)
	if err == nil && !ok {
		db.addIndexGap(res, fmt.Sprintf("position %s has no strategy index entry", id))
	}

	orders, err := db.store.setMembers(ctx, "check residuals", db.keys.PositionOrders(domain.PositionID(id)))
	if err == nil && len(orders) == 0 {
		db.addIndexGap(res, fmt.Sprintf("position %s has no constituent orders", id))
	}
}

func (db *ExecutionDatabase) addIndexGap(res *domain.Residuals, gap string) {
	res.IndexGaps = append(res.IndexGaps, gap)
	db.log.Error("index integrity gap", slog.String("detail", gap))
}

// Reset discards the in-process cache. Persisted data is untouched and
// subsequent loads re-read from the store.
func (db *ExecutionDatabase) Reset() {
	db.mu.Lock()
	db.accounts = make(map[domain.AccountID]*domain.Account)
	db.orders = make(map[domain.ClientOrderID]*domain.Order)
	db.positions = make(map[domain.PositionID]*domain.Position)
	db.mu.Unlock()
	db.log.Info("in-process cache reset")
}

// Flush deletes every key under the trader's namespace. Irreversible, and a
// no-op on an already-empty namespace.
func (db *ExecutionDatabase) Flush(ctx context.Context) error {
	if err := db.store.deleteNamespace(ctx, "flush", db.keys.Trader+"*"); err != nil {
		return err
	}
	db.Reset()
	db.log.Warn("trader namespace flushed")
	return nil
}

// Close releases the store connection.
func (db *ExecutionDatabase) Close() error {
	return db.client.Close()
}

// journalRecord appends a best-effort audit entry. Journal failures are
// logged, never propagated: the journal is advisory, the Redis write already
// committed.
func (db *ExecutionDatabase) journalRecord(ctx context.Context, kind, entityID, recordType string, payload []byte) {
	if db.journal == nil {
		return
	}
	entry := domain.JournalEntry{
		TraderID:   db.traderID,
		Kind:       kind,
		EntityID:   entityID,
		RecordType: recordType,
		Payload:    payload,
	}
	if err := db.journal.Record(ctx, entry); err != nil {
		db.log.Warn("journal append failed",
			slog.String("kind", kind),
			slog.String("entity", entityID),
			slog.Any("error", err),
		)
	}
}

// eventTypeName names an event for journaling.
func eventTypeName(ev domain.Event) string {
	switch ev.(type) {
	case *domain.OrderSubmitted:
		return "OrderSubmitted"
	case *domain.OrderAccepted:
		return "OrderAccepted"
	case *domain.OrderRejected:
		return "OrderRejected"
	case *domain.OrderWorking:
		return "OrderWorking"
	case *domain.OrderCancelled:
		return "OrderCancelled"
	case *domain.OrderExpired:
		return "OrderExpired"
	case *domain.OrderFilled:
		return "OrderFilled"
	case *domain.AccountState:
		return "AccountState"
	default:
		return fmt.Sprintf("%T", ev)
	}
}

// Compile-time interface check.
var _ domain.ExecutionDatabase = (*ExecutionDatabase)(nil)
