package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfabric/execdb/internal/codec"
	"github.com/quantfabric/execdb/internal/domain"
)

func newTestDB(t *testing.T, srv *miniredis.Miniredis) *ExecutionDatabase {
	t.Helper()

	client, err := New(context.Background(), ClientConfig{Addr: srv.Addr(), PoolSize: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	c := codec.NewMsgPackCodec()
	return NewExecutionDatabase(client, DatabaseConfig{
		TraderID: "TESTER-000",
		Commands: c,
		Events:   c,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func testOrderInit(id domain.ClientOrderID, strategyID domain.StrategyID) *domain.OrderInitialized {
	price := decimal.RequireFromString("1.00000")
	return &domain.OrderInitialized{
		EventMeta:     domain.NewEventMeta(time.Now()),
		ClientOrderID: id,
		StrategyID:    strategyID,
		Symbol:        "AUD/USD",
		Side:          domain.OrderSideBuy,
		OrderType:     domain.OrderTypeLimit,
		Quantity:      decimal.RequireFromString("100000"),
		Price:         &price,
		TimeInForce:   domain.TimeInForceGTC,
	}
}

func submitAccept(t *testing.T, order *domain.Order) {
	t.Helper()
	require.NoError(t, order.Apply(&domain.OrderSubmitted{
		EventMeta:     domain.NewEventMeta(time.Now()),
		ClientOrderID: order.ClientOrderID,
	}))
	require.NoError(t, order.Apply(&domain.OrderAccepted{
		EventMeta:     domain.NewEventMeta(time.Now()),
		ClientOrderID: order.ClientOrderID,
		VenueOrderID:  "V-" + domain.VenueOrderID(order.ClientOrderID),
	}))
}

func testFill(order *domain.Order, positionID domain.PositionID, qty, price string) *domain.OrderFilled {
	return &domain.OrderFilled{
		EventMeta:     domain.NewEventMeta(time.Now()),
		ClientOrderID: order.ClientOrderID,
		VenueOrderID:  order.VenueOrderID,
		ExecutionID:   "E-" + domain.ExecutionID(order.ClientOrderID),
		PositionID:    positionID,
		StrategyID:    order.StrategyID,
		Symbol:        order.Symbol,
		Side:          order.Side,
		Quantity:      decimal.RequireFromString(qty),
		Price:         decimal.RequireFromString(price),
	}
}

func testAccount(id domain.AccountID, balance string) *domain.Account {
	return domain.NewAccount(&domain.AccountState{
		EventMeta:       domain.NewEventMeta(time.Now()),
		AccountID:       id,
		Currency:        "USD",
		Balance:         decimal.RequireFromString(balance),
		MarginBalance:   decimal.RequireFromString(balance),
		MarginAvailable: decimal.RequireFromString(balance),
	})
}

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

func TestAddAccountAndLoad(t *testing.T) {
	srv := miniredis.RunT(t)
	db := newTestDB(t, srv)
	ctx := context.Background()

	account := testAccount("SIMULATED-123456", "1000000.00")
	require.NoError(t, db.AddAccount(ctx, account))

	loaded, err := db.LoadAccount(ctx, "SIMULATED-123456")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, domain.AccountID("SIMULATED-123456"), loaded.ID)
	assert.Equal(t, "USD", loaded.Currency)
	assert.True(t, loaded.Balance.Equal(decimal.RequireFromString("1000000.00")))
	assert.Equal(t, account.LastEvent().ID(), loaded.LastEvent().ID())
}

func TestLoadAccountUnknownReturnsNil(t *testing.T) {
	srv := miniredis.RunT(t)
	db := newTestDB(t, srv)

	loaded, err := db.LoadAccount(context.Background(), "NO-SUCH-ACCOUNT")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestAccountUpsertKeepsLatestOnly(t *testing.T) {
	srv := miniredis.RunT(t)
	db := newTestDB(t, srv)
	ctx := context.Background()

	account := testAccount("SIMULATED-123456", "1000000.00")
	require.NoError(t, db.AddAccount(ctx, account))

	account.Apply(&domain.AccountState{
		EventMeta:       domain.NewEventMeta(time.Now()),
		AccountID:       "SIMULATED-123456",
		Currency:        "USD",
		Balance:         decimal.RequireFromString("999500.00"),
		MarginBalance:   decimal.RequireFromString("999500.00"),
		MarginAvailable: decimal.RequireFromString("999000.00"),
	})
	require.NoError(t, db.UpdateAccount(ctx, account))

	loaded, err := newTestDB(t, srv).LoadAccount(ctx, "SIMULATED-123456")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, loaded.Balance.Equal(decimal.RequireFromString("999500.00")))
	// Snapshot semantics: only the latest state survives.
	assert.Equal(t, 1, loaded.EventCount())
}

func TestLoadAccountsRefreshesCache(t *testing.T) {
	srv := miniredis.RunT(t)
	db := newTestDB(t, srv)
	ctx := context.Background()

	require.NoError(t, db.AddAccount(ctx, testAccount("ACC-1", "100.00")))
	require.NoError(t, db.AddAccount(ctx, testAccount("ACC-2", "200.00")))

	fresh := newTestDB(t, srv)
	accounts, err := fresh.LoadAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.NotNil(t, fresh.Account("ACC-1"))
	assert.NotNil(t, fresh.Account("ACC-2"))
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

func TestAddOrderRegistersIndexes(t *testing.T) {
	srv := miniredis.RunT(t)
	db := newTestDB(t, srv)
	ctx := context.Background()

	order := domain.NewOrder(testOrderInit("O-1", "S-001"))
	require.NoError(t, db.AddOrder(ctx, order, "P-1", "S-001"))

	exists, err := db.OrderExists(ctx, "O-1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = db.OrderExists(ctx, "O-2")
	require.NoError(t, err)
	assert.False(t, exists)

	ids, err := db.OrderIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, domain.ClientOrderID("O-1"))

	working, err := db.OrdersWorking(ctx)
	require.NoError(t, err)
	assert.Contains(t, working, domain.ClientOrderID("O-1"))

	completed, err := db.OrdersCompleted(ctx)
	require.NoError(t, err)
	assert.Empty(t, completed)

	// Strategy-scoped views.
	scoped, err := db.OrderIDs(ctx, "S-001")
	require.NoError(t, err)
	assert.Contains(t, scoped, domain.ClientOrderID("O-1"))

	scoped, err = db.OrderIDs(ctx, "S-OTHER")
	require.NoError(t, err)
	assert.Empty(t, scoped)
}

func TestLoadOrderUnknownReturnsNil(t *testing.T) {
	srv := miniredis.RunT(t)
	db := newTestDB(t, srv)

	loaded, err := db.LoadOrder(context.Background(), "NO-SUCH-ORDER")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLoadOrderReplaysFullLog(t *testing.T) {
	srv := miniredis.RunT(t)
	db := newTestDB(t, srv)
	ctx := context.Background()

	// Persist each event as it is applied, the way the engine does.
	order := domain.NewOrder(testOrderInit("O-1", "S-001"))
	require.NoError(t, db.AddOrder(ctx, order, "P-1", "S-001"))

	require.NoError(t, order.Apply(&domain.OrderSubmitted{EventMeta: domain.NewEventMeta(time.Now()), ClientOrderID: "O-1"}))
	require.NoError(t, db.UpdateOrder(ctx, order))

	require.NoError(t, order.Apply(&domain.OrderAccepted{EventMeta: domain.NewEventMeta(time.Now()), ClientOrderID: "O-1", VenueOrderID: "V-1"}))
	require.NoError(t, db.UpdateOrder(ctx, order))

	require.NoError(t, order.Apply(testFill(order, "P-1", "100000", "1.00001")))
	require.NoError(t, db.UpdateOrder(ctx, order))

	loaded, err := newTestDB(t, srv).LoadOrder(ctx, "O-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, order.Status, loaded.Status)
	assert.Equal(t, domain.VenueOrderID("V-1"), loaded.VenueOrderID)
	assert.True(t, order.FilledQty.Equal(loaded.FilledQty))
	assert.True(t, order.AvgPrice.Equal(loaded.AvgPrice))
	assert.Equal(t, order.EventCount(), loaded.EventCount())
	assert.Equal(t, order.LastEvent().ID(), loaded.LastEvent().ID())
}

func TestUpdateOrderWithoutAppliedEventErrors(t *testing.T) {
	srv := miniredis.RunT(t)
	db := newTestDB(t, srv)
	ctx := context.Background()

	order := domain.NewOrder(testOrderInit("O-1", "S-001"))
	require.NoError(t, db.AddOrder(ctx, order, "", "S-001"))

	err := db.UpdateOrder(ctx, order)
	assert.Error(t, err)
}

func TestUpdateOrderMigratesStatusSets(t *testing.T) {
	srv := miniredis.RunT(t)
	db := newTestDB(t, srv)
	ctx := context.Background()

	order := domain.NewOrder(testOrderInit("O-1", "S-001"))
	require.NoError(t, db.AddOrder(ctx, order, "", "S-001"))

	submitAccept(t, order)
	require.NoError(t, order.Apply(testFill(order, "", "100000", "1.00001")))
	require.NoError(t, db.UpdateOrder(ctx, order))

	working, err := db.OrdersWorking(ctx)
	require.NoError(t, err)
	assert.Empty(t, working)

	completed, err := db.OrdersCompleted(ctx)
	require.NoError(t, err)
	assert.Contains(t, completed, domain.ClientOrderID("O-1"))

	// Global membership is unaffected by the status migration.
	ids, err := db.OrderIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, domain.ClientOrderID("O-1"))
}

func TestPositionIndexQueriesForOrder(t *testing.T) {
	srv := miniredis.RunT(t)
	db := newTestDB(t, srv)
	ctx := context.Background()

	withPosition := domain.NewOrder(testOrderInit("O-1", "S-001"))
	require.NoError(t, db.AddOrder(ctx, withPosition, "P-1", "S-001"))

	withoutPosition := domain.NewOrder(testOrderInit("O-2", "S-001"))
	require.NoError(t, db.AddOrder(ctx, withoutPosition, "", "S-001"))

	// O-1 is indexed to P-1, but P-1 has not been materialized yet.
	indexed, err := db.PositionIndexedForOrder(ctx, "O-1")
	require.NoError(t, err)
	assert.True(t, indexed)

	exists, err := db.PositionExistsForOrder(ctx, "O-1")
	require.NoError(t, err)
	assert.False(t, exists)

	// O-2 never had a position association.
	indexed, err = db.PositionIndexedForOrder(ctx, "O-2")
	require.NoError(t, err)
	assert.False(t, indexed)

	// Materialize P-1; the existence query flips.
	submitAccept(t, withPosition)
	fill := testFill(withPosition, "P-1", "100000", "1.00001")
	require.NoError(t, withPosition.Apply(fill))
	require.NoError(t, db.AddPosition(ctx, domain.NewPosition(fill), "S-001"))

	exists, err = db.PositionExistsForOrder(ctx, "O-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLoadOrdersSkipsCorruptLog(t *testing.T) {
	srv := miniredis.RunT(t)
	db := newTestDB(t, srv)
	ctx := context.Background()

	good := domain.NewOrder(testOrderInit("O-GOOD", "S-001"))
	require.NoError(t, db.AddOrder(ctx, good, "", "S-001"))

	// Plant a log that cannot be decoded.
	rdb := db.client.Underlying()
	require.NoError(t, rdb.RPush(ctx, db.keys.Order("O-BAD"), "garbage").Err())
	require.NoError(t, rdb.SAdd(ctx, db.keys.IndexOrders, "O-BAD").Err())

	orders, err := newTestDB(t, srv).LoadOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Contains(t, orders, domain.ClientOrderID("O-GOOD"))
}

// ---------------------------------------------------------------------------
// Positions
// ---------------------------------------------------------------------------

func TestAddPositionAndLoad(t *testing.T) {
	srv := miniredis.RunT(t)
	db := newTestDB(t, srv)
	ctx := context.Background()

	order := domain.NewOrder(testOrderInit("O-1", "S-001"))
	require.NoError(t, db.AddOrder(ctx, order, "P-1", "S-001"))
	submitAccept(t, order)

	fill := testFill(order, "P-1", "100000", "1.00001")
	require.NoError(t, order.Apply(fill))
	position := domain.NewPosition(fill)
	require.NoError(t, db.AddPosition(ctx, position, "S-001"))

	exists, err := db.PositionExists(ctx, "P-1")
	require.NoError(t, err)
	assert.True(t, exists)

	loaded, err := newTestDB(t, srv).LoadPosition(ctx, "P-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, domain.PositionID("P-1"), loaded.ID)
	assert.True(t, loaded.IsOpen())
	assert.True(t, position.Quantity.Equal(loaded.Quantity))
	assert.True(t, position.AvgOpenPrice.Equal(loaded.AvgOpenPrice))
	assert.Equal(t, position.OrderIDs, loaded.OrderIDs)
}

func TestLoadPositionUnknownReturnsNil(t *testing.T) {
	srv := miniredis.RunT(t)
	db := newTestDB(t, srv)

	loaded, err := db.LoadPosition(context.Background(), "NO-SUCH-POSITION")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestUpdatePositionMigratesStatusSets(t *testing.T) {
	srv := miniredis.RunT(t)
	db := newTestDB(t, srv)
	ctx := context.Background()

	entry := domain.NewOrder(testOrderInit("O-1", "S-001"))
	require.NoError(t, db.AddOrder(ctx, entry, "P-1", "S-001"))
	submitAccept(t, entry)
	openFill := testFill(entry, "P-1", "100000", "1.00000")
	require.NoError(t, entry.Apply(openFill))

	position := domain.NewPosition(openFill)
	require.NoError(t, db.AddPosition(ctx, position, "S-001"))

	open, err := db.PositionsOpen(ctx)
	require.NoError(t, err)
	assert.Contains(t, open, domain.PositionID("P-1"))

	// Flatten the position with an opposing fill.
	exit := domain.NewOrder(testOrderInit("O-2", "S-001"))
	exit.Side = domain.OrderSideSell
	closeFill := testFill(exit, "P-1", "100000", "1.00010")
	require.NoError(t, position.Apply(closeFill))
	require.NoError(t, db.UpdatePosition(ctx, position))

	open, err = db.PositionsOpen(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	closed, err := db.PositionsClosed(ctx)
	require.NoError(t, err)
	assert.Contains(t, closed, domain.PositionID("P-1"))

	loaded, err := newTestDB(t, srv).LoadPosition(ctx, "P-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, loaded.IsClosed())
	assert.Equal(t, 2, loaded.EventCount())
}

func TestPositionIDsStrategyFilter(t *testing.T) {
	srv := miniredis.RunT(t)
	db := newTestDB(t, srv)
	ctx := context.Background()

	a := domain.NewOrder(testOrderInit("O-1", "S-001"))
	fillA := testFill(a, "P-1", "1000", "1.0")
	require.NoError(t, db.AddPosition(ctx, domain.NewPosition(fillA), "S-001"))

	b := domain.NewOrder(testOrderInit("O-2", "S-002"))
	fillB := testFill(b, "P-2", "1000", "1.0")
	fillB.StrategyID = "S-002"
	require.NoError(t, db.AddPosition(ctx, domain.NewPosition(fillB), "S-002"))

	all, err := db.PositionIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := db.PositionIDs(ctx, "S-001")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Contains(t, scoped, domain.PositionID("P-1"))
}

// ---------------------------------------------------------------------------
// Strategies
// ---------------------------------------------------------------------------

func TestStrategyRegistry(t *testing.T) {
	srv := miniredis.RunT(t)
	db := newTestDB(t, srv)
	ctx := context.Background()

	require.NoError(t, db.UpdateStrategy(ctx, "S-001"))
	require.NoError(t, db.UpdateStrategy(ctx, "S-002"))

	ids, err := db.StrategyIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.StrategyID{"S-001", "S-002"}, ids)

	require.NoError(t, db.DeleteStrategy(ctx, "S-001"))
	ids, err = db.StrategyIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.StrategyID{"S-002"}, ids)
}

func TestDeleteStrategyRetainsAttributedHistory(t *testing.T) {
	srv := miniredis.RunT(t)
	db := newTestDB(t, srv)
	ctx := context.Background()

	require.NoError(t, db.UpdateStrategy(ctx, "S-001"))
	order := domain.NewOrder(testOrderInit("O-1", "S-001"))
	require.NoError(t, db.AddOrder(ctx, order, "", "S-001"))

	require.NoError(t, db.DeleteStrategy(ctx, "S-001"))

	// The registry entry is gone, but the order and its attribution remain.
	loaded, err := db.LoadOrder(ctx, "O-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	scoped, err := db.OrderIDs(ctx, "S-001")
	require.NoError(t, err)
	assert.Contains(t, scoped, domain.ClientOrderID("O-1"))
}

// ---------------------------------------------------------------------------
// Cache, reset, flush
// ---------------------------------------------------------------------------

func TestCachedAccessors(t *testing.T) {
	srv := miniredis.RunT(t)
	db := newTestDB(t, srv)
	ctx := context.Background()

	order := domain.NewOrder(testOrderInit("O-1", "S-001"))
	require.NoError(t, db.AddOrder(ctx, order, "", "S-001"))

	assert.Same(t, order, db.Order("O-1"))
	assert.Nil(t, db.Order("O-MISSING"))

	orders := db.Orders()
	require.Len(t, orders, 1)
	// The returned map is a copy; mutating it does not touch the cache.
	delete(orders, "O-1")
	assert.NotNil(t, db.Order("O-1"))
}

func TestResetClearsCacheNotStore(t *testing.T) {
	srv := miniredis.RunT(t)
	db := newTestDB(t, srv)
	ctx := context.Background()

	order := domain.NewOrder(testOrderInit("O-1", "S-001"))
	require.NoError(t, db.AddOrder(ctx, order, "", "S-001"))
	require.NotNil(t, db.Order("O-1"))

	db.Reset()
	assert.Nil(t, db.Order("O-1"))

	loaded, err := db.LoadOrder(ctx, "O-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Same(t, loaded, db.Order("O-1"))
}

func TestFlushDeletesNamespaceAndIsIdempotent(t *testing.T) {
	srv := miniredis.RunT(t)
	db := newTestDB(t, srv)
	ctx := context.Background()

	require.NoError(t, db.AddAccount(ctx, testAccount("ACC-1", "100.00")))
	order := domain.NewOrder(testOrderInit("O-1", "S-001"))
	require.NoError(t, db.AddOrder(ctx, order, "P-1", "S-001"))
	require.NoError(t, db.UpdateStrategy(ctx, "S-001"))

	require.NoError(t, db.Flush(ctx))

	ids, err := db.OrderIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	loaded, err := db.LoadOrder(ctx, "O-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	account, err := db.LoadAccount(ctx, "ACC-1")
	require.NoError(t, err)
	assert.Nil(t, account)

	strategies, err := db.StrategyIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, strategies)

	assert.Nil(t, db.Order("O-1"))

	// Flushing an empty namespace is a no-op.
	require.NoError(t, db.Flush(ctx))
}

// ---------------------------------------------------------------------------
// Residual checker
// ---------------------------------------------------------------------------

func TestCheckResidualsEmptyWhenComplete(t *testing.T) {
	srv := miniredis.RunT(t)
	db := newTestDB(t, srv)
	ctx := context.Background()

	order := domain.NewOrder(testOrderInit("O-1", "S-001"))
	require.NoError(t, db.AddOrder(ctx, order, "", "S-001"))
	submitAccept(t, order)
	require.NoError(t, order.Apply(testFill(order, "", "100000", "1.00001")))
	require.NoError(t, db.UpdateOrder(ctx, order))

	res := db.CheckResiduals(ctx)
	assert.True(t, res.Empty())
}

func TestCheckResidualsReportsWorkingAndOpen(t *testing.T) {
	srv := miniredis.RunT(t)
	db := newTestDB(t, srv)
	ctx := context.Background()

	working := domain.NewOrder(testOrderInit("O-1", "S-001"))
	require.NoError(t, db.AddOrder(ctx, working, "P-1", "S-001"))

	fill := testFill(working, "P-1", "100000", "1.00000")
	require.NoError(t, db.AddPosition(ctx, domain.NewPosition(fill), "S-001"))

	res := db.CheckResiduals(ctx)
	assert.False(t, res.Empty())
	assert.Equal(t, []domain.ClientOrderID{"O-1"}, res.WorkingOrders)
	assert.Equal(t, []domain.PositionID{"P-1"}, res.OpenPositions)
	assert.Empty(t, res.IndexGaps)
}

func TestCheckResidualsReportsIndexGaps(t *testing.T) {
	srv := miniredis.RunT(t)
	db := newTestDB(t, srv)
	ctx := context.Background()

	// A position added without any order registered against it has no
	// constituent orders.
	order := domain.NewOrder(testOrderInit("O-1", "S-001"))
	fill := testFill(order, "P-ORPHAN", "1000", "1.0")
	require.NoError(t, db.AddPosition(ctx, domain.NewPosition(fill), "S-001"))

	res := db.CheckResiduals(ctx)
	assert.NotEmpty(t, res.IndexGaps)
}

// ---------------------------------------------------------------------------
// Journal
// ---------------------------------------------------------------------------

type memJournal struct {
	entries []domain.JournalEntry
}

func (j *memJournal) Record(_ context.Context, entry domain.JournalEntry) error {
	j.entries = append(j.entries, entry)
	return nil
}

func (j *memJournal) List(_ context.Context, _ domain.TraderID, _ int) ([]domain.JournalEntry, error) {
	return j.entries, nil
}

func TestJournalReceivesOneEntryPerWrite(t *testing.T) {
	srv := miniredis.RunT(t)
	journal := &memJournal{}

	client, err := New(context.Background(), ClientConfig{Addr: srv.Addr(), PoolSize: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	c := codec.NewMsgPackCodec()
	db := NewExecutionDatabase(client, DatabaseConfig{
		TraderID: "TESTER-000",
		Commands: c,
		Events:   c,
		Journal:  journal,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	ctx := context.Background()

	require.NoError(t, db.AddAccount(ctx, testAccount("ACC-1", "100.00")))

	order := domain.NewOrder(testOrderInit("O-1", "S-001"))
	require.NoError(t, db.AddOrder(ctx, order, "", "S-001"))
	submitAccept(t, order)
	require.NoError(t, db.UpdateOrder(ctx, order))
	require.NoError(t, db.UpdateStrategy(ctx, "S-001"))

	require.Len(t, journal.entries, 4)
	kinds := make([]string, 0, len(journal.entries))
	types := make([]string, 0, len(journal.entries))
	for _, e := range journal.entries {
		assert.Equal(t, domain.TraderID("TESTER-000"), e.TraderID)
		kinds = append(kinds, e.Kind)
		types = append(types, e.RecordType)
	}
	assert.Equal(t, []string{"account", "order", "order", "strategy"}, kinds)
	assert.Equal(t, []string{"AccountState", "OrderInitialized", "OrderAccepted", "StrategyRegistered"}, types)
}

// ---------------------------------------------------------------------------
// End to end
// ---------------------------------------------------------------------------

func TestEndToEndMarketOrderFlow(t *testing.T) {
	srv := miniredis.RunT(t)
	db := newTestDB(t, srv)
	ctx := context.Background()

	init := testOrderInit("O-19700101-000000-001-001-1", "S-001")
	init.OrderType = domain.OrderTypeMarket
	init.Price = nil
	order := domain.NewOrder(init)

	require.NoError(t, db.AddOrder(ctx, order, "P-1", "S-001"))
	require.NoError(t, db.UpdateStrategy(ctx, "S-001"))

	require.NoError(t, order.Apply(&domain.OrderSubmitted{EventMeta: domain.NewEventMeta(time.Now()), ClientOrderID: order.ClientOrderID}))
	require.NoError(t, db.UpdateOrder(ctx, order))

	require.NoError(t, order.Apply(&domain.OrderAccepted{EventMeta: domain.NewEventMeta(time.Now()), ClientOrderID: order.ClientOrderID, VenueOrderID: "V-1"}))
	require.NoError(t, db.UpdateOrder(ctx, order))

	fill := testFill(order, "P-1", "100000", "1.00001")
	require.NoError(t, order.Apply(fill))
	require.NoError(t, db.UpdateOrder(ctx, order))

	position := domain.NewPosition(fill)
	require.NoError(t, db.AddPosition(ctx, position, "S-001"))

	// A fresh instance reconstructs identical state from the store alone.
	fresh := newTestDB(t, srv)
	orders, err := fresh.LoadOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	loaded := orders[order.ClientOrderID]
	require.NotNil(t, loaded)
	assert.Equal(t, domain.OrderStatusFilled, loaded.Status)
	assert.Nil(t, loaded.Price)
	assert.True(t, loaded.AvgPrice.Equal(decimal.RequireFromString("1.00001")))
	assert.True(t, loaded.FilledQty.Equal(decimal.RequireFromString("100000")))

	positions, err := fresh.LoadPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	loadedPos := positions["P-1"]
	require.NotNil(t, loadedPos)
	assert.True(t, loadedPos.IsOpen())
	assert.True(t, loadedPos.Quantity.Equal(decimal.RequireFromString("100000")))
	assert.Equal(t, []domain.ClientOrderID{order.ClientOrderID}, loadedPos.OrderIDs)

	res := fresh.CheckResiduals(ctx)
	assert.Equal(t, []domain.PositionID{"P-1"}, res.OpenPositions)
	assert.Empty(t, res.WorkingOrders)
}
