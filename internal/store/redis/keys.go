package redis

import "github.com/quantfabric/execdb/internal/domain"

// Keys derives every key string for one trader's namespace. The templates
// are a stability contract: operational tooling computes the same strings
// independently, so they must never change.
//
// For trader "TESTER-000":
//
//	Trader-TESTER-000                             root
//	Trader-TESTER-000:Accounts:<account_id>       hash field per account
//	Trader-TESTER-000:Orders:<cl_ord_id>          event log (list)
//	Trader-TESTER-000:Positions:<position_id>     event log (list)
//	Trader-TESTER-000:Strategies:<strategy_id>    registry hash
//	Trader-TESTER-000:Index:OrderPosition         hash cl_ord_id -> position_id
//	Trader-TESTER-000:Index:OrderStrategy         hash cl_ord_id -> strategy_id
//	Trader-TESTER-000:Index:PositionStrategy      hash position_id -> strategy_id
//	Trader-TESTER-000:Index:PositionOrders:<id>   set of cl_ord_ids
//	Trader-TESTER-000:Index:StrategyOrders:<id>   set of cl_ord_ids
//	Trader-TESTER-000:Index:StrategyPositions:<id> set of position_ids
//	Trader-TESTER-000:Index:Orders                set of all cl_ord_ids
//	Trader-TESTER-000:Index:Orders:Working        status set
//	Trader-TESTER-000:Index:Orders:Completed      status set
//	Trader-TESTER-000:Index:Positions             set of all position_ids
//	Trader-TESTER-000:Index:Positions:Open        status set
//	Trader-TESTER-000:Index:Positions:Closed      status set
type Keys struct {
	Trader                 string
	Accounts               string
	Orders                 string
	Positions              string
	Strategies             string
	IndexOrderPosition     string
	IndexOrderStrategy     string
	IndexPositionStrategy  string
	IndexPositionOrders    string
	IndexStrategyOrders    string
	IndexStrategyPositions string
	IndexOrders            string
	IndexOrdersWorking     string
	IndexOrdersCompleted   string
	IndexPositions         string
	IndexPositionsOpen     string
	IndexPositionsClosed   string
}

// NewKeys derives the key set for the given trader identity.
func NewKeys(traderID domain.TraderID) Keys {
	trader := "Trader-" + string(traderID)
	return Keys{
		Trader:                 trader,
		Accounts:               trader + ":Accounts:",
		Orders:                 trader + ":Orders:",
		Positions:              trader + ":Positions:",
		Strategies:             trader + ":Strategies:",
		IndexOrderPosition:     trader + ":Index:OrderPosition",
		IndexOrderStrategy:     trader + ":Index:OrderStrategy",
		IndexPositionStrategy:  trader + ":Index:PositionStrategy",
		IndexPositionOrders:    trader + ":Index:PositionOrders:",
		IndexStrategyOrders:    trader + ":Index:StrategyOrders:",
		IndexStrategyPositions: trader + ":Index:StrategyPositions:",
		IndexOrders:            trader + ":Index:Orders",
		IndexOrdersWorking:     trader + ":Index:Orders:Working",
		IndexOrdersCompleted:   trader + ":Index:Orders:Completed",
		IndexPositions:         trader + ":Index:Positions",
		IndexPositionsOpen:     trader + ":Index:Positions:Open",
		IndexPositionsClosed:   trader + ":Index:Positions:Closed",
	}
}

// Order returns the event-log key for one order.
func (k Keys) Order(id domain.ClientOrderID) string { return k.Orders + string(id) }

// Position returns the event-log key for one position.
func (k Keys) Position(id domain.PositionID) string { return k.Positions + string(id) }

// Strategy returns the registry key for one strategy.
func (k Keys) Strategy(id domain.StrategyID) string { return k.Strategies + string(id) }

// PositionOrders returns the key of the set of orders belonging to a position.
func (k Keys) PositionOrders(id domain.PositionID) string {
	return k.IndexPositionOrders + string(id)
}

// StrategyOrders returns the key of the set of orders owned by a strategy.
func (k Keys) StrategyOrders(id domain.StrategyID) string {
	return k.IndexStrategyOrders + string(id)
}

// StrategyPositions returns the key of the set of positions owned by a
// strategy.
func (k Keys) StrategyPositions(id domain.StrategyID) string {
	return k.IndexStrategyPositions + string(id)
}
