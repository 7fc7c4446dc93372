package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The key templates are a stability contract with operational tooling; these
// literals must never change.
func TestKeyTemplates(t *testing.T) {
	k := NewKeys("TESTER-000")

	assert.Equal(t, "Trader-TESTER-000", k.Trader)
	assert.Equal(t, "Trader-TESTER-000:Accounts:", k.Accounts)
	assert.Equal(t, "Trader-TESTER-000:Orders:", k.Orders)
	assert.Equal(t, "Trader-TESTER-000:Positions:", k.Positions)
	assert.Equal(t, "Trader-TESTER-000:Strategies:", k.Strategies)
	assert.Equal(t, "Trader-TESTER-000:Index:OrderPosition", k.IndexOrderPosition)
	assert.Equal(t, "Trader-TESTER-000:Index:OrderStrategy", k.IndexOrderStrategy)
	assert.Equal(t, "Trader-TESTER-000:Index:PositionStrategy", k.IndexPositionStrategy)
	assert.Equal(t, "Trader-TESTER-000:Index:PositionOrders:", k.IndexPositionOrders)
	assert.Equal(t, "Trader-TESTER-000:Index:StrategyOrders:", k.IndexStrategyOrders)
	assert.Equal(t, "Trader-TESTER-000:Index:StrategyPositions:", k.IndexStrategyPositions)
	assert.Equal(t, "Trader-TESTER-000:Index:Orders", k.IndexOrders)
	assert.Equal(t, "Trader-TESTER-000:Index:Orders:Working", k.IndexOrdersWorking)
	assert.Equal(t, "Trader-TESTER-000:Index:Orders:Completed", k.IndexOrdersCompleted)
	assert.Equal(t, "Trader-TESTER-000:Index:Positions", k.IndexPositions)
	assert.Equal(t, "Trader-TESTER-000:Index:Positions:Open", k.IndexPositionsOpen)
	assert.Equal(t, "Trader-TESTER-000:Index:Positions:Closed", k.IndexPositionsClosed)
}

func TestEntityKeys(t *testing.T) {
	k := NewKeys("TESTER-000")

	assert.Equal(t, "Trader-TESTER-000:Orders:O-1", k.Order("O-1"))
	assert.Equal(t, "Trader-TESTER-000:Positions:P-1", k.Position("P-1"))
	assert.Equal(t, "Trader-TESTER-000:Strategies:S-001", k.Strategy("S-001"))
	assert.Equal(t, "Trader-TESTER-000:Index:PositionOrders:P-1", k.PositionOrders("P-1"))
	assert.Equal(t, "Trader-TESTER-000:Index:StrategyOrders:S-001", k.StrategyOrders("S-001"))
	assert.Equal(t, "Trader-TESTER-000:Index:StrategyPositions:S-001", k.StrategyPositions("S-001"))
}
